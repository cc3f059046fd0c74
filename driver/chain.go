package driver

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AGPFMiner/bmctl/bm1387"
	"github.com/AGPFMiner/bmctl/boardman"
	"github.com/AGPFMiner/bmctl/counters"
	"github.com/AGPFMiner/bmctl/mining"
	"github.com/AGPFMiner/bmctl/statistics"
	"github.com/AGPFMiner/bmctl/types"

	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// Chain bring up timing. Chips want breathing room between the reset
// release, the inactivation rounds and the address assignments.
const (
	resetHoldTime       = 100 * time.Millisecond
	resetSettleTime     = 618 * time.Millisecond
	inactivateRounds    = 3
	inactivateDelay     = 100 * time.Millisecond
	addressAssignDelay  = 10 * time.Millisecond
	baudSwitchDelay     = 100 * time.Millisecond
	enumRetries         = 3
	enumResponseTimeout = 500 * time.Millisecond
	cmdResponseTimeout  = 1 * time.Second
)

var (
	ErrNoChips      = errors.New("driver: no chips answered enumeration")
	ErrTooManyChips = errors.New("driver: more chips answered than the bus can address")
)

//Chain drives one string of BM1387 chips behind a shared bus
type Chain struct {
	device         string
	baudrate       uint
	expectedChips  int
	chipCount      int
	midstates      bm1387.MidstateCount
	asicDifficulty uint64
	resetPin       int
	plugPin        int
	ownsBoard      bool

	frequency *FrequencySettings
	counters  *counters.HashChain
	// countersMutex guards counters and frequency, the accounting
	// structs do no locking of their own
	countersMutex *sync.Mutex
	// cmdMutex serializes command and response cycles so answers pair
	// with the question that triggered them
	cmdMutex *sync.Mutex

	transport     Transport
	validateNonce func(NonceFrame) bool

	driverQuit     chan struct{}
	feedDog        chan bool
	hr             *statistics.HashRate
	stats          types.HardwareStats
	prevEpochValid uint64
	regHashrate    uint64

	PollDelay, NonceTimeout time.Duration
	logger                  *zap.Logger
}

//NewChain builds and initializes a chain driver
func NewChain(args mining.ChainArgs) Driver {
	drv := &Chain{}
	drv.Init(args)
	return drv
}

func (c *Chain) Init(args interface{}) {
	argsn := args.(mining.ChainArgs)
	c.device = argsn.Device
	c.baudrate = argsn.Baudrate
	if c.baudrate == 0 {
		c.baudrate = bm1387.InitChipBaudRate
	}
	c.expectedChips = argsn.ChipCount
	if c.expectedChips == 0 {
		c.expectedChips = bm1387.ExpectedChipsOnChain
	}
	c.midstates = bm1387.NewMidstateCount(argsn.Midstates)
	c.asicDifficulty = argsn.AsicDifficulty
	c.resetPin = argsn.ResetPin
	c.plugPin = argsn.PlugPin
	c.PollDelay = argsn.PollDelay
	if c.PollDelay == 0 {
		c.PollDelay = 10 * time.Second
	}
	c.NonceTimeout = argsn.NonceTimeout
	c.logger = argsn.Logger

	c.frequency = NewFrequencySettings(c.expectedChips, argsn.FrequencyHz)
	c.counters = counters.NewHashChain(c.expectedChips, c.asicDifficulty)
	c.countersMutex = &sync.Mutex{}
	c.cmdMutex = &sync.Mutex{}
	c.feedDog = make(chan bool, 1)
	c.hr = &statistics.HashRate{}
	c.stats = types.Initializing
}

//SetTransport injects a transport, bench setups and tests use it to
//bypass the serial port and the board control pins
func (c *Chain) SetTransport(t Transport) {
	c.transport = t
}

//SetNonceValidator registers the check deciding whether a reported
//solution really meets the ASIC difficulty. Without one every
//checksum clean nonce counts as valid.
func (c *Chain) SetNonceValidator(validate func(NonceFrame) bool) {
	c.validateNonce = validate
}

//Start brings the board out of reset, configures the chain and spawns
//the driver loops
func (c *Chain) Start() {
	c.driverQuit = make(chan struct{})
	log.Println("Starting bm1387 chain driver")
	go c.nonceStatistic()
	go c.watchDog()

	if c.transport == nil {
		c.ownsBoard = true
		if !boardman.IsPlugged(c.plugPin) {
			c.logger.Warn("no hashboard in slot", zap.Int("plugPin", c.plugPin))
			c.stats = types.NoResponse
			return
		}
		boardman.Reset(c.resetPin, resetHoldTime)
		time.Sleep(resetSettleTime)
		transport, err := NewUARTTransport(c.device, c.baudrate, c.logger)
		if err != nil {
			c.logger.Error("Port", zap.Error(err))
			c.stats = types.NoResponse
			return
		}
		c.transport = transport
	}

	if err := c.initChain(); err != nil {
		c.logger.Error("chain initialization failed", zap.Error(err))
		c.stats = types.NoResponse
		return
	}
	c.stats = types.Running
	go c.processNonce()
	go c.pollHashrate()
}

func (c *Chain) Stop() {
	close(c.driverQuit)
	if c.transport != nil {
		c.transport.Close()
	}
	if c.ownsBoard {
		boardman.EnterReset(c.resetPin)
	}
}

func (c *Chain) sendCommand(cmd bm1387.Command) error {
	frame, err := cmd.MarshalBinary()
	if err != nil {
		return err
	}
	c.logger.Debug("TX", zap.String("frame", fmt.Sprintf("%02X", frame)))
	return c.transport.SendCommand(frame)
}

// readRegister runs one command and response cycle against a single
// chip.
func (c *Chain) readRegister(addr bm1387.ChipAddress, register uint8) (uint32, error) {
	c.cmdMutex.Lock()
	defer c.cmdMutex.Unlock()
	if err := c.sendCommand(bm1387.NewGetStatusCmd(addr, register)); err != nil {
		return 0, err
	}
	payload, err := c.transport.ReadCmdResponse(cmdResponseTimeout)
	if err != nil {
		return 0, err
	}
	resp, err := bm1387.UnmarshalCmdResponse(payload)
	if err != nil {
		return 0, err
	}
	return resp.Value, nil
}

func (c *Chain) writeRegister(addr bm1387.ChipAddress, reg bm1387.Register) error {
	return c.sendCommand(bm1387.NewSetConfigCmd(addr, reg.RegNum(), reg.ToReg()))
}

// initChain walks the whole bring up: enumeration, address assignment,
// baseline configuration, difficulty, per chip frequency and finally
// the baud rate switch to the fast link.
func (c *Chain) initChain() error {
	c.stats = types.Initializing

	count, err := c.enumerateWithRetry()
	if err != nil {
		return err
	}
	if count != c.expectedChips {
		c.logger.Warn("unexpected chip count",
			zap.Int("found", count), zap.Int("expected", c.expectedChips))
	}
	c.chipCount = count
	c.countersMutex.Lock()
	c.counters.SetChipCount(count)
	c.countersMutex.Unlock()
	c.frequency.SetChipCount(count)

	for i := 0; i < count; i++ {
		if err := c.sendCommand(bm1387.NewSetChipAddressCmd(bm1387.OneChip(i))); err != nil {
			return err
		}
		time.Sleep(addressAssignDelay)
	}

	// baseline config: keep the boot baud rate, cores gated until the
	// frequency is in place
	initDiv, err := bm1387.CalcBaudClockDiv(bm1387.InitChipBaudRate)
	if err != nil {
		return err
	}
	mmen := c.midstates.Count() > 1
	mc, err := bm1387.NewMiscCtrlReg(true, true, initDiv, true, mmen)
	if err != nil {
		return err
	}
	if err := c.writeRegister(bm1387.AllChips, mc); err != nil {
		return err
	}

	if err := c.writeDifficulty(c.asicDifficulty); err != nil {
		return err
	}

	if err := c.programFrequency(); err != nil {
		return err
	}

	// ungate the cores and move the whole chain to the fast link
	targetDiv, err := bm1387.CalcBaudClockDiv(bm1387.TargetChipBaudRate)
	if err != nil {
		return err
	}
	mc, err = bm1387.NewMiscCtrlReg(false, true, targetDiv, false, mmen)
	if err != nil {
		return err
	}
	if err := c.writeRegister(bm1387.AllChips, mc); err != nil {
		return err
	}
	time.Sleep(baudSwitchDelay)
	if err := c.transport.SetBaudRate(bm1387.TargetChipBaudRate); err != nil {
		return err
	}

	c.logger.Info("chain initialized",
		zap.Int("chips", count),
		zap.Uint64("difficulty", c.asicDifficulty),
		zap.String("frequency", types.FrequencyHz(c.frequency.Avg()).MHz()),
		zap.Int("midstates", c.midstates.Count()))
	return nil
}

func (c *Chain) enumerateWithRetry() (int, error) {
	var count int
	var err error
	for attempt := 1; attempt <= enumRetries; attempt++ {
		count, err = c.enumerate()
		if err == nil {
			return count, nil
		}
		c.logger.Warn("enumeration attempt failed",
			zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(inactivateDelay)
	}
	return 0, err
}

// enumerate counts the chips on the chain. Every chip forwards the
// broadcast status read downstream and answers it, the number of
// answers is the chain length.
func (c *Chain) enumerate() (int, error) {
	c.cmdMutex.Lock()
	defer c.cmdMutex.Unlock()

	for i := 0; i < inactivateRounds; i++ {
		if err := c.sendCommand(bm1387.NewInactivateFromChainCmd()); err != nil {
			return 0, err
		}
		time.Sleep(inactivateDelay)
	}
	if err := c.sendCommand(bm1387.NewGetStatusCmd(bm1387.AllChips, bm1387.GetAddressRegNum)); err != nil {
		return 0, err
	}

	count := 0
	for {
		payload, err := c.transport.ReadCmdResponse(enumResponseTimeout)
		if errors.Is(err, ErrResponseTimeout) {
			break
		}
		if err != nil {
			return 0, err
		}
		resp, err := bm1387.UnmarshalCmdResponse(payload)
		if err != nil {
			c.logger.Warn("garbled enumeration response", zap.Error(err))
			continue
		}
		reg := bm1387.GetAddressRegFromReg(resp.Value)
		if !reg.ChipRev.Known() {
			c.logger.Warn("unexpected chip revision",
				zap.String("revision", reg.ChipRev.String()), zap.Int("position", count))
		}
		c.logger.Debug("chip reported in",
			zap.Int("position", count), zap.Uint8("addr", reg.Addr))
		count++
	}
	if count == 0 {
		return 0, ErrNoChips
	}
	if count > bm1387.MaxChipsOnChain {
		return 0, fmt.Errorf("%w: %d", ErrTooManyChips, count)
	}
	return count, nil
}

// programFrequency looks up and writes the PLL configuration of every
// chip. The achieved frequency replaces the requested one in the
// settings so that reporting shows what the chip really runs at.
func (c *Chain) programFrequency() error {
	var achieved FrequencySettings
	copier.Copy(&achieved, c.frequency)
	for i := range achieved.Chip {
		pf, err := bm1387.LookupFreq(achieved.Chip[i])
		if err != nil {
			return err
		}
		if err := c.writeRegister(bm1387.OneChip(i), pf.Reg); err != nil {
			return err
		}
		achieved.Chip[i] = pf.Frequency
		c.logger.Debug("chip frequency programmed",
			zap.Int("chip", i),
			zap.String("frequency", types.FrequencyHz(pf.Frequency).MHz()),
			zap.Uint32("pll", pf.Reg.ToReg()))
	}
	c.countersMutex.Lock()
	c.frequency = &achieved
	c.countersMutex.Unlock()
	return nil
}

func (c *Chain) writeDifficulty(difficulty uint64) error {
	tm, err := bm1387.NewTicketMaskReg(uint32(difficulty))
	if err != nil {
		return err
	}
	return c.writeRegister(bm1387.AllChips, tm)
}

//SetFrequency retunes every chip to the given frequency at runtime
func (c *Chain) SetFrequency(freqHz uint64) error {
	if _, err := bm1387.LookupFreq(freqHz); err != nil {
		return err
	}
	c.frequency.SetAll(freqHz)
	return c.programFrequency()
}

//SetDifficulty reprograms the ticket mask of the whole chain. The
//counters restart, mixing two difficulty scales would skew every
//average they feed.
func (c *Chain) SetDifficulty(difficulty uint64) error {
	if err := c.writeDifficulty(difficulty); err != nil {
		return err
	}
	c.asicDifficulty = difficulty
	c.countersMutex.Lock()
	c.counters.AsicDifficulty = difficulty
	c.counters.Reset()
	c.countersMutex.Unlock()
	return nil
}

func (c *Chain) processNonce() {
	for {
		select {
		case <-c.driverQuit:
			return
		case nf := <-c.transport.Nonces():
			select {
			case c.feedDog <- true:
			default:
			}
			addr := bm1387.NewCoreAddress(nf.Nonce)
			midstate := int(nf.WorkID) & c.midstates.Mask()
			valid := c.validateNonce == nil || c.validateNonce(nf)
			c.countersMutex.Lock()
			if addr.Chip >= c.counters.ChipCount() {
				c.logger.Debug("nonce from unenumerated chip",
					zap.String("Nonce", fmt.Sprintf("%08X", nf.Nonce)),
					zap.Int("Chip", addr.Chip))
			}
			if valid {
				c.counters.AddValid(addr)
			} else {
				c.counters.AddError(addr)
			}
			c.countersMutex.Unlock()
			c.logger.Debug("Parsed Nonce",
				zap.String("Nonce", fmt.Sprintf("%08X", nf.Nonce)),
				zap.Int("Chip", addr.Chip),
				zap.Int("Core", addr.Core),
				zap.Int("Midstate", midstate),
				zap.Bool("Valid", valid))
		}
	}
}

// nonceStatistic samples the share flow once per second into the
// sliding windows.
func (c *Chain) nonceStatistic() {
	for {
		select {
		case <-c.driverQuit:
			return
		case <-time.After(time.Second * 1):
			c.countersMutex.Lock()
			valid := c.counters.Valid
			c.countersMutex.Unlock()
			periodCnt := valid - c.prevEpochValid
			c.hr.Add(float64(periodCnt))
			c.prevEpochValid = valid
		}
	}
}

// pollHashrate reads the self measured hashrate register of every chip
// and keeps the chain total for reporting. Answering chips also feed
// the watchdog, a chain can be healthy without finding nonces for a
// while.
func (c *Chain) pollHashrate() {
	for {
		select {
		case <-c.driverQuit:
			return
		case <-time.After(c.PollDelay):
			var sum uint64
			alive := false
			for i := 0; i < c.chipCount; i++ {
				value, err := c.readRegister(bm1387.OneChip(i), bm1387.HashrateRegNum)
				if err != nil {
					c.logger.Debug("hashrate poll failed", zap.Int("chip", i), zap.Error(err))
					continue
				}
				sum += bm1387.HashrateRegFromReg(value).Hashrate()
				alive = true
			}
			atomic.StoreUint64(&c.regHashrate, sum)
			if alive {
				select {
				case c.feedDog <- true:
				default:
				}
			}
		}
	}
}

// watchDog downgrades the reported status when neither nonces nor
// register reads arrive for a whole timeout window.
func (c *Chain) watchDog() {
	timeout := c.NonceTimeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	for {
		select {
		case <-c.driverQuit:
			c.stats = types.Stopped
			return
		case <-time.After(timeout):
			if c.stats != types.Initializing {
				c.stats = types.NoResponse
			}
		case <-c.feedDog:
			c.stats = types.Running
		}
	}
}

//CountersSnapshot hands out an independent copy of the accounting
func (c *Chain) CountersSnapshot() *counters.HashChain {
	c.countersMutex.Lock()
	defer c.countersMutex.Unlock()
	return c.counters.Snapshot()
}

//ResetCounters restarts the accounting interval
func (c *Chain) ResetCounters() {
	c.countersMutex.Lock()
	defer c.countersMutex.Unlock()
	c.counters.Reset()
	c.prevEpochValid = 0
}

func (c *Chain) GetDriverStats() (stats types.ChainStates) {
	stats.DriverName = "bm1387"
	stats.Status = c.stats

	oneMin := c.hr.RecentNSum(statistics.Window1Min)
	fiveMin := c.hr.RecentNSum(statistics.Window5Min)
	fifteenMin := c.hr.RecentNSum(statistics.Window15Min)
	stats.NonceNum[0], stats.NonceNum[1], stats.NonceNum[2] = oneMin, fiveMin, fifteenMin
	stats.Hashrate[0] = oneMin * FourGiga / statistics.Window1Min
	stats.Hashrate[1] = fiveMin * FourGiga / statistics.Window5Min
	stats.Hashrate[2] = fifteenMin * FourGiga / statistics.Window15Min
	stats.RegHashrate = atomic.LoadUint64(&c.regHashrate)

	c.countersMutex.Lock()
	snap := c.counters.Snapshot()
	frequency := c.frequency
	c.countersMutex.Unlock()

	stats.ChipCount = len(snap.Chip)
	stats.AsicDifficulty = snap.AsicDifficulty
	stats.Valid = snap.Valid
	stats.Errors = snap.Errors
	stats.UpTime = int64(snap.Duration() / time.Second)
	stats.Frequency = types.FrequencyHz(frequency.Avg()).MHz()
	stats.ChipStates = make([]types.ChipStates, len(snap.Chip))
	for i := range snap.Chip {
		stats.ChipStates[i] = types.ChipStates{
			Valid:  snap.Chip[i].Valid,
			Errors: snap.Chip[i].Errors,
		}
		if i < len(frequency.Chip) {
			stats.ChipStates[i].Frequency = types.FrequencyHz(frequency.Chip[i]).MHz()
		}
	}
	return
}
