package miner

import (
	j "encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/AGPFMiner/bmctl/boardman"
	"github.com/AGPFMiner/bmctl/driver"
	"github.com/AGPFMiner/bmctl/mining"
	"github.com/AGPFMiner/bmctl/types"

	"github.com/gorilla/mux"
	"github.com/gorilla/rpc"
	"github.com/gorilla/rpc/json"

	"go.uber.org/zap/zapcore"

	"os"

	"go.uber.org/zap"
)

var atom = zap.NewAtomicLevel()
var logger *zap.Logger

func selectZapLevel(loglevel string) zapcore.Level {
	var level zapcore.Level
	switch loglevel {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "error":
		level = zap.ErrorLevel
	default:
		level = zap.InfoLevel
	}
	return level
}
func initLogger(loglevel string) *zap.Logger {
	level := selectZapLevel(loglevel)
	encoderCfg := zap.NewProductionEncoderConfig()
	logger = zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		atom,
	))
	defer logger.Sync()
	atom.SetLevel(level)
	return logger
}

//Miner do everything
type Miner struct {
	Chains []types.ChainConfig

	Driver                  string
	PollDelay, NonceTimeout int64

	WebEnable bool
	WebListen string

	LogLevel string

	drivers []driver.Driver
}

func (m *Miner) chainArgs(cfg types.ChainConfig, logger *zap.Logger) mining.ChainArgs {
	args := mining.ChainArgs{
		Device:         cfg.Device,
		Baudrate:       cfg.Baudrate,
		ChipCount:      cfg.ChipCount,
		FrequencyHz:    uint64(cfg.Frequency),
		AsicDifficulty: cfg.AsicDifficulty,
		Midstates:      cfg.Midstates,
		ResetPin:       cfg.ResetPin,
		PlugPin:        cfg.PlugPin,
		PollDelay:      time.Duration(m.PollDelay) * time.Second,
		Logger:         logger,
	}
	if m.NonceTimeout != 0 {
		args.NonceTimeout = time.Duration(m.NonceTimeout) * time.Second
	}
	return args
}

func (m *Miner) newDrivers(logger *zap.Logger) error {
	switch m.Driver {
	case "bm1387":
	default:
		return errors.New("Not supported driver: " + m.Driver)
	}
	m.drivers = make([]driver.Driver, len(m.Chains))
	for i, cfg := range m.Chains {
		m.drivers[i] = driver.NewChain(m.chainArgs(cfg, logger))
	}
	return nil
}

//Reload the main miner
func (m *Miner) Reload() {
	log.Print("Reloading miner")
	loglvl := selectZapLevel(m.LogLevel)
	atom.SetLevel(loglvl)
	for i, drv := range m.drivers {
		log.Print("Stopping chain ", i)
		drv.Stop()
	}
	if err := m.newDrivers(logger); err != nil {
		log.Print(err)
		return
	}
	for _, drv := range m.drivers {
		drv.Start()
	}
}

//MinerMain starts the miner
func (m *Miner) MinerMain() {
	log.SetOutput(os.Stdout)

	logger := initLogger(m.LogLevel)

	if err := boardman.Init(); err != nil {
		logger.Warn("board control unavailable", zap.Error(err))
	}

	if err := m.newDrivers(logger); err != nil {
		log.Fatal(err)
	}
	for _, drv := range m.drivers {
		drv.Start()
	}

	s := rpc.NewServer()
	s.RegisterCodec(json.NewCodec(), "application/json")
	s.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	s.RegisterService(m, "miner")
	r := mux.NewRouter()
	r.Handle("/rpc", s)

	r.HandleFunc("/bmctl/f_status", m.GetMinerStatus)
	r.HandleFunc("/bmctl/f_miner", m.MinerCtrl)

	listen := m.WebListen
	if listen == "" {
		listen = ":1234"
	}
	if !m.WebEnable {
		select {}
	}
	http.ListenAndServe(listen, r)
}

type MinerRPCArgs struct {
	Who string
}

type DriverRPCReply struct {
	DriverInfo string
}

func (m *Miner) GetHardwareStats(r *http.Request, args *MinerRPCArgs, reply *DriverRPCReply) error {
	var chainsInfo []types.ChainStates
	for _, drv := range m.drivers {
		chainsInfo = append(chainsInfo, drv.GetDriverStats())
	}
	res, _ := j.Marshal(chainsInfo)
	reply.DriverInfo = string(res)
	return nil
}

type TuneRPCArgs struct {
	Chain int
	// Frequency in MHz, the unit operators use everywhere
	Frequency  float64
	Difficulty uint64
}

type TuneRPCReply struct {
	Frequency      string
	AsicDifficulty uint64
}

func (m *Miner) chainByIndex(idx int) (driver.Driver, error) {
	if idx < 0 || idx >= len(m.drivers) {
		return nil, fmt.Errorf("no chain %d", idx)
	}
	return m.drivers[idx], nil
}

func (m *Miner) SetFrequency(r *http.Request, args *TuneRPCArgs, reply *TuneRPCReply) error {
	drv, err := m.chainByIndex(args.Chain)
	if err != nil {
		return err
	}
	if err := drv.SetFrequency(uint64(args.Frequency * 1e6)); err != nil {
		return err
	}
	stats := drv.GetDriverStats()
	reply.Frequency = stats.Frequency
	reply.AsicDifficulty = stats.AsicDifficulty
	return nil
}

func (m *Miner) SetDifficulty(r *http.Request, args *TuneRPCArgs, reply *TuneRPCReply) error {
	drv, err := m.chainByIndex(args.Chain)
	if err != nil {
		return err
	}
	if err := drv.SetDifficulty(args.Difficulty); err != nil {
		return err
	}
	stats := drv.GetDriverStats()
	reply.Frequency = stats.Frequency
	reply.AsicDifficulty = stats.AsicDifficulty
	return nil
}

func (m *Miner) ResetCounters(r *http.Request, args *MinerRPCArgs, reply *DriverRPCReply) error {
	for _, drv := range m.drivers {
		drv.ResetCounters()
	}
	reply.DriverInfo = "counters reset"
	return nil
}

func (m *Miner) GetMinerStatus(w http.ResponseWriter, r *http.Request) {
	var devsInfo []*types.ChainStates
	for _, drv := range m.drivers {
		ds := drv.GetDriverStats()
		devsInfo = append(devsInfo, &ds)
	}

	data := &types.StatusEnvelope{
		Status: &types.MinerStatus{
			Devs:      devsInfo,
			MinerUp:   true,
			MinerDown: false,
			Time:      time.Now().Unix(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	j.NewEncoder(w).Encode(data)
	return
}

func (m *Miner) MinerCtrl(w http.ResponseWriter, r *http.Request) {
	cmds, ok := r.URL.Query()["command"]

	if !ok || len(cmds[0]) < 1 {
		log.Println("Url Param 'cmd' is missing")
		return
	}

	log.Print(cmds)
	cmd := cmds[0]
	switch cmd {
	case "resetcounters":
		for _, drv := range m.drivers {
			drv.ResetCounters()
		}
	case "reload":
		m.Reload()
	}
}
