package driver

import (
	"errors"
	"time"

	"github.com/AGPFMiner/bmctl/bm1387"

	"go.uber.org/zap"
)

// Board sensors hang off I2C buses that are only reachable through a
// chip acting as a bridge. The bridge chip gets its pins multiplexed
// over to I2C, transactions then run through its I2C control register.

const (
	i2cPollDelay   = 10 * time.Millisecond
	i2cBusyRetries = 100
)

var ErrI2cBusy = errors.New("driver: chip I2C controller stuck busy")

// TempChip is the chip wired to the temperature sensor on S9 boards.
var TempChip = bm1387.OneChip(61)

//I2cBus is a sensor bus bridged through one chip of the chain
type I2cBus struct {
	chain *Chain
	chip  bm1387.ChipAddress
}

//OpenI2cBus multiplexes the chip's pins over to the chosen sensor bus.
//Close returns them to hashing, cores on the bridge chip idle between
//the two calls.
func (c *Chain) OpenI2cBus(chip bm1387.ChipAddress, bus bm1387.I2cBusSelect) (*I2cBus, error) {
	value, err := c.readRegister(chip, bm1387.MiscCtrlRegNum)
	if err != nil {
		return nil, err
	}
	mc := bm1387.MiscCtrlRegFromReg(value)
	mc.SetI2c(&bus)
	if err := c.writeRegister(chip, mc); err != nil {
		return nil, err
	}
	c.logger.Debug("I2C bridge opened", zap.String("chip", chip.String()), zap.Uint8("bus", uint8(bus)))
	return &I2cBus{chain: c, chip: chip}, nil
}

func (b *I2cBus) waitIdle() (bm1387.I2cControlReg, error) {
	for i := 0; i < i2cBusyRetries; i++ {
		value, err := b.chain.readRegister(b.chip, bm1387.I2cControlRegNum)
		if err != nil {
			return bm1387.I2cControlReg{}, err
		}
		ctrl := bm1387.I2cControlRegFromReg(value)
		if !ctrl.Busy {
			return ctrl, nil
		}
		time.Sleep(i2cPollDelay)
	}
	return bm1387.I2cControlReg{}, ErrI2cBusy
}

//ReadReg reads one register of a device on the bridged bus
func (b *I2cBus) ReadReg(device, reg uint8) (uint8, error) {
	if _, err := b.waitIdle(); err != nil {
		return 0, err
	}
	ctrl := bm1387.I2cControlReg{DoCommand: true, Addr: device &^ 1, Reg: reg}
	if err := b.chain.writeRegister(b.chip, ctrl); err != nil {
		return 0, err
	}
	done, err := b.waitIdle()
	if err != nil {
		return 0, err
	}
	return done.Data, nil
}

//WriteReg writes one register of a device on the bridged bus. The odd
//device address selects a write transaction.
func (b *I2cBus) WriteReg(device, reg, data uint8) error {
	if _, err := b.waitIdle(); err != nil {
		return err
	}
	ctrl := bm1387.I2cControlReg{DoCommand: true, Addr: device | 1, Reg: reg, Data: data}
	if err := b.chain.writeRegister(b.chip, ctrl); err != nil {
		return err
	}
	_, err := b.waitIdle()
	return err
}

//Close returns the bridge chip's pins to hashing
func (b *I2cBus) Close() error {
	value, err := b.chain.readRegister(b.chip, bm1387.MiscCtrlRegNum)
	if err != nil {
		return err
	}
	mc := bm1387.MiscCtrlRegFromReg(value)
	mc.SetI2c(nil)
	return b.chain.writeRegister(b.chip, mc)
}
