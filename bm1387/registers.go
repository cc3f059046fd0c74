package bm1387

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Register is a chip configuration register. Every register occupies a
// 4 byte big endian word on the wire, reachable for reading through
// GetStatusCmd and for writing through SetConfigCmd.
type Register interface {
	// RegNum returns the register number within the chip.
	RegNum() uint8
	// ToReg packs the register into its 32 bit wire representation.
	ToReg() uint32
}

// Register numbers of the registers this driver touches. HashCounting
// is listed for completeness, the driver reads the hashrate register
// instead.
const (
	GetAddressRegNum   uint8 = 0x00
	HashrateRegNum     uint8 = 0x08
	PllRegNum          uint8 = 0x0c
	HashCountingRegNum uint8 = 0x14
	TicketMaskRegNum   uint8 = 0x18
	MiscCtrlRegNum     uint8 = 0x1c
	I2cControlRegNum   uint8 = 0x20
)

// PackRegister serializes a register into the 4 big endian bytes that
// travel on the bus.
func PackRegister(r Register) [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], r.ToReg())
	return b
}

// ChipRev is the chip revision reported in GetAddressReg. Unknown
// revisions keep their raw value so that a surprising chain composition
// stays visible in logs instead of failing the decode.
type ChipRev uint16

// ChipRevBm1387 is the only revision this driver drives.
const ChipRevBm1387 ChipRev = 0x1387

// Known tells whether the revision is one this driver understands.
func (r ChipRev) Known() bool {
	return r == ChipRevBm1387
}

func (r ChipRev) String() string {
	if r == ChipRevBm1387 {
		return "BM1387"
	}
	return fmt.Sprintf("unknown chip revision 0x%04x", uint16(r))
}

// GetAddressReg reports the chip revision and the currently assigned
// hardware address. Freshly reset chips respond with address 0.
//
// Layout:
//
//	bits 31:16  chip revision
//	bits 15:8   reserved
//	bits 7:0    hardware address
type GetAddressReg struct {
	ChipRev  ChipRev
	Reserved uint8
	Addr     uint8
}

// RegNum implements Register.
func (r GetAddressReg) RegNum() uint8 {
	return GetAddressRegNum
}

// ToReg implements Register.
func (r GetAddressReg) ToReg() uint32 {
	return uint32(r.ChipRev)<<16 | uint32(r.Reserved)<<8 | uint32(r.Addr)
}

// GetAddressRegFromReg decodes the register from its wire word.
func GetAddressRegFromReg(v uint32) GetAddressReg {
	return GetAddressReg{
		ChipRev:  ChipRev(v >> 16),
		Reserved: uint8(v >> 8),
		Addr:     uint8(v),
	}
}

// HashrateReg carries the hashrate the chip measured over the last
// second, in units of 2^24 hashes.
type HashrateReg struct {
	Hashrate24 uint32
}

// RegNum implements Register.
func (r HashrateReg) RegNum() uint8 {
	return HashrateRegNum
}

// ToReg implements Register.
func (r HashrateReg) ToReg() uint32 {
	return r.Hashrate24
}

// HashrateRegFromReg decodes the register from its wire word.
func HashrateRegFromReg(v uint32) HashrateReg {
	return HashrateReg{Hashrate24: v}
}

// Hashrate expands the measurement into plain hashes per second.
func (r HashrateReg) Hashrate() uint64 {
	return uint64(r.Hashrate24) << 24
}

// TicketMaskReg determines the difficulty threshold above which the
// chip reports solutions. The difficulty must be a power of 2, the
// hardware wants it as a bit mask.
type TicketMaskReg struct {
	ticketMask uint32
}

// NewTicketMaskReg builds the register for the given ASIC difficulty.
// The hardware representation is difficulty-1 with reversed bit order
// within every byte.
func NewTicketMaskReg(difficulty uint32) (TicketMaskReg, error) {
	if difficulty == 0 {
		return TicketMaskReg{}, fmt.Errorf("%w: difficulty must be at least 1", ErrDifficulty)
	}
	if difficulty&(difficulty-1) != 0 {
		return TicketMaskReg{}, fmt.Errorf("%w: difficulty %d is not a power of 2", ErrDifficulty, difficulty)
	}
	mask := bits.ReverseBytes32(bits.Reverse32(difficulty - 1))
	return TicketMaskReg{ticketMask: mask}, nil
}

// RegNum implements Register.
func (r TicketMaskReg) RegNum() uint8 {
	return TicketMaskRegNum
}

// ToReg implements Register.
func (r TicketMaskReg) ToReg() uint32 {
	return r.ticketMask
}

// TicketMaskRegFromReg decodes the register from its wire word.
func TicketMaskRegFromReg(v uint32) TicketMaskReg {
	return TicketMaskReg{ticketMask: v}
}

// Difficulty recovers the configured difficulty from the mask.
func (r TicketMaskReg) Difficulty() uint32 {
	return bits.Reverse32(bits.ReverseBytes32(r.ticketMask)) + 1
}

// TfSelector picks the function multiplexed onto the TF pin.
type TfSelector uint8

const (
	TfHashDoing        TfSelector = 0
	TfUartReceiving    TfSelector = 1
	TfUartTransmitting TfSelector = 2
	TfSCL0             TfSelector = 3
)

// RfSelector picks the function multiplexed onto the RF pin.
type RfSelector uint8

const (
	RfOpenDrain RfSelector = 0
	RfSDA0      RfSelector = 1
)

// I2cBusSelect picks which of the two sensor buses the chip bridges to
// when its pins run in I2C mode.
type I2cBusSelect uint8

const (
	I2cBusBottom I2cBusSelect = 0
	I2cBusMiddle I2cBusSelect = 1
)

// MiscCtrlReg is the catch all control register. It owns the baud rate
// divider, clock polarity, multi midstate mode and the pin multiplexing
// that turns selected chips into I2C bridges for the board sensors.
//
// Layout (only the bits this driver uses):
//
//	bit 30     when set, the chip keeps its current baud rate
//	bit 21     invert clock
//	bit 16     I2C bus select
//	bit 15     gate block
//	bit 14     RF pin function
//	bits 12:8  baud rate clock divider
//	bit 7      multi midstate mode (AsicBoost)
//	bits 6:5   TF pin function
type MiscCtrlReg struct {
	NotSetBaud bool
	InvClock   bool
	I2cBus     I2cBusSelect
	GateBlock  bool
	Rfs        RfSelector
	BaudDiv    uint8
	Mmen       bool
	Tfs        TfSelector
}

// NewMiscCtrlReg builds the register for normal hashing operation. The
// pin selectors start out in hashing mode, use SetI2c to flip them.
func NewMiscCtrlReg(notSetBaud, invClock bool, baudDiv int, gateBlock, mmen bool) (MiscCtrlReg, error) {
	if baudDiv < 0 || baudDiv > MaxBaudClockDiv {
		return MiscCtrlReg{}, fmt.Errorf("%w: clock divider %d out of range, maximum is %d",
			ErrBaudRate, baudDiv, MaxBaudClockDiv)
	}
	return MiscCtrlReg{
		NotSetBaud: notSetBaud,
		InvClock:   invClock,
		BaudDiv:    uint8(baudDiv),
		GateBlock:  gateBlock,
		Mmen:       mmen,
		Tfs:        TfHashDoing,
		Rfs:        RfOpenDrain,
		I2cBus:     I2cBusBottom,
	}, nil
}

// RegNum implements Register.
func (r MiscCtrlReg) RegNum() uint8 {
	return MiscCtrlRegNum
}

// ToReg implements Register.
func (r MiscCtrlReg) ToReg() uint32 {
	var v uint32
	if r.NotSetBaud {
		v |= 1 << 30
	}
	if r.InvClock {
		v |= 1 << 21
	}
	v |= uint32(r.I2cBus&0x01) << 16
	if r.GateBlock {
		v |= 1 << 15
	}
	v |= uint32(r.Rfs&0x01) << 14
	v |= uint32(r.BaudDiv&0x1f) << 8
	if r.Mmen {
		v |= 1 << 7
	}
	v |= uint32(r.Tfs&0x03) << 5
	return v
}

// MiscCtrlRegFromReg decodes the register from its wire word. Bits the
// layout does not name are dropped, writing back a decoded value
// normalizes them to zero.
func MiscCtrlRegFromReg(v uint32) MiscCtrlReg {
	return MiscCtrlReg{
		NotSetBaud: v&(1<<30) != 0,
		InvClock:   v&(1<<21) != 0,
		I2cBus:     I2cBusSelect(v >> 16 & 0x01),
		GateBlock:  v&(1<<15) != 0,
		Rfs:        RfSelector(v >> 14 & 0x01),
		BaudDiv:    uint8(v >> 8 & 0x1f),
		Mmen:       v&(1<<7) != 0,
		Tfs:        TfSelector(v >> 5 & 0x03),
	}
}

// SetI2c switches the pin multiplexing between hashing and I2C bridge
// mode. A nil bus returns the pins to hashing. Intended for read modify
// write cycles on a live chip, the baud rate is locked and the gate
// block cleared so the flip cannot disturb the chain link.
func (r *MiscCtrlReg) SetI2c(bus *I2cBusSelect) {
	r.NotSetBaud = true
	r.GateBlock = false
	if bus != nil {
		r.Tfs = TfSCL0
		r.Rfs = RfSDA0
		r.I2cBus = *bus
	} else {
		r.Tfs = TfHashDoing
		r.Rfs = RfOpenDrain
		r.I2cBus = I2cBusBottom
	}
}

// I2cControlReg drives the I2C master embedded in the chip. A
// transaction starts by writing the register with DoCommand set and
// completes once a readback shows Busy clear.
//
// Layout:
//
//	bit 31     controller busy
//	bit 24     execute the command
//	bits 23:16 device address, 8 bit form, odd addresses write
//	bits 15:8  device register
//	bits 7:0   data byte
type I2cControlReg struct {
	Busy      bool
	DoCommand bool
	Addr      uint8
	Reg       uint8
	Data      uint8
}

// RegNum implements Register.
func (r I2cControlReg) RegNum() uint8 {
	return I2cControlRegNum
}

// ToReg implements Register.
func (r I2cControlReg) ToReg() uint32 {
	var v uint32
	if r.Busy {
		v |= 1 << 31
	}
	if r.DoCommand {
		v |= 1 << 24
	}
	v |= uint32(r.Addr) << 16
	v |= uint32(r.Reg) << 8
	v |= uint32(r.Data)
	return v
}

// I2cControlRegFromReg decodes the register from its wire word.
func I2cControlRegFromReg(v uint32) I2cControlReg {
	return I2cControlReg{
		Busy:      v&(1<<31) != 0,
		DoCommand: v&(1<<24) != 0,
		Addr:      uint8(v >> 16),
		Reg:       uint8(v >> 8),
		Data:      uint8(v),
	}
}

// PllReg configures the frequency synthesizer. The crystal clock is
// multiplied by FbDiv and divided by the three remaining dividers.
//
// Layout:
//
//	bits 23:16 feedback divider
//	bits 11:8  reference divider
//	bits 7:4   first post divider
//	bits 3:0   second post divider
type PllReg struct {
	FbDiv    uint8
	RefDiv   uint8
	PostDiv1 uint8
	PostDiv2 uint8
}

// RegNum implements Register.
func (r PllReg) RegNum() uint8 {
	return PllRegNum
}

// ToReg implements Register.
func (r PllReg) ToReg() uint32 {
	return uint32(r.FbDiv)<<16 | uint32(r.RefDiv&0x0f)<<8 |
		uint32(r.PostDiv1&0x0f)<<4 | uint32(r.PostDiv2&0x0f)
}

// PllRegFromReg decodes the register from its wire word.
func PllRegFromReg(v uint32) PllReg {
	return PllReg{
		FbDiv:    uint8(v >> 16),
		RefDiv:   uint8(v >> 8 & 0x0f),
		PostDiv1: uint8(v >> 4 & 0x0f),
		PostDiv2: uint8(v & 0x0f),
	}
}

// Frequency simulates the divider chain and returns the output
// frequency in Hz for the given crystal frequency.
func (r PllReg) Frequency(xtalHz uint64) uint64 {
	return xtalHz * uint64(r.FbDiv) / uint64(r.RefDiv) / uint64(r.PostDiv1) / uint64(r.PostDiv2)
}
