package bm1387

import (
	"encoding/binary"
	"fmt"
)

// Commands travel on the chain bus as small big endian frames. Every
// frame starts with a 3 byte header and ends with a checksum byte that
// the transport computes, the codec only accounts for its length.

// cmdTypeVilCtl tags control commands in the upper bits of the command
// byte.
const cmdTypeVilCtl = 0x02

// Command opcodes.
const (
	cmdSetChipAddress uint8 = 0x01
	cmdGetStatus      uint8 = 0x04
	cmdInactivate     uint8 = 0x05
	cmdSetConfig      uint8 = 0x08
)

// ctlChecksumSize is the checksum byte the transport appends, included
// in the length field of every header.
const ctlChecksumSize = 1

// Packed frame sizes without the checksum byte.
const (
	setConfigCmdSize      = 8
	getStatusCmdSize      = 4
	setChipAddressCmdSize = 4
	inactivateCmdSize     = 4
)

// Command is a chip command ready for serialization. MarshalBinary
// never fails for the commands in this package, the error return exists
// to satisfy encoding.BinaryMarshaler.
type Command interface {
	MarshalBinary() ([]byte, error)
}

// CmdHeader is the common 3 byte preamble of every command.
type CmdHeader struct {
	cmd    uint8
	length uint8
	hwAddr uint8
}

func cmdByte(code uint8, toAll bool) uint8 {
	b := code & 0x0f
	if toAll {
		b |= 1 << 4
	}
	b |= cmdTypeVilCtl << 5
	return b
}

// newCmdHeader fills the header for a frame of packedSize bytes. The
// length field covers the whole frame including the trailing checksum.
func newCmdHeader(code uint8, packedSize int, addr ChipAddress) CmdHeader {
	return CmdHeader{
		cmd:    cmdByte(code, addr.IsBroadcast()),
		length: uint8(packedSize + ctlChecksumSize),
		hwAddr: addr.HwAddr(),
	}
}

// SetConfigCmd writes a 32 bit value into a chip register.
type SetConfigCmd struct {
	Header   CmdHeader
	Register uint8
	Value    uint32
}

// NewSetConfigCmd builds a register write for one chip or the whole
// chain.
func NewSetConfigCmd(addr ChipAddress, register uint8, value uint32) SetConfigCmd {
	return SetConfigCmd{
		Header:   newCmdHeader(cmdSetConfig, setConfigCmdSize, addr),
		Register: register,
		Value:    value,
	}
}

// MarshalBinary implements Command.
func (c SetConfigCmd) MarshalBinary() ([]byte, error) {
	b := make([]byte, setConfigCmdSize)
	b[0] = c.Header.cmd
	b[1] = c.Header.length
	b[2] = c.Header.hwAddr
	b[3] = c.Register
	binary.BigEndian.PutUint32(b[4:], c.Value)
	return b, nil
}

// GetStatusCmd asks one chip or every chip to report a register. Each
// addressed chip answers with a CmdResponse.
type GetStatusCmd struct {
	Header   CmdHeader
	Register uint8
}

// NewGetStatusCmd builds a register read.
func NewGetStatusCmd(addr ChipAddress, register uint8) GetStatusCmd {
	return GetStatusCmd{
		Header:   newCmdHeader(cmdGetStatus, getStatusCmdSize, addr),
		Register: register,
	}
}

// MarshalBinary implements Command.
func (c GetStatusCmd) MarshalBinary() ([]byte, error) {
	return []byte{c.Header.cmd, c.Header.length, c.Header.hwAddr, c.Register}, nil
}

// SetChipAddressCmd assigns a hardware address to the next active chip
// on the chain. Enumeration sends one per chip, in chain order, after
// an InactivateFromChainCmd round.
type SetChipAddressCmd struct {
	Header CmdHeader
}

// NewSetChipAddressCmd builds the assignment for the given chain
// position. Address assignment is inherently per chip, a broadcast
// address is a programming error and panics.
func NewSetChipAddressCmd(addr ChipAddress) SetChipAddressCmd {
	if addr.IsBroadcast() {
		panic("bm1387: chip address assignment cannot be broadcast")
	}
	return SetChipAddressCmd{
		Header: newCmdHeader(cmdSetChipAddress, setChipAddressCmdSize, addr),
	}
}

// MarshalBinary implements Command.
func (c SetChipAddressCmd) MarshalBinary() ([]byte, error) {
	return []byte{c.Header.cmd, c.Header.length, c.Header.hwAddr, 0x00}, nil
}

// InactivateFromChainCmd disconnects all chips from the chain so that
// address assignment can start from a clean slate. Always broadcast.
type InactivateFromChainCmd struct {
	Header CmdHeader
}

// NewInactivateFromChainCmd builds the broadcast inactivation.
func NewInactivateFromChainCmd() InactivateFromChainCmd {
	return InactivateFromChainCmd{
		Header: newCmdHeader(cmdInactivate, inactivateCmdSize, AllChips),
	}
}

// MarshalBinary implements Command.
func (c InactivateFromChainCmd) MarshalBinary() ([]byte, error) {
	return []byte{c.Header.cmd, c.Header.length, c.Header.hwAddr, 0x00}, nil
}

// CmdResponseSize is the payload size of a command response after the
// transport has stripped and verified the checksum.
const CmdResponseSize = 6

// CmdResponse is a chip's answer to a GetStatusCmd. The two trailing
// bytes are always zero on BM1387, newer chip generations report their
// address and the register number there, so the decoder keeps them.
type CmdResponse struct {
	Value    uint32
	ChipAddr uint8
	RegNum   uint8
}

// UnmarshalCmdResponse decodes a response payload.
func UnmarshalCmdResponse(b []byte) (CmdResponse, error) {
	if len(b) != CmdResponseSize {
		return CmdResponse{}, fmt.Errorf("bm1387: command response is %d bytes, want %d", len(b), CmdResponseSize)
	}
	return CmdResponse{
		Value:    binary.BigEndian.Uint32(b[:4]),
		ChipAddr: b[4],
		RegNum:   b[5],
	}, nil
}
