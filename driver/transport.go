package driver

import (
	"errors"
	"io"
	"time"
)

// The transport owns everything the command codec leaves out: the
// trailing CRC5 checksum of outgoing frames and the framing of the
// upstream byte flow.
//
// Upstream frames are 7 bytes. The first 6 carry the payload, the last
// byte holds the CRC5 of the payload in its low 5 bits and a flag in
// bit 7 that separates nonce responses from command responses, the two
// arrive on separate paths like the FIFOs of an S9 controller board.

const (
	frameSize        = 7
	framePayloadSize = 6
	nonceFlagBit     = 0x80
)

var (
	ErrResponseTimeout = errors.New("driver: timed out waiting for a command response")
	ErrTransportClosed = errors.New("driver: transport closed")
)

// NonceFrame is a solution reported by a chip. The work id carries the
// midstate index in its low bits.
type NonceFrame struct {
	Nonce  uint32
	WorkID uint8
}

//Transport moves frames between a chain driver and the chip bus
type Transport interface {
	// SendCommand appends the checksum and writes one command frame.
	SendCommand(frame []byte) error
	// ReadCmdResponse returns the next command response payload,
	// checksum verified and stripped, or ErrResponseTimeout.
	ReadCmdResponse(timeout time.Duration) ([]byte, error)
	// Nonces delivers solution frames as they arrive.
	Nonces() <-chan NonceFrame
	// SetBaudRate reconfigures the host side of the link.
	SetBaudRate(baud uint) error
	Close() error
}

// crc5 implements the 5 bit checksum of the chain bus, polynomial
// x^5+x^2+1, all ones initial value, fed MSB first.
func crc5(data []byte) byte {
	crc := byte(0x1f)
	for _, b := range data {
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			bit := byte(0)
			if b&mask != 0 {
				bit = 1
			}
			fb := (crc >> 4 & 1) ^ bit
			crc = crc << 1 & 0x1f
			if fb != 0 {
				crc ^= 0x05
			}
		}
	}
	return crc
}

// scanFrames is a bufio.SplitFunc yielding checksum clean 7 byte
// frames. Bytes that cannot start a valid frame are skipped one at a
// time until the scanner locks back onto the frame grid.
func scanFrames(data []byte, atEOF bool) (int, []byte, error) {
	offset := 0
	for len(data)-offset >= frameSize {
		candidate := data[offset : offset+frameSize]
		if crc5(candidate[:framePayloadSize]) == candidate[framePayloadSize]&0x1f {
			return offset + frameSize, candidate, nil
		}
		offset++
	}
	if atEOF {
		return 0, nil, io.EOF
	}
	// discard leading bytes already ruled out, wait for the rest
	return offset, nil, nil
}
