// Package bm1387 implements the control protocol of BM1387 mining chips
// as used on Antminer S9 class hashboards. It covers chip addressing,
// the command set transmitted over the shared chain bus, the layout of
// the chip configuration registers and the PLL divider search that maps
// requested frequencies onto achievable ones.
//
// The package is a pure codec. Checksumming and moving bytes to and
// from the chain is the transport's job, see the driver package.
package bm1387

// Chips respond to an 8 bit hardware address with a stride of 4, which
// caps the chain length at 64 chips. S9 hashboards ship with 63.
const (
	MaxChipsOnChain      = 64
	ExpectedChipsOnChain = 63
)

// NumCoresOnChip is the number of physical hashing cores. The address
// space the cores live in is larger since core addresses are not
// consecutive.
const (
	NumCoresOnChip   = 114
	CoreAdrSpaceSize = 128
)

// ChipOscClkHz is the crystal oscillator frequency feeding every chip,
// the reference for both the PLL and the baud rate generator.
const ChipOscClkHz = 25000000
