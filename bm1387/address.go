package bm1387

import "fmt"

// ChipAddress selects the recipient of a command, either every chip on
// the chain at once or a single one by its position.
type ChipAddress struct {
	all   bool
	index int
}

// AllChips is the broadcast address.
var AllChips = ChipAddress{all: true}

// OneChip addresses the chip at the given chain position, counted from
// the chip closest to the board connector.
func OneChip(index int) ChipAddress {
	return ChipAddress{index: index}
}

// IsBroadcast tells whether the address targets the whole chain.
func (a ChipAddress) IsBroadcast() bool {
	return a.all
}

// HwAddr converts the address into the 8 bit hardware form carried in
// command headers. Chips sit 4 addresses apart, broadcast is 0. Panics
// when the position does not map into a byte, such an address can never
// have been produced by chain enumeration.
func (a ChipAddress) HwAddr() byte {
	if a.all {
		return 0
	}
	hw := a.index * 4
	if hw < 0 || hw > 0xff {
		panic(fmt.Sprintf("bm1387: chip position %d does not fit into a hardware address", a.index))
	}
	return byte(hw)
}

func (a ChipAddress) String() string {
	if a.all {
		return "broadcast"
	}
	return fmt.Sprintf("chip %d", a.index)
}

// CoreAddress identifies the chip and core a nonce came from. Both
// coordinates are recovered from bit fields of the nonce itself.
type CoreAddress struct {
	Chip int
	Core int
}

// NewCoreAddress extracts the originating chip and core from a solution
// nonce.
func NewCoreAddress(nonce uint32) CoreAddress {
	return CoreAddress{
		Chip: int(nonce>>2) & 0x3f,
		Core: int(nonce>>24) & 0x7f,
	}
}
