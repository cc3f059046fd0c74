package bm1387

import "fmt"

// MidstateCount represents the number of midstates a chip hashes in
// parallel per work item. The hardware supports 1, 2 or 4, any other
// count is a programming error and panics.
type MidstateCount struct {
	log2 uint
}

// NewMidstateCount validates and wraps a midstate count.
func NewMidstateCount(count int) MidstateCount {
	switch count {
	case 1:
		return MidstateCount{log2: 0}
	case 2:
		return MidstateCount{log2: 1}
	case 4:
		return MidstateCount{log2: 2}
	}
	panic(fmt.Sprintf("bm1387: unsupported midstate count %d", count))
}

// Count returns the plain number of midstates.
func (m MidstateCount) Count() int {
	return 1 << m.log2
}

// Log2 returns the bit width of the midstate index within a work id.
func (m MidstateCount) Log2() int {
	return int(m.log2)
}

// Mask isolates the midstate index bits of a work id.
func (m MidstateCount) Mask() int {
	return (1 << m.log2) - 1
}

// RegCode returns the encoding used by the work interface control
// register, which stores the count as its logarithm.
func (m MidstateCount) RegCode() uint32 {
	return uint32(m.log2)
}
