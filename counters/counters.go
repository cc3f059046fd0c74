// Package counters accumulates nonce accounting for a running hash
// chain. Every valid nonce and every hardware error is attributed to
// the chip and core it came from, with totals kept per core, per chip
// and for the whole chain.
//
// The counters do no locking of their own. A driver owns one HashChain
// and serializes access, readers get a consistent view via Snapshot.
package counters

import (
	"time"

	"github.com/AGPFMiner/bmctl/bm1387"
)

// Core counts events for a single hashing core. Valid counts the
// difficulty weighted shares, Errors the raw number of bad solutions.
type Core struct {
	Valid  uint64
	Errors uint64
}

// Chip counts events for one chip, including the breakdown over its
// core address space. The array is indexed by core address, which is
// sparse, so some entries never see a nonce.
type Chip struct {
	Core   [bm1387.CoreAdrSpaceSize]Core
	Valid  uint64
	Errors uint64
}

// HashChain counts events for a whole chain over a measurement
// interval.
type HashChain struct {
	Chip   []Chip
	Valid  uint64
	Errors uint64
	// Started and Stopped delimit the measurement interval. A zero
	// Stopped means the interval is still open, snapshots pin it.
	Started time.Time
	Stopped time.Time
	// AsicDifficulty scales every valid share into the number of
	// difficulty 1 shares it represents.
	AsicDifficulty uint64
}

// NewHashChain creates counters for a chain of chipCount chips hashing
// at the given ASIC difficulty.
func NewHashChain(chipCount int, asicDifficulty uint64) *HashChain {
	return &HashChain{
		Chip:           make([]Chip, chipCount),
		Started:        time.Now(),
		AsicDifficulty: asicDifficulty,
	}
}

// ChipCount returns the number of chips currently tracked.
func (h *HashChain) ChipCount() int {
	return len(h.Chip)
}

// SetChipCount resizes the per chip breakdown, usually after chain
// enumeration discovered the real chip count. New chips start at zero.
func (h *HashChain) SetChipCount(count int) {
	chips := make([]Chip, count)
	copy(chips, h.Chip)
	h.Chip = chips
}

// AddValid records a share that met the ASIC difficulty, scaled to
// difficulty 1 shares on all three levels. A nonce that claims to come
// from a chip beyond the enumerated chain is dropped silently, chips
// emit such nonces while the chain is still being brought up.
func (h *HashChain) AddValid(addr bm1387.CoreAddress) {
	if addr.Chip >= len(h.Chip) {
		return
	}
	h.Valid += h.AsicDifficulty
	chip := &h.Chip[addr.Chip]
	chip.Valid += h.AsicDifficulty
	chip.Core[addr.Core].Valid += h.AsicDifficulty
}

// AddError records a solution that failed verification, attributed the
// same way as AddValid but always counting 1.
func (h *HashChain) AddError(addr bm1387.CoreAddress) {
	if addr.Chip >= len(h.Chip) {
		return
	}
	h.Errors++
	chip := &h.Chip[addr.Chip]
	chip.Errors++
	chip.Core[addr.Core].Errors++
}

// Reset zeroes every counter and restarts the measurement interval.
func (h *HashChain) Reset() {
	h.Valid = 0
	h.Errors = 0
	for i := range h.Chip {
		h.Chip[i] = Chip{}
	}
	h.Started = time.Now()
}

// Snapshot returns an independent deep copy with the measurement
// interval closed at the current time. The live counters keep running.
func (h *HashChain) Snapshot() *HashChain {
	snap := *h
	snap.Chip = make([]Chip, len(h.Chip))
	copy(snap.Chip, h.Chip)
	snap.Stopped = time.Now()
	return &snap
}

// Duration returns the length of the measurement interval, up to now
// for live counters and up to Stopped for snapshots.
func (h *HashChain) Duration() time.Duration {
	if h.Stopped.IsZero() {
		return time.Since(h.Started)
	}
	return h.Stopped.Sub(h.Started)
}
