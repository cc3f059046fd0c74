package bm1387

import (
	"fmt"
	"sort"
	"sync"
)

// MHz spells out frequency literals.
const MHz = 1000 * 1000

// The PLL reaches well outside the band the silicon survives, the
// search only keeps candidates within these bounds.
const (
	MinPllFrequencyHz = 100 * MHz
	MaxPllFrequencyHz = 1200 * MHz
)

// pllBinSizeHz is the granularity of the precomputed table. Candidate
// frequencies are rounded to the nearest bin and the best divider per
// bin survives.
const pllBinSizeHz = 1 * MHz

// PllFrequency pairs an achievable output frequency with the divider
// set that produces it.
type PllFrequency struct {
	Frequency uint64
	Reg       PllReg
}

func distance(x, y uint64) uint64 {
	if x >= y {
		return x - y
	}
	return y - x
}

// buildPllTable sweeps the divider space and returns the achievable
// frequencies in ascending order, one per megahertz bin. The loop
// nesting fixes which divider set wins a bin: an equally close
// candidate found later never replaces an earlier one.
func buildPllTable(xtalHz uint64) []PllFrequency {
	const (
		minBin = MinPllFrequencyHz / pllBinSizeHz
		maxBin = MaxPllFrequencyHz / pllBinSizeHz
	)
	var bins [maxBin + 1]*PllFrequency
	for postDiv1 := uint8(1); postDiv1 <= 7; postDiv1++ {
		for refDiv := uint8(1); refDiv <= 63; refDiv++ {
			for postDiv2 := uint8(1); postDiv2 <= postDiv1; postDiv2++ {
				for fbDiv := 32; fbDiv <= 127; fbDiv++ {
					reg := PllReg{
						FbDiv:    uint8(fbDiv),
						RefDiv:   refDiv,
						PostDiv1: postDiv1,
						PostDiv2: postDiv2,
					}
					freq := reg.Frequency(xtalHz)
					bin := (freq + pllBinSizeHz/2) / pllBinSizeHz
					if bin < minBin || bin > maxBin {
						continue
					}
					binFreq := bin * pllBinSizeHz
					if old := bins[bin]; old != nil &&
						distance(binFreq, old.Frequency) <= distance(binFreq, freq) {
						continue
					}
					bins[bin] = &PllFrequency{Frequency: freq, Reg: reg}
				}
			}
		}
	}
	table := make([]PllFrequency, 0, len(bins))
	for _, pf := range &bins {
		if pf != nil {
			table = append(table, *pf)
		}
	}
	return table
}

var (
	pllOnce  sync.Once
	pllTable []PllFrequency
)

// PllTable returns the shared divider table for the chip crystal,
// building it on first use. The table is immutable once built, callers
// must not modify it.
func PllTable() []PllFrequency {
	pllOnce.Do(func() {
		pllTable = buildPllTable(ChipOscClkHz)
	})
	return pllTable
}

// LookupFreq finds the closest achievable frequency for the requested
// one. Requests below the lowest or above the highest table entry fail,
// between entries the nearer neighbor wins and the lower one on a tie.
func LookupFreq(freqHz uint64) (PllFrequency, error) {
	return lookupFreq(PllTable(), freqHz)
}

func lookupFreq(table []PllFrequency, freqHz uint64) (PllFrequency, error) {
	i := sort.Search(len(table), func(i int) bool {
		return table[i].Frequency >= freqHz
	})
	if i < len(table) && table[i].Frequency == freqHz {
		return table[i], nil
	}
	if i == 0 || i == len(table) {
		return PllFrequency{}, fmt.Errorf("%w: %d Hz", ErrFreqOutOfRange, freqHz)
	}
	lower, upper := table[i-1], table[i]
	if distance(freqHz, lower.Frequency) <= distance(freqHz, upper.Frequency) {
		return lower, nil
	}
	return upper, nil
}
