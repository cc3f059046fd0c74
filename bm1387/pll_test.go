package bm1387

import (
	"errors"
	"testing"
)

func TestPllDividerChain(t *testing.T) {
	tests := []struct {
		reg  PllReg
		freq uint64
		word uint32
	}{
		{PllReg{FbDiv: 0x20, RefDiv: 2, PostDiv1: 4, PostDiv2: 1}, 100000000, 0x200241},
		{PllReg{FbDiv: 0x78, RefDiv: 2, PostDiv1: 4, PostDiv2: 1}, 375000000, 0x780241},
		{PllReg{FbDiv: 0x45, RefDiv: 2, PostDiv1: 2, PostDiv2: 1}, 431250000, 0x450221},
		{PllReg{FbDiv: 0x70, RefDiv: 2, PostDiv1: 3, PostDiv2: 1}, 466666666, 0x700231},
		{PllReg{FbDiv: 0x50, RefDiv: 2, PostDiv1: 2, PostDiv2: 1}, 500000000, 0x500221},
		{PllReg{FbDiv: 0x5f, RefDiv: 2, PostDiv1: 2, PostDiv2: 1}, 593750000, 0x5f0221},
		{PllReg{FbDiv: 0x68, RefDiv: 2, PostDiv1: 2, PostDiv2: 1}, 650000000, 0x680221},
		{PllReg{FbDiv: 0x73, RefDiv: 2, PostDiv1: 2, PostDiv2: 1}, 718750000, 0x730221},
		{PllReg{FbDiv: 0x50, RefDiv: 2, PostDiv1: 1, PostDiv2: 1}, 1000000000, 0x500211},
		{PllReg{FbDiv: 0x5e, RefDiv: 2, PostDiv1: 1, PostDiv2: 1}, 1175000000, 0x5e0211},
	}
	for _, tt := range tests {
		if got := tt.reg.Frequency(ChipOscClkHz); got != tt.freq {
			t.Errorf("dividers %+v produce %d Hz, want %d", tt.reg, got, tt.freq)
		}
		if got := tt.reg.ToReg(); got != tt.word {
			t.Errorf("dividers %+v pack to 0x%08x, want 0x%08x", tt.reg, got, tt.word)
		}
	}
}

func TestPllTableShape(t *testing.T) {
	table := PllTable()
	if len(table) != 476 {
		t.Fatalf("divider table has %d entries, want 476", len(table))
	}
	for i, pf := range table {
		if pf.Frequency < MinPllFrequencyHz || pf.Frequency > MaxPllFrequencyHz {
			t.Errorf("entry %d at %d Hz is outside the allowed band", i, pf.Frequency)
		}
		if i > 0 && table[i-1].Frequency >= pf.Frequency {
			t.Errorf("table not strictly ascending at entry %d: %d then %d Hz",
				i, table[i-1].Frequency, pf.Frequency)
		}
		if got := pf.Reg.Frequency(ChipOscClkHz); got != pf.Frequency {
			t.Errorf("entry %d stores %d Hz but its dividers produce %d", i, pf.Frequency, got)
		}
	}
	if table[0].Frequency != MinPllFrequencyHz {
		t.Errorf("lowest entry is %d Hz, want %d", table[0].Frequency, uint64(MinPllFrequencyHz))
	}
	if got := table[0].Reg.ToReg(); got != 0x200811 {
		t.Errorf("lowest entry packs to 0x%06x, want 0x200811", got)
	}
	if table[len(table)-1].Frequency != MaxPllFrequencyHz {
		t.Errorf("highest entry is %d Hz, want %d", table[len(table)-1].Frequency, uint64(MaxPllFrequencyHz))
	}
	if got := table[len(table)-1].Reg.ToReg(); got != 0x300111 {
		t.Errorf("highest entry packs to 0x%06x, want 0x300111", got)
	}
}

func TestPllTableIsDeterministic(t *testing.T) {
	shared := PllTable()
	rebuilt := buildPllTable(ChipOscClkHz)
	if len(shared) != len(rebuilt) {
		t.Fatalf("shared table has %d entries, a rebuild %d", len(shared), len(rebuilt))
	}
	for i := range shared {
		if shared[i] != rebuilt[i] {
			t.Errorf("entry %d differs: %+v vs %+v", i, shared[i], rebuilt[i])
		}
	}
}

func TestLookupFreq(t *testing.T) {
	tests := []struct {
		request uint64
		want    uint64
		word    uint32
	}{
		{100000000, 100000000, 0x200811},
		{1200000000, 1200000000, 0x300111},
		{650000000, 650000000, 0x340211},
		{1000000000, 1000000000, 0x280111},
		{1033333333, 1033333333, 0x7c0311},
		{216000000, 216071428, 0x790e11},
		{217400000, 217307692, 0x710d11},
		{217700000, 217857142, 0x3d0711},
		{1081250000, 1075000000, 0x2b0111},
		{1081250001, 1087500000, 0x570211},
	}
	for _, tt := range tests {
		pf, err := LookupFreq(tt.request)
		if err != nil {
			t.Errorf("lookup of %d Hz failed: %v", tt.request, err)
			continue
		}
		if pf.Frequency != tt.want {
			t.Errorf("lookup of %d Hz found %d, want %d", tt.request, pf.Frequency, tt.want)
		}
		if got := pf.Reg.ToReg(); got != tt.word {
			t.Errorf("lookup of %d Hz found dividers 0x%06x, want 0x%06x", tt.request, got, tt.word)
		}
		if got := pf.Reg.Frequency(ChipOscClkHz); got != pf.Frequency {
			t.Errorf("lookup of %d Hz returned inconsistent dividers: %d vs %d",
				tt.request, got, pf.Frequency)
		}
	}
}

func TestLookupFreqOutOfRange(t *testing.T) {
	for _, request := range []uint64{0, 50000000, 99999999, 1200000001, 4000000000} {
		if _, err := LookupFreq(request); !errors.Is(err, ErrFreqOutOfRange) {
			t.Errorf("lookup of %d Hz returned %v, want ErrFreqOutOfRange", request, err)
		}
	}
}
