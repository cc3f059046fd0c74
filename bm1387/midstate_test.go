package bm1387

import "testing"

func TestMidstateCount(t *testing.T) {
	tests := []struct {
		count   int
		log2    int
		mask    int
		regCode uint32
	}{
		{1, 0, 0x00, 0},
		{2, 1, 0x01, 1},
		{4, 2, 0x03, 2},
	}
	for _, tt := range tests {
		m := NewMidstateCount(tt.count)
		if m.Count() != tt.count {
			t.Errorf("midstate count %d reports Count %d", tt.count, m.Count())
		}
		if m.Log2() != tt.log2 {
			t.Errorf("midstate count %d reports Log2 %d, want %d", tt.count, m.Log2(), tt.log2)
		}
		if m.Mask() != tt.mask {
			t.Errorf("midstate count %d reports Mask 0x%02x, want 0x%02x", tt.count, m.Mask(), tt.mask)
		}
		if m.RegCode() != tt.regCode {
			t.Errorf("midstate count %d reports RegCode %d, want %d", tt.count, m.RegCode(), tt.regCode)
		}
	}
}

func TestUnsupportedMidstateCountPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("midstate count 3 did not panic")
		}
	}()
	NewMidstateCount(3)
}
