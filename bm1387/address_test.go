package bm1387

import "testing"

func TestHwAddr(t *testing.T) {
	if got := AllChips.HwAddr(); got != 0 {
		t.Errorf("broadcast hardware address is 0x%02x, want 0x00", got)
	}
	if got := OneChip(0).HwAddr(); got != 0 {
		t.Errorf("chip 0 hardware address is 0x%02x, want 0x00", got)
	}
	if got := OneChip(9).HwAddr(); got != 0x24 {
		t.Errorf("chip 9 hardware address is 0x%02x, want 0x24", got)
	}
	if got := OneChip(MaxChipsOnChain - 1).HwAddr(); got != 0xfc {
		t.Errorf("chip 63 hardware address is 0x%02x, want 0xfc", got)
	}
}

func TestHwAddrOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("hardware address beyond one byte did not panic")
		}
	}()
	OneChip(0x40).HwAddr()
}

func TestCoreAddressFromNonce(t *testing.T) {
	tests := []struct {
		nonce      uint32
		chip, core int
	}{
		{0xffffffff, 63, 127},
		{0x2a105d5d, 23, 42},
		{0xd25738d3, 52, 82},
		{0x47268d19, 6, 71},
		{0xa5e09223, 8, 37},
		{0xd57c1ce4, 57, 85},
		{0x40e55650, 20, 64},
	}
	for _, tt := range tests {
		addr := NewCoreAddress(tt.nonce)
		if addr.Chip != tt.chip || addr.Core != tt.core {
			t.Errorf("nonce 0x%08x decoded to chip %d core %d, want chip %d core %d",
				tt.nonce, addr.Chip, addr.Core, tt.chip, tt.core)
		}
	}
}
