package bm1387

import (
	"bytes"
	"testing"
)

func marshal(t *testing.T, c Command) []byte {
	t.Helper()
	b, err := c.MarshalBinary()
	if err != nil {
		t.Fatalf("command serialization failed: %v", err)
	}
	return b
}

func TestSetConfigPllFrame(t *testing.T) {
	pll := PllReg{FbDiv: 0x68, RefDiv: 2, PostDiv1: 2, PostDiv2: 1}
	cmd := NewSetConfigCmd(OneChip(9), pll.RegNum(), pll.ToReg())
	want := []byte{0x48, 0x09, 0x24, 0x0c, 0x00, 0x68, 0x02, 0x21}
	if got := marshal(t, cmd); !bytes.Equal(got, want) {
		t.Errorf("PLL write frame is %x, want %x", got, want)
	}
}

func TestSetConfigTicketMaskFrame(t *testing.T) {
	tm, err := NewTicketMaskReg(64)
	if err != nil {
		t.Fatalf("difficulty 64 rejected: %v", err)
	}
	cmd := NewSetConfigCmd(AllChips, tm.RegNum(), tm.ToReg())
	want := []byte{0x58, 0x09, 0x00, 0x18, 0x00, 0x00, 0x00, 0xfc}
	if got := marshal(t, cmd); !bytes.Equal(got, want) {
		t.Errorf("ticket mask frame is %x, want %x", got, want)
	}
}

func TestSetConfigMiscCtrlFrame(t *testing.T) {
	mc, err := NewMiscCtrlReg(true, true, MaxBaudClockDiv, true, true)
	if err != nil {
		t.Fatalf("misc ctrl construction failed: %v", err)
	}
	cmd := NewSetConfigCmd(AllChips, mc.RegNum(), mc.ToReg())
	want := []byte{0x58, 0x09, 0x00, 0x1c, 0x40, 0x20, 0x9a, 0x80}
	if got := marshal(t, cmd); !bytes.Equal(got, want) {
		t.Errorf("misc ctrl frame is %x, want %x", got, want)
	}
}

func TestGetStatusFrame(t *testing.T) {
	cmd := NewGetStatusCmd(AllChips, GetAddressRegNum)
	want := []byte{0x54, 0x05, 0x00, 0x00}
	if got := marshal(t, cmd); !bytes.Equal(got, want) {
		t.Errorf("status read frame is %x, want %x", got, want)
	}
}

func TestInactivateFrame(t *testing.T) {
	cmd := NewInactivateFromChainCmd()
	want := []byte{0x55, 0x05, 0x00, 0x00}
	if got := marshal(t, cmd); !bytes.Equal(got, want) {
		t.Errorf("inactivate frame is %x, want %x", got, want)
	}
}

func TestSetChipAddressFrame(t *testing.T) {
	cmd := NewSetChipAddressCmd(OneChip(1))
	want := []byte{0x41, 0x05, 0x04, 0x00}
	if got := marshal(t, cmd); !bytes.Equal(got, want) {
		t.Errorf("address assignment frame is %x, want %x", got, want)
	}
}

func TestSetChipAddressRejectsBroadcast(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("broadcast address assignment did not panic")
		}
	}()
	NewSetChipAddressCmd(AllChips)
}

func TestUnmarshalCmdResponse(t *testing.T) {
	resp, err := UnmarshalCmdResponse([]byte{0x13, 0x87, 0x90, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatalf("response decode failed: %v", err)
	}
	if resp.Value != 0x13879000 {
		t.Errorf("response value is 0x%08x, want 0x13879000", resp.Value)
	}
	if resp.ChipAddr != 0 || resp.RegNum != 0 {
		t.Errorf("trailing bytes decoded wrong: %+v", resp)
	}
	if _, err := UnmarshalCmdResponse([]byte{0x13, 0x87}); err == nil {
		t.Error("short response did not fail")
	}
}
