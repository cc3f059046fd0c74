package bm1387

import (
	"errors"
	"testing"
)

func TestCalcBaudClockDiv(t *testing.T) {
	tests := []struct {
		baudRate int
		div      int
	}{
		{InitChipBaudRate, 26},
		{TargetChipBaudRate, 1},
		{3125000, 0},
	}
	for _, tt := range tests {
		div, err := CalcBaudClockDiv(tt.baudRate)
		if err != nil {
			t.Errorf("CalcBaudClockDiv(%d) failed: %v", tt.baudRate, err)
			continue
		}
		if div != tt.div {
			t.Errorf("CalcBaudClockDiv(%d) = %d, want %d", tt.baudRate, div, tt.div)
		}
	}
}

func TestCalcBaudClockDivRejectsUnachievable(t *testing.T) {
	// too slow for the divider range, faster than the clock allows,
	// and plain nonsense
	for _, baudRate := range []int{50000, 4000000, 0, -9600} {
		if _, err := CalcBaudClockDiv(baudRate); !errors.Is(err, ErrBaudRate) {
			t.Errorf("CalcBaudClockDiv(%d) returned %v, want ErrBaudRate", baudRate, err)
		}
	}
}

func TestBaudRateForClockDiv(t *testing.T) {
	tests := []struct {
		div      int
		baudRate int
	}{
		{26, 115740},
		{1, 1562500},
		{0, 3125000},
	}
	for _, tt := range tests {
		if got := BaudRateForClockDiv(tt.div); got != tt.baudRate {
			t.Errorf("BaudRateForClockDiv(%d) = %d, want %d", tt.div, got, tt.baudRate)
		}
	}
}

func TestBaudRoundTrip(t *testing.T) {
	for div := 0; div <= MaxBaudClockDiv; div++ {
		rate := BaudRateForClockDiv(div)
		back, err := CalcBaudClockDiv(rate)
		if err != nil {
			t.Errorf("rate %d from divider %d does not map back: %v", rate, div, err)
			continue
		}
		if back != div {
			t.Errorf("divider %d produces rate %d which maps back to divider %d", div, rate, back)
		}
	}
}
