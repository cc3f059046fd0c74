package bm1387

import "fmt"

// The chip UART divides the crystal clock by a fixed base divider and
// then by a configurable 5 bit divider plus one.
const (
	ChipOscClkBaseBaudDiv = 8
	MaxBaudClockDiv       = 26
)

// Baud rates of the chain bus. Chips listen at the init rate after
// reset, the driver switches them to the target rate once the chain is
// configured.
const (
	InitChipBaudRate   = 115740
	TargetChipBaudRate = 1562500
)

// CalcBaudClockDiv computes the MiscCtrlReg clock divider for the
// requested baud rate. The divisor is truncating, the achieved rate can
// sit slightly above the requested one.
func CalcBaudClockDiv(baudRate int) (int, error) {
	if baudRate <= 0 {
		return 0, fmt.Errorf("%w: invalid baud rate %d", ErrBaudRate, baudRate)
	}
	div := ChipOscClkHz/ChipOscClkBaseBaudDiv/baudRate - 1
	if div < 0 || div > MaxBaudClockDiv {
		return 0, fmt.Errorf("%w: baud rate %d needs divider %d, supported range is 0 to %d",
			ErrBaudRate, baudRate, div, MaxBaudClockDiv)
	}
	return div, nil
}

// BaudRateForClockDiv is the inverse of CalcBaudClockDiv, it reports
// the rate a divider actually produces.
func BaudRateForClockDiv(div int) int {
	return ChipOscClkHz / ChipOscClkBaseBaudDiv / (div + 1)
}
