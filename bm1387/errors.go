package bm1387

import "errors"

// Errors reported for invalid operator supplied configuration. Callers
// match them with errors.Is, the returned errors wrap these with detail.
var (
	ErrDifficulty     = errors.New("bm1387: invalid asic difficulty")
	ErrBaudRate       = errors.New("bm1387: unachievable baud rate")
	ErrFreqOutOfRange = errors.New("bm1387: frequency out of PLL range")
)
