// Package statistics keeps short term sliding windows over the nonce
// flow of a hash chain, one sample per second for up to an hour.
package statistics

// windowSize is one hour of per second samples.
const windowSize = 3600

// Standard reporting windows in seconds.
const (
	Window1Min  = 60
	Window5Min  = 300
	Window15Min = 900
)

// HashRate is a ring of per second hash counts. The driver's statistics
// loop pushes one sample per tick, reporting sums them back out.
type HashRate struct {
	dataSeries [windowSize]float64
	currentPos int
}

// Add appends the hash count of the last second.
func (hr *HashRate) Add(num float64) {
	hr.currentPos = (hr.currentPos + 1) % windowSize
	hr.dataSeries[hr.currentPos] = num
}

// RecentNSum sums the most recent n samples. Windows longer than the
// ring wrap onto themselves, callers stay within windowSize.
func (hr *HashRate) RecentNSum(recentn int) (sum float64) {
	pos := 0
	for i := 0; i < recentn; i++ {
		pos = hr.currentPos - i
		if pos < 0 {
			pos += windowSize
		}
		sum += hr.dataSeries[pos]
	}
	return
}

// WindowRate converts the last seconds samples into an average rate per
// second.
func (hr *HashRate) WindowRate(seconds int) float64 {
	if seconds <= 0 {
		return 0
	}
	return hr.RecentNSum(seconds) / float64(seconds)
}
