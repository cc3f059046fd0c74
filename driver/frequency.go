package driver

// FrequencySettings holds the target frequency of every chip on a
// chain. Chips can run at individual frequencies, per chip tuning digs
// more hashrate out of boards with weak spots.
type FrequencySettings struct {
	Chip []uint64
}

//NewFrequencySettings starts every chip at the same frequency
func NewFrequencySettings(chipCount int, freqHz uint64) *FrequencySettings {
	fs := &FrequencySettings{Chip: make([]uint64, chipCount)}
	fs.SetAll(freqHz)
	return fs
}

//SetAll assigns one frequency to every chip
func (f *FrequencySettings) SetAll(freqHz uint64) {
	for i := range f.Chip {
		f.Chip[i] = freqHz
	}
}

//SetChipCount resizes after enumeration, new chips pick up the average
func (f *FrequencySettings) SetChipCount(count int) {
	if count <= len(f.Chip) {
		f.Chip = f.Chip[:count]
		return
	}
	pad := f.Avg()
	for len(f.Chip) < count {
		f.Chip = append(f.Chip, pad)
	}
}

//Total sums the chip frequencies, an upper bound proxy for chain speed
func (f *FrequencySettings) Total() uint64 {
	var sum uint64
	for _, freq := range f.Chip {
		sum += freq
	}
	return sum
}

//Avg returns the mean chip frequency
func (f *FrequencySettings) Avg() uint64 {
	if len(f.Chip) == 0 {
		return 0
	}
	return f.Total() / uint64(len(f.Chip))
}

//Min returns the slowest chip frequency
func (f *FrequencySettings) Min() uint64 {
	if len(f.Chip) == 0 {
		return 0
	}
	min := f.Chip[0]
	for _, freq := range f.Chip[1:] {
		if freq < min {
			min = freq
		}
	}
	return min
}

//Max returns the fastest chip frequency
func (f *FrequencySettings) Max() uint64 {
	if len(f.Chip) == 0 {
		return 0
	}
	max := f.Chip[0]
	for _, freq := range f.Chip[1:] {
		if freq > max {
			max = freq
		}
	}
	return max
}
