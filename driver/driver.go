package driver

import (
	"github.com/AGPFMiner/bmctl/counters"
	"github.com/AGPFMiner/bmctl/types"
)

const (
	Kilo = 1000
	Mega = 1000 * Kilo
	Giga = 1000 * Mega
	// FourGiga approximates the hashes behind one difficulty 1 share
	// for reporting.
	FourGiga = 4 * Giga
)

//Driver is the lifecycle and control surface of one hash chain
type Driver interface {
	Init(interface{})
	Start()
	Stop()
	GetDriverStats() types.ChainStates
	SetFrequency(freqHz uint64) error
	SetDifficulty(difficulty uint64) error
	CountersSnapshot() *counters.HashChain
	ResetCounters()
}
