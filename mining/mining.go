package mining

import (
	"time"

	"go.uber.org/zap"
)

//ChainArgs carries everything a chain driver needs to come up
type ChainArgs struct {
	Device         string
	Baudrate       uint
	ChipCount      int
	FrequencyHz    uint64
	AsicDifficulty uint64
	Midstates      int
	ResetPin       int
	PlugPin        int
	PollDelay      time.Duration
	NonceTimeout   time.Duration
	Logger         *zap.Logger
}
