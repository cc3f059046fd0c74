package types

type HardwareStats int

const (
	Initializing HardwareStats = iota + 1
	Running
	NoResponse
	Stopped
)

// ChainStates is the status block one hash chain reports to the API.
type ChainStates struct {
	DriverName     string        `json:"name"`
	Status         HardwareStats `json:"status"`
	ChipCount      int           `json:"chipcount"`
	AsicDifficulty uint64        `json:"asicdifficulty"`
	// Frequency strings are preformatted, the UI shows them as is.
	Frequency string `json:"frequency"`
	// NonceNum and Hashrate hold 1, 5 and 15 minute windows.
	NonceNum [3]float64 `json:"noncenum"`
	Hashrate [3]float64 `json:"hashrate"`
	// RegHashrate is the chain total of the self measured per chip
	// hashrate registers.
	RegHashrate uint64       `json:"reghashrate"`
	Valid       uint64       `json:"valid"`
	Errors      uint64       `json:"errors"`
	UpTime      int64        `json:"uptime"`
	ChipStates  []ChipStates `json:"chips,omitempty"`
}

// ChipStates is the per chip share of ChainStates.
type ChipStates struct {
	Valid     uint64 `json:"valid"`
	Errors    uint64 `json:"errors"`
	Frequency string `json:"frequency"`
}

// MinerStatus aggregates every chain for the status endpoint.
type MinerStatus struct {
	Devs      []*ChainStates `json:"devs"`
	MinerDown bool           `json:"minerDown"`
	MinerUp   bool           `json:"minerUp"`
	Time      int64          `json:"time"`
}

type StatusEnvelope struct {
	Status *MinerStatus `json:"status"`
}
