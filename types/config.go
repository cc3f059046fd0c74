package types

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// FrequencyHz is a chip frequency in Hz. Config files state frequencies
// in MHz, DecodeFrequencyHook scales them while unmarshalling.
type FrequencyHz uint64

// MHz formats the frequency the way operators write it.
func (f FrequencyHz) MHz() string {
	return fmt.Sprintf("%.1f MHz", float64(f)/1e6)
}

// ChainConfig describes one hashboard chain in the config file.
type ChainConfig struct {
	// Device is the serial device of the chain bus.
	Device string `json:"device"`
	// Baudrate of the local UART at startup. The chips boot at their
	// own fixed init rate, this is the host side match for it.
	Baudrate uint `json:"baudrate"`
	// ChipCount the board is expected to carry. Enumeration measures
	// the real count, a mismatch is logged but not fatal.
	ChipCount int `json:"chipcount"`
	// Frequency every chip gets programmed to, MHz in the file.
	Frequency FrequencyHz `json:"frequency"`
	// AsicDifficulty the chips filter solutions with, a power of 2.
	AsicDifficulty uint64 `json:"asicdifficulty"`
	// Midstates per work item, 1, 2 or 4.
	Midstates int `json:"midstates"`
	// ResetPin and PlugPin index into the boardman pin lists.
	ResetPin int `json:"resetpin"`
	PlugPin  int `json:"plugpin"`
}

// DecodeFrequencyHook converts plain MHz numbers from the config file
// into FrequencyHz fields. Wire it into viper.UnmarshalKey via
// viper.DecodeHook.
func DecodeFrequencyHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(FrequencyHz(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return FrequencyHz(v) * 1e6, nil
		case int64:
			return FrequencyHz(v) * 1e6, nil
		case float64:
			return FrequencyHz(v * 1e6), nil
		default:
			return data, fmt.Errorf("cannot decode %v (%s) as a frequency", data, from)
		}
	}
}
