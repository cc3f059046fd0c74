package types

import (
	"testing"

	"github.com/mitchellh/mapstructure"
)

func decodeChain(t *testing.T, raw map[string]interface{}) ChainConfig {
	t.Helper()
	var cfg ChainConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       DecodeFrequencyHook(),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		t.Fatalf("decoder construction failed: %v", err)
	}
	if err := dec.Decode(raw); err != nil {
		t.Fatalf("chain config decode failed: %v", err)
	}
	return cfg
}

func TestDecodeFrequencyHook(t *testing.T) {
	cfg := decodeChain(t, map[string]interface{}{
		"device":         "/dev/ttyS1",
		"frequency":      650,
		"asicdifficulty": 64,
	})
	if cfg.Frequency != 650000000 {
		t.Errorf("650 MHz decoded to %d Hz, want 650000000", cfg.Frequency)
	}
	if cfg.Device != "/dev/ttyS1" || cfg.AsicDifficulty != 64 {
		t.Errorf("plain fields decoded wrong: %+v", cfg)
	}

	cfg = decodeChain(t, map[string]interface{}{"frequency": 643.75})
	if cfg.Frequency != 643750000 {
		t.Errorf("643.75 MHz decoded to %d Hz, want 643750000", cfg.Frequency)
	}
}

func TestFrequencyPrettyPrint(t *testing.T) {
	if got := FrequencyHz(650000000).MHz(); got != "650.0 MHz" {
		t.Errorf("pretty frequency is %q, want \"650.0 MHz\"", got)
	}
	if got := FrequencyHz(216071428).MHz(); got != "216.1 MHz" {
		t.Errorf("pretty frequency is %q, want \"216.1 MHz\"", got)
	}
}
