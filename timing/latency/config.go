package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// MemTimingConfig holds timing values for the backing-memory ports.
type MemTimingConfig struct {
	// ReadLatency is the number of cycles between a backing read being
	// accepted and its data being valid. Default: 2 cycles.
	ReadLatency uint64 `json:"read_latency"`

	// WriteLatency is the number of cycles the port stays busy after
	// accepting a write. Default: 1 cycle (writes never stall a
	// well-formed requester).
	WriteLatency uint64 `json:"write_latency"`

	// JitterPeriod makes every Nth read slower, modeling refresh or
	// contention on the memory side. 0 disables jitter. Default: 0.
	JitterPeriod uint64 `json:"jitter_period"`

	// JitterExtra is the additional latency applied to jittered reads.
	// Default: 0.
	JitterExtra uint64 `json:"jitter_extra"`
}

// DefaultMemTimingConfig returns a MemTimingConfig with default values.
func DefaultMemTimingConfig() *MemTimingConfig {
	return &MemTimingConfig{
		ReadLatency:  2,
		WriteLatency: 1,
		JitterPeriod: 0,
		JitterExtra:  0,
	}
}

// LoadConfig loads a MemTimingConfig from a JSON file.
func LoadConfig(path string) (*MemTimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultMemTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a MemTimingConfig to a JSON file.
func (c *MemTimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that the latency values are usable.
func (c *MemTimingConfig) Validate() error {
	if c.ReadLatency == 0 {
		return fmt.Errorf("read_latency must be > 0")
	}
	if c.WriteLatency == 0 {
		return fmt.Errorf("write_latency must be > 0")
	}
	if c.JitterPeriod > 0 && c.JitterExtra == 0 {
		return fmt.Errorf("jitter_extra must be > 0 when jitter_period is set")
	}
	return nil
}

// Clone returns a copy of the MemTimingConfig.
func (c *MemTimingConfig) Clone() *MemTimingConfig {
	return &MemTimingConfig{
		ReadLatency:  c.ReadLatency,
		WriteLatency: c.WriteLatency,
		JitterPeriod: c.JitterPeriod,
		JitterExtra:  c.JitterExtra,
	}
}
