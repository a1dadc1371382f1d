// Package latency provides memory timing models for cycle-level
// simulation. The backing-memory ports consult a Model for the latency
// of each request; values are configurable via MemTimingConfig.
package latency

// Model produces per-request latencies for a backing-memory port.
// Latencies are deterministic: a fixed base plus an optional periodic
// penalty, which keeps runs reproducible while still exercising
// variable-latency handling in the cache controllers.
type Model struct {
	config *MemTimingConfig
	reads  uint64
}

// NewModel creates a latency model with default timing values.
func NewModel() *Model {
	return &Model{config: DefaultMemTimingConfig()}
}

// NewModelWithConfig creates a latency model with custom timing values.
// Latencies below one cycle are raised to one; a port counting down a
// zero-cycle request would never complete it.
func NewModelWithConfig(config *MemTimingConfig) *Model {
	c := config.Clone()
	if c.ReadLatency == 0 {
		c.ReadLatency = 1
	}
	if c.WriteLatency == 0 {
		c.WriteLatency = 1
	}
	return &Model{config: c}
}

// NextReadLatency returns the latency of the next backing read and
// advances the jitter sequence.
func (m *Model) NextReadLatency() uint64 {
	lat := m.config.ReadLatency
	if m.config.JitterPeriod > 0 && m.reads%m.config.JitterPeriod == m.config.JitterPeriod-1 {
		lat += m.config.JitterExtra
	}
	m.reads++
	return lat
}

// WriteLatency returns the cycles the port stays busy after accepting
// a write.
func (m *Model) WriteLatency() uint64 {
	return m.config.WriteLatency
}

// Config returns the current timing configuration.
func (m *Model) Config() *MemTimingConfig {
	return m.config
}

// Reset restarts the jitter sequence.
func (m *Model) Reset() {
	m.reads = 0
}
