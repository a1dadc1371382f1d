// Package cache provides the set-associative cache controllers that sit
// between the pipeline and backing memory.
package cache

import (
	"github.com/sarchlab/r5sim/emu"
	"github.com/sarchlab/r5sim/timing/latency"
)

// BackingPort is the memory-side port of a cache instance. It carries a
// single in-flight request: Ready gates acceptance, Valid marks
// returned read data. Requests complete in FIFO order with finite,
// model-defined latency.
type BackingPort interface {
	// Ready reports whether the port can accept a request this cycle.
	Ready() bool
	// IssueRead accepts an aligned-word read. Precondition: Ready.
	IssueRead(addr uint32)
	// IssueWrite accepts an aligned-word write. Precondition: Ready.
	IssueWrite(addr uint32, data uint32)
	// Valid reports whether read data is available this cycle.
	Valid() bool
	// ReadData returns the data for the completed read. Only
	// meaningful while Valid is true.
	ReadData() uint32
	// Tick advances the port by one cycle.
	Tick()
}

// MemoryPort adapts emu.Memory to the BackingPort protocol with
// latencies drawn from a latency.Model.
type MemoryPort struct {
	memory *emu.Memory
	model  *latency.Model

	busy      bool
	isRead    bool
	remaining uint64
	addr      uint32
	valid     bool
	data      uint32
}

// NewMemoryPort creates a backing port over the given memory.
func NewMemoryPort(memory *emu.Memory, model *latency.Model) *MemoryPort {
	if model == nil {
		model = latency.NewModel()
	}
	return &MemoryPort{
		memory: memory,
		model:  model,
	}
}

// Ready reports whether the port can accept a request this cycle.
func (p *MemoryPort) Ready() bool {
	return !p.busy
}

// IssueRead accepts an aligned-word read request.
func (p *MemoryPort) IssueRead(addr uint32) {
	p.busy = true
	p.isRead = true
	p.addr = addr
	p.remaining = p.model.NextReadLatency()
}

// IssueWrite accepts an aligned-word write request. The write is
// applied to memory at acceptance; FIFO ordering holds because only
// one request is ever in flight.
func (p *MemoryPort) IssueWrite(addr uint32, data uint32) {
	p.memory.Write32(addr, data)
	p.busy = true
	p.isRead = false
	p.remaining = p.model.WriteLatency()
}

// Valid reports whether read data is available this cycle.
func (p *MemoryPort) Valid() bool {
	return p.valid
}

// ReadData returns the data for the completed read.
func (p *MemoryPort) ReadData() uint32 {
	return p.data
}

// Tick advances the port by one cycle.
func (p *MemoryPort) Tick() {
	p.valid = false
	if !p.busy {
		return
	}
	p.remaining--
	if p.remaining > 0 {
		return
	}
	p.busy = false
	if p.isRead {
		p.data = p.memory.Read32(p.addr)
		p.valid = true
	}
}

// Reset drops any in-flight request.
func (p *MemoryPort) Reset() {
	p.busy = false
	p.valid = false
	p.remaining = 0
	p.model.Reset()
}
