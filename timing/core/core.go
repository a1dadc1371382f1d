// Package core provides the cycle-level CPU core model. It wires the
// pipeline, the L1 caches, and their backing-memory ports together and
// exposes the retirement stream.
package core

import (
	"github.com/sarchlab/r5sim/emu"
	"github.com/sarchlab/r5sim/timing/cache"
	"github.com/sarchlab/r5sim/timing/latency"
	"github.com/sarchlab/r5sim/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// ICache and DCache hold per-cache statistics.
	ICache cache.Statistics
	DCache cache.Statistics
}

// CPI returns the cycles per instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// CoreOption is a functional option for configuring the Core.
type CoreOption func(*coreConfig)

type coreConfig struct {
	memTiming   *latency.MemTimingConfig
	cacheConfig cache.Config
	retireHook  func(emu.Commit)
	maxCommits  int
}

// WithMemTiming sets the backing-memory timing for both cache ports.
func WithMemTiming(config *latency.MemTimingConfig) CoreOption {
	return func(c *coreConfig) {
		c.memTiming = config
	}
}

// WithCacheConfig sets the geometry for both L1 caches.
func WithCacheConfig(config cache.Config) CoreOption {
	return func(c *coreConfig) {
		c.cacheConfig = config
	}
}

// WithRetireHook registers an additional callback for each retirement
// record, in program order.
func WithRetireHook(hook func(emu.Commit)) CoreOption {
	return func(c *coreConfig) {
		c.retireHook = hook
	}
}

// WithMaxCommits bounds the retained retirement history. 0 keeps
// everything.
func WithMaxCommits(n int) CoreOption {
	return func(c *coreConfig) {
		c.maxCommits = n
	}
}

// Core is a cycle-level model of a single in-order RV32I core with
// split L1 caches. Instruction fetch and data access go through
// independent cache instances, each with its own port to the shared
// backing memory.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	regFile *emu.RegFile
	memory  *emu.Memory

	commits    []emu.Commit
	maxCommits int
}

// NewCore creates a core over the given register file and memory.
func NewCore(regFile *emu.RegFile, memory *emu.Memory, opts ...CoreOption) *Core {
	config := &coreConfig{
		memTiming:   latency.DefaultMemTimingConfig(),
		cacheConfig: cache.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(config)
	}

	c := &Core{
		regFile:    regFile,
		memory:     memory,
		maxCommits: config.maxCommits,
	}

	icache := cache.New(config.cacheConfig,
		cache.NewMemoryPort(memory, latency.NewModelWithConfig(config.memTiming.Clone())))
	dcache := cache.New(config.cacheConfig,
		cache.NewMemoryPort(memory, latency.NewModelWithConfig(config.memTiming.Clone())))

	hook := config.retireHook
	c.Pipeline = pipeline.NewPipeline(regFile, icache, dcache,
		pipeline.WithRetireHook(func(commit emu.Commit) {
			c.recordCommit(commit)
			if hook != nil {
				hook(commit)
			}
		}))

	return c
}

func (c *Core) recordCommit(commit emu.Commit) {
	c.commits = append(c.commits, commit)
	if c.maxCommits > 0 && len(c.commits) > c.maxCommits {
		c.commits = c.commits[1:]
	}
}

// LoadProgram copies a program image into memory and points fetch at
// the entry.
func (c *Core) LoadProgram(entry uint32, program []byte) {
	c.memory.LoadBytes(entry, program)
	c.SetPC(entry)
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.Pipeline.SetPC(pc)
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true if the core has retired a halting instruction.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Commits returns the retained retirement records in program order.
func (c *Core) Commits() []emu.Commit {
	return c.commits
}

// RegFile returns the core's register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the backing memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	pipeStats := c.Pipeline.Stats()
	return Stats{
		Cycles:       pipeStats.Cycles,
		Instructions: pipeStats.Instructions,
		Stalls:       pipeStats.Stalls,
		Flushes:      pipeStats.Flushes,
		ICache:       c.Pipeline.ICacheStats(),
		DCache:       c.Pipeline.DCacheStats(),
	}
}

// Run executes the core until it halts or maxCycles elapse. maxCycles
// of 0 means no limit. Returns true if the core halted.
func (c *Core) Run(maxCycles uint64) bool {
	return c.Pipeline.Run(maxCycles)
}
