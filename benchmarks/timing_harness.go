package benchmarks

import (
	"fmt"

	"github.com/sarchlab/r5sim/emu"
	"github.com/sarchlab/r5sim/timing/core"
	"github.com/sarchlab/r5sim/timing/latency"
)

// maxHarnessCycles bounds a kernel run so a broken loop cannot hang
// the harness.
const maxHarnessCycles = 10_000_000

// Result holds the outcome of one timed kernel run.
type Result struct {
	// Stats are the core statistics at halt.
	Stats core.Stats
	// Halted is true if the kernel reached its halting instruction.
	Halted bool
}

// CPI returns the cycles per instruction of the run.
func (r Result) CPI() float64 {
	return r.Stats.CPI()
}

// RunKernel assembles the kernel at address 0 and runs it on a fresh
// core with the given memory timing.
func RunKernel(program []uint32, timing *latency.MemTimingConfig) (Result, error) {
	if timing == nil {
		timing = latency.DefaultMemTimingConfig()
	}
	if err := timing.Validate(); err != nil {
		return Result{}, fmt.Errorf("bad memory timing: %w", err)
	}

	regFile := &emu.RegFile{}
	memory := emu.NewMemory()
	for i, word := range program {
		memory.Write32(uint32(i*4), word)
	}

	c := core.NewCore(regFile, memory,
		core.WithMemTiming(timing),
		core.WithMaxCommits(1),
	)
	c.SetPC(0)

	halted := c.Run(maxHarnessCycles)

	return Result{
		Stats:  c.Stats(),
		Halted: halted,
	}, nil
}
