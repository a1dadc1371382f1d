// Package main provides the entry point for r5sim.
// r5sim is a cycle-level simulator for a pipelined RV32I core.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/r5sim/emu"
	"github.com/sarchlab/r5sim/loader"
	"github.com/sarchlab/r5sim/timing/core"
	"github.com/sarchlab/r5sim/timing/latency"
)

var (
	check      = flag.Bool("check", false, "Run the reference emulator in lock-step and compare retirement records")
	configPath = flag.String("config", "", "Path to memory timing configuration JSON file")
	maxCycles  = flag.Uint64("max-cycles", 0, "Stop after this many cycles (0 = no limit)")
	flatImage  = flag.Bool("bin", false, "Treat the program as a flat binary image instead of an ELF")
	entryPoint = flag.Uint("entry", 0, "Load address and entry point for flat binary images")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: r5sim [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	var prog *loader.Program
	var err error
	if *flatImage {
		prog, err = loadFlat(programPath, uint32(*entryPoint))
	} else {
		prog, err = loader.Load(programPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
		fmt.Printf("Segments: %d\n", len(prog.Segments))
	}

	timingConfig := latency.DefaultMemTimingConfig()
	if *configPath != "" {
		timingConfig, err = latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
	}
	if err := timingConfig.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid timing config: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(prog, programPath, timingConfig))
}

// loadFlat wraps a raw binary image as a single loadable segment at the
// given address, which also serves as the entry point.
func loadFlat(path string, entry uint32) (*loader.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flat image: %w", err)
	}

	return &loader.Program{
		EntryPoint: entry,
		InitialSP:  loader.DefaultStackTop,
		Segments: []loader.Segment{
			{
				VirtAddr: entry,
				Data:     data,
				MemSize:  uint32(len(data)),
				Flags:    loader.SegmentFlagRead | loader.SegmentFlagExecute,
			},
		},
	}, nil
}

// loadSegments copies the program's loadable segments into memory,
// zero-filling BSS.
func loadSegments(memory *emu.Memory, prog *loader.Program) {
	for _, seg := range prog.Segments {
		memory.LoadBytes(seg.VirtAddr, seg.Data)
		for i := uint32(len(seg.Data)); i < seg.MemSize; i++ {
			memory.Write8(seg.VirtAddr+i, 0)
		}
	}
}

// run simulates the program on the pipelined core, optionally checking
// every retirement record against the reference emulator.
func run(prog *loader.Program, programPath string, timingConfig *latency.MemTimingConfig) int {
	memory := emu.NewMemory()
	regFile := &emu.RegFile{}
	loadSegments(memory, prog)

	var reference *emu.Emulator
	divergence := false
	if *check {
		refMem := emu.NewMemory()
		loadSegments(refMem, prog)
		reference = emu.NewEmulator(emu.WithMemory(refMem))
		reference.RegFile().PC = prog.EntryPoint
	}

	opts := []core.CoreOption{
		core.WithMemTiming(timingConfig),
		core.WithMaxCommits(1),
	}
	if *check {
		opts = append(opts, core.WithRetireHook(func(commit emu.Commit) {
			if divergence {
				return
			}
			expected := reference.Step().Commit
			if commit != expected {
				divergence = true
				fmt.Fprintf(os.Stderr, "Divergence at instruction %d:\n", reference.InstructionCount())
				fmt.Fprintf(os.Stderr, "  pipeline: %s\n", commit.String())
				fmt.Fprintf(os.Stderr, "  emulator: %s\n", expected.String())
			}
		}))
	}

	c := core.NewCore(regFile, memory, opts...)
	c.SetPC(prog.EntryPoint)

	halted := c.Run(*maxCycles)

	stats := c.Stats()
	printReport(programPath, stats, halted)

	if divergence {
		return 2
	}
	if !halted {
		fmt.Fprintf(os.Stderr, "Stopped at cycle limit without halting\n")
		return 3
	}
	return 0
}

// printReport prints the timing report.
func printReport(programPath string, stats core.Stats, halted bool) {
	fmt.Printf("\n")
	fmt.Printf("Program: %s\n", programPath)
	fmt.Printf("Halted: %v\n", halted)
	fmt.Printf("Total Instructions: %d\n", stats.Instructions)
	fmt.Printf("Total Cycles: %d\n", stats.Cycles)
	fmt.Printf("CPI: %.2f\n", stats.CPI())
	fmt.Printf("\n")
	fmt.Printf("Pipeline Events:\n")
	fmt.Printf("  Stalls:  %d\n", stats.Stalls)
	fmt.Printf("  Flushes: %d\n", stats.Flushes)
	fmt.Printf("\n")
	fmt.Printf("I-Cache: %d hits, %d misses, %d evictions\n",
		stats.ICache.Hits, stats.ICache.Misses, stats.ICache.Evictions)
	fmt.Printf("D-Cache: %d hits, %d misses, %d evictions\n",
		stats.DCache.Hits, stats.DCache.Misses, stats.DCache.Evictions)

	if *verbose {
		fmt.Printf("\n")
		fmt.Printf("I-Cache reads: %d, refills: %d\n",
			stats.ICache.Reads, stats.ICache.Refills)
		fmt.Printf("D-Cache reads: %d, writes: %d, write-throughs: %d, refills: %d\n",
			stats.DCache.Reads, stats.DCache.Writes,
			stats.DCache.WriteThroughs, stats.DCache.Refills)
	}
}
