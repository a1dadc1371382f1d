// Package main provides the entry point for r5sim.
// r5sim is a cycle-level RV32I pipeline and cache simulator.
//
// For the full CLI, use: go run ./cmd/r5sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("r5sim - RV32I pipeline simulator")
	fmt.Println("")
	fmt.Println("Usage: r5sim [options] <program.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -check     Run the reference emulator in lock-step and compare retirements")
	fmt.Println("  -config    Path to memory timing configuration JSON file")
	fmt.Println("  -bin       Treat the program as a flat binary image (with -entry)")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/r5sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/r5sim' instead.")
	}
}
