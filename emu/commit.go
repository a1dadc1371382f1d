package emu

import "fmt"

// Commit is the architectural record of one retired instruction. The
// timing core emits one per retirement and the reference emulator emits
// one per step, so the two streams can be compared field by field.
type Commit struct {
	// PC is the address of the instruction; NextPC is the resolved
	// successor (sequential, branch target, or jump target).
	PC     uint32
	NextPC uint32

	// Word is the raw 32-bit instruction.
	Word uint32

	// Source registers and the operand values actually used.
	Rs1      uint8
	Rs2      uint8
	Rs1Value uint32
	Rs2Value uint32

	// Destination register and the committed value. RdWrite is false
	// for instructions without a register result.
	Rd      uint8
	RdValue uint32
	RdWrite bool

	// Data-memory transaction, captured at access time. Mask is the
	// byte-lane mask within the aligned word; Store distinguishes
	// direction; Data is the word transferred (lane-aligned).
	MemValid bool
	MemAddr  uint32
	MemMask  uint8
	MemStore bool
	MemData  uint32

	// Trap marks illegal-instruction, misaligned-fetch-target, or
	// misaligned-access faults. Halt marks EBREAK/ECALL retirement.
	Trap bool
	Halt bool
}

// String renders a compact one-line summary for divergence reports.
func (c Commit) String() string {
	s := fmt.Sprintf("pc=%08x next=%08x word=%08x", c.PC, c.NextPC, c.Word)
	if c.RdWrite {
		s += fmt.Sprintf(" x%d=%08x", c.Rd, c.RdValue)
	}
	if c.MemValid {
		dir := "R"
		if c.MemStore {
			dir = "W"
		}
		s += fmt.Sprintf(" mem%s[%08x/%x]=%08x", dir, c.MemAddr, c.MemMask, c.MemData)
	}
	if c.Trap {
		s += " trap"
	}
	if c.Halt {
		s += " halt"
	}
	return s
}
