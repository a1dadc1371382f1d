// Package pipeline provides the 5-stage pipeline implementation for timing simulation.
package pipeline

import "github.com/sarchlab/r5sim/insts"

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the fetched instruction.
	PC uint32

	// Word is the raw 32-bit instruction word.
	Word uint32
}

// Clear resets the IF/ID register to empty state.
func (r *IFIDRegister) Clear() {
	r.Valid = false
	r.PC = 0
	r.Word = 0
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint32

	// Word is the raw instruction word, carried for the retirement record.
	Word uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Register values read from the register file.
	Rs1Value uint32
	Rs2Value uint32

	// Register numbers for hazard detection.
	Rd  uint8
	Rs1 uint8
	Rs2 uint8

	// Control signals.
	MemRead  bool // True for load instructions
	MemWrite bool // True for store instructions
	RegWrite bool // True if instruction writes to a register
}

// Clear resets the ID/EX register to empty state.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint32

	// Word is the raw instruction word.
	Word uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// ALUResult holds the ALU output, or the link value for jumps.
	ALUResult uint32

	// EffAddr is the full effective address for loads and stores,
	// including the low bits that select the byte lanes.
	EffAddr uint32

	// StoreLanes is the store value shifted into its byte lanes.
	StoreLanes uint32

	// LaneMask selects the bytes touched within the aligned word.
	LaneMask uint8

	// Rs values as seen by Execute (after forwarding), carried for the
	// retirement record.
	Rs1Value uint32
	Rs2Value uint32

	// NextPC is the architecturally next PC: the branch or jump target
	// when taken, PC+4 otherwise.
	NextPC uint32

	// Destination register number.
	Rd uint8

	// Control signals (propagated from ID/EX, deasserted on a trap).
	MemRead  bool
	MemWrite bool
	RegWrite bool

	// Trap marks an instruction that faulted. It continues down the
	// pipeline with all enables deasserted and is recorded at retirement.
	Trap bool

	// Halt marks an ECALL or EBREAK.
	Halt bool
}

// Clear resets the EX/MEM register to empty state.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{}
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint32

	// Word is the raw instruction word.
	Word uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// ALUResult holds the ALU output (for non-load register writes).
	ALUResult uint32

	// MemData is the aligned word read from memory (for loads).
	MemData uint32

	// EffAddr is the full effective address of the access.
	EffAddr uint32

	// Rs values as seen by Execute, carried for the retirement record.
	Rs1Value uint32
	Rs2Value uint32

	// NextPC is the architecturally next PC.
	NextPC uint32

	// Destination register number.
	Rd uint8

	// Control signals.
	RegWrite bool
	MemToReg bool // True if the result comes from memory (load)

	// Memory transaction record for retirement.
	MemValid bool
	MemStore bool
	MemMask  uint8
	MemLanes uint32

	// Trap and halt status, recorded at retirement.
	Trap bool
	Halt bool
}

// Clear resets the MEM/WB register to empty state.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{}
}
