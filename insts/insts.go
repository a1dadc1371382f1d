// Package insts provides RV32I instruction definitions and decoding.
//
// This package implements decoding of RV32I machine code into structured
// instruction representations, including the control bits the pipeline
// consumes. It supports:
//   - Integer register-immediate and register-register operations
//   - LUI, AUIPC
//   - Loads and stores of byte, halfword, and word width
//   - Conditional branches, JAL, JALR
//   - ECALL, EBREAK, FENCE
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x00500093) // ADDI x1, x0, 5
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Imm)
package insts

// Op represents an RV32I operation.
type Op uint16

// RV32I operations.
const (
	OpUnknown Op = iota
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpFENCE
	OpECALL
	OpEBREAK
)

// Format represents an instruction encoding format. It doubles as the
// one-hot selector consumed by the immediate decoder.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // register-register
	FormatI              // register-immediate, loads, JALR
	FormatS              // stores
	FormatB              // conditional branches
	FormatU              // LUI, AUIPC
	FormatJ              // JAL
)

// ALUSelect chooses the arithmetic unit's primary operation.
type ALUSelect uint8

// ALU operation selects. The Sub, Arith, and Unsigned flags in
// ALUControl refine ALUAdd, ALUShiftRight, and ALUSetLess respectively.
const (
	ALUAdd ALUSelect = iota
	ALUShiftLeft
	ALUSetLess
	ALUXor
	ALUShiftRight
	ALUOr
	ALUAnd
	ALUPassB // result is operand B unmodified (LUI)
)

// ALUControl carries the operation select and its modifier flags.
type ALUControl struct {
	// Select is the primary operation.
	Select ALUSelect
	// Sub turns ALUAdd into subtraction.
	Sub bool
	// Arith turns ALUShiftRight into an arithmetic shift.
	Arith bool
	// Unsigned turns ALUSetLess into an unsigned comparison.
	Unsigned bool
}

// BranchKind identifies the outcome rule of a conditional branch.
type BranchKind uint8

// Branch kinds. Each maps to a combination of the arithmetic unit's
// equality and less-than outputs.
const (
	BranchNone BranchKind = iota
	BranchEQ
	BranchNE
	BranchLT
	BranchGE
	BranchLTU
	BranchGEU
)

// Instruction represents a decoded RV32I instruction together with the
// control bits the pipeline stages consume.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Encoding format

	// Register addresses.
	Rd  uint8 // Destination register
	Rs1 uint8 // First source register
	Rs2 uint8 // Second source register

	// Imm is the sign-extended immediate for the instruction's format.
	Imm int32

	// ALU is the arithmetic unit control for this instruction.
	ALU ALUControl

	// Control signals.
	RegWrite    bool  // Writes Rd
	MemRead     bool  // Load
	MemWrite    bool  // Store
	MemSize     uint8 // Access width in bytes (1, 2, or 4) for loads/stores
	MemUnsigned bool  // Zero-extend the loaded value (LBU, LHU)

	// Branch is the conditional-branch kind, BranchNone otherwise.
	Branch BranchKind

	// Jump classification.
	IsJAL  bool
	IsJALR bool

	// IsAUIPC marks the PC-relative upper-immediate form; operand 1 is
	// the program counter rather than Rs1.
	IsAUIPC bool

	// System instructions.
	IsECALL  bool
	IsEBREAK bool
	IsFENCE  bool

	// Illegal is set when the word does not decode to a supported
	// RV32I instruction.
	Illegal bool
}

// IsJump reports whether the instruction unconditionally redirects the
// fetch stream.
func (i *Instruction) IsJump() bool {
	return i.IsJAL || i.IsJALR
}

// ReadsRs1 reports whether Rs1 is an architectural source.
func (i *Instruction) ReadsRs1() bool {
	switch i.Format {
	case FormatR, FormatI, FormatS, FormatB:
		// JALR is FormatI and reads Rs1; ECALL/EBREAK/FENCE do not.
		return !i.IsECALL && !i.IsEBREAK && !i.IsFENCE
	default:
		return false
	}
}

// ReadsRs2 reports whether Rs2 is an architectural source.
func (i *Instruction) ReadsRs2() bool {
	switch i.Format {
	case FormatR, FormatS, FormatB:
		return true
	default:
		return false
	}
}
