package emu

import (
	"github.com/sarchlab/r5sim/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Commit is the architectural record of the retired instruction.
	Commit Commit

	// Halted is true once an EBREAK or ECALL has retired.
	Halted bool
}

// Emulator executes RV32I instructions one at a time. It is the
// reference model the pipelined core is verified against: both produce
// the same Commit stream for the same program.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder
	alu     *ALU

	halted bool

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemory substitutes a pre-populated memory.
func WithMemory(m *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = m
	}
}

// WithMaxInstructions sets the maximum number of instructions to
// execute. A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new RV32I reference emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
		alu:     NewALU(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// Halted reports whether the emulator has retired a halting instruction.
func (e *Emulator) Halted() bool {
	return e.halted
}

// InstructionCount returns the number of instructions retired so far.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram copies a program image into memory and sets the PC to
// the entry point.
func (e *Emulator) LoadProgram(entry uint32, program []byte) {
	e.memory.LoadBytes(entry, program)
	e.regFile.PC = entry
}

// Step executes one instruction and returns its commit record.
func (e *Emulator) Step() StepResult {
	pc := e.regFile.PC
	word := e.memory.Read32(pc)
	inst := e.decoder.Decode(word)

	commit := Commit{
		PC:   pc,
		Word: word,
		Rs1:  inst.Rs1,
		Rs2:  inst.Rs2,
	}

	rs1Val := e.regFile.ReadReg(inst.Rs1)
	rs2Val := e.regFile.ReadReg(inst.Rs2)
	if inst.ReadsRs1() {
		commit.Rs1Value = rs1Val
	}
	if inst.ReadsRs2() {
		commit.Rs2Value = rs2Val
	}

	nextPC := pc + 4

	switch {
	case inst.Illegal:
		commit.Trap = true

	case inst.IsECALL || inst.IsEBREAK:
		commit.Halt = true
		e.halted = true

	case inst.IsFENCE:
		// Retires as a no-op.

	case inst.IsJAL:
		target := pc + uint32(inst.Imm)
		if target&0x3 != 0 {
			commit.Trap = true
			break
		}
		nextPC = target
		e.writeRd(inst, pc+4, &commit)

	case inst.IsJALR:
		target := (rs1Val + uint32(inst.Imm)) &^ 1
		if target&0x3 != 0 {
			commit.Trap = true
			break
		}
		nextPC = target
		e.writeRd(inst, pc+4, &commit)

	case inst.Branch != insts.BranchNone:
		out := e.alu.Run(inst.ALU, rs1Val, rs2Val)
		if BranchTaken(inst.Branch, out) {
			target := pc + uint32(inst.Imm)
			if target&0x3 != 0 {
				commit.Trap = true
				break
			}
			nextPC = target
		}

	case inst.MemRead:
		addr := rs1Val + uint32(inst.Imm)
		if addr%uint32(inst.MemSize) != 0 {
			commit.Trap = true
			break
		}
		aligned := addr &^ 0x3
		word := e.memory.Read32(aligned)
		commit.MemValid = true
		commit.MemAddr = aligned
		commit.MemMask = LaneMask(inst.MemSize, addr)
		commit.MemData = word
		value := LoadExtract(word, inst.MemSize, addr, inst.MemUnsigned)
		e.writeRd(inst, value, &commit)

	case inst.MemWrite:
		addr := rs1Val + uint32(inst.Imm)
		if addr%uint32(inst.MemSize) != 0 {
			commit.Trap = true
			break
		}
		aligned := addr &^ 0x3
		mask := LaneMask(inst.MemSize, addr)
		lanes := StoreLanes(rs2Val, inst.MemSize, addr)
		merged := MergeLanes(e.memory.Read32(aligned), lanes, mask)
		e.memory.Write32(aligned, merged)
		commit.MemValid = true
		commit.MemAddr = aligned
		commit.MemMask = mask
		commit.MemStore = true
		commit.MemData = lanes

	default:
		// ALU operations, LUI, AUIPC.
		opA := rs1Val
		opB := uint32(inst.Imm)
		if inst.IsAUIPC {
			opA = pc
		}
		if inst.Format == insts.FormatR {
			opB = rs2Val
		}
		out := e.alu.Run(inst.ALU, opA, opB)
		e.writeRd(inst, out.Result, &commit)
	}

	commit.NextPC = nextPC
	e.regFile.PC = nextPC
	e.instructionCount++

	return StepResult{Commit: commit, Halted: e.halted}
}

// writeRd commits a register result and records it.
func (e *Emulator) writeRd(inst *insts.Instruction, value uint32, commit *Commit) {
	if !inst.RegWrite {
		return
	}
	e.regFile.WriteReg(inst.Rd, value)
	commit.Rd = inst.Rd
	commit.RdValue = value
	commit.RdWrite = true
}

// Run executes until halt or the instruction limit is reached. It
// returns the commit records produced.
func (e *Emulator) Run() []Commit {
	var commits []Commit
	for !e.halted {
		if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
			break
		}
		result := e.Step()
		commits = append(commits, result.Commit)
	}
	return commits
}
