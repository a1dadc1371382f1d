package pipeline

import (
	"github.com/sarchlab/r5sim/emu"
	"github.com/sarchlab/r5sim/insts"
)

// DecodeStage handles instruction decode and register read.
type DecodeStage struct {
	regFile *emu.RegFile
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{
		regFile: regFile,
		decoder: insts.NewDecoder(),
	}
}

// DecodeResult holds the result of the decode stage.
type DecodeResult struct {
	Inst     *insts.Instruction
	Rs1Value uint32
	Rs2Value uint32
}

// Decode decodes the instruction word and reads the register file.
// Illegal encodings still flow down the pipeline; the Illegal flag on
// the instruction marks them for the trap path.
func (s *DecodeStage) Decode(word uint32) DecodeResult {
	inst := s.decoder.Decode(word)
	return DecodeResult{
		Inst:     inst,
		Rs1Value: s.regFile.ReadReg(inst.Rs1),
		Rs2Value: s.regFile.ReadReg(inst.Rs2),
	}
}

// Peek decodes a word without side effects, for hazard detection.
func (s *DecodeStage) Peek(word uint32) *insts.Instruction {
	return s.decoder.Decode(word)
}

// ExecuteStage handles ALU operations, branch resolution, and effective
// address calculation.
type ExecuteStage struct {
	alu *emu.ALU
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{alu: emu.NewALU()}
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	// ALUResult is the ALU output, the link value for jumps, or the
	// effective address low word for memory operations.
	ALUResult uint32

	// EffAddr is the full effective address for loads and stores.
	EffAddr uint32

	// StoreLanes and LaneMask position the store data within the
	// aligned word.
	StoreLanes uint32
	LaneMask   uint8

	// Redirect is true when the fetch stream must be steered to
	// NextPC (taken branch or jump).
	Redirect bool

	// NextPC is the architecturally next PC.
	NextPC uint32

	// Trap marks a fault: illegal instruction, misaligned control
	// transfer target, or misaligned memory access.
	Trap bool

	// RegWrite and the memory enables, after trap suppression.
	RegWrite bool
	MemRead  bool
	MemWrite bool

	// Halt marks an ECALL or EBREAK.
	Halt bool
}

// Execute runs one instruction through the execute stage. rs1Val and
// rs2Val are the operand values after forwarding.
func (s *ExecuteStage) Execute(idex *IDEXRegister, rs1Val, rs2Val uint32) ExecuteResult {
	inst := idex.Inst
	pc := idex.PC

	result := ExecuteResult{
		NextPC:   pc + 4,
		RegWrite: inst.RegWrite,
		MemRead:  inst.MemRead,
		MemWrite: inst.MemWrite,
	}

	switch {
	case inst.Illegal:
		s.trap(&result)

	case inst.IsECALL || inst.IsEBREAK:
		result.Halt = true

	case inst.IsFENCE:
		// Retires as a no-op.

	case inst.IsJAL:
		s.jump(&result, pc+uint32(inst.Imm), pc)

	case inst.IsJALR:
		s.jump(&result, (rs1Val+uint32(inst.Imm))&^1, pc)

	case inst.Branch != insts.BranchNone:
		out := s.alu.Run(inst.ALU, rs1Val, rs2Val)
		if emu.BranchTaken(inst.Branch, out) {
			target := pc + uint32(inst.Imm)
			if target&0x3 != 0 {
				// Misaligned target faults; the branch is not taken
				// and fetch continues sequentially.
				s.trap(&result)
				break
			}
			result.Redirect = true
			result.NextPC = target
		}

	case inst.MemRead || inst.MemWrite:
		addr := rs1Val + uint32(inst.Imm)
		if addr%uint32(inst.MemSize) != 0 {
			s.trap(&result)
			break
		}
		result.EffAddr = addr
		result.ALUResult = addr
		result.LaneMask = emu.LaneMask(inst.MemSize, addr)
		if inst.MemWrite {
			result.StoreLanes = emu.StoreLanes(rs2Val, inst.MemSize, addr)
		}

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
		out := s.alu.Run(inst.ALU, opA, opB)
		result.ALUResult = out.Result
	}

	return result
}

// jump resolves a JAL/JALR: a misaligned target traps, otherwise the
// link value is pc+4 and fetch is redirected.
func (s *ExecuteStage) jump(result *ExecuteResult, target, pc uint32) {
	if target&0x3 != 0 {
		s.trap(result)
		return
	}
	result.Redirect = true
	result.NextPC = target
	result.ALUResult = pc + 4
}

// trap deasserts every enable so the faulting instruction rides to
// retirement without architectural effect.
func (s *ExecuteStage) trap(result *ExecuteResult) {
	result.Trap = true
	result.RegWrite = false
	result.MemRead = false
	result.MemWrite = false
}

// WritebackStage commits results to the register file and produces the
// retirement record.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback retires the instruction in the MEM/WB register, writing the
// register file and returning the commit record.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister) emu.Commit {
	commit := emu.Commit{
		PC:     memwb.PC,
		NextPC: memwb.NextPC,
		Word:   memwb.Word,
		Trap:   memwb.Trap,
		Halt:   memwb.Halt,
	}

	if memwb.Inst != nil {
		commit.Rs1 = memwb.Inst.Rs1
		commit.Rs2 = memwb.Inst.Rs2
		if memwb.Inst.ReadsRs1() {
			commit.Rs1Value = memwb.Rs1Value
		}
		if memwb.Inst.ReadsRs2() {
			commit.Rs2Value = memwb.Rs2Value
		}
	}

	if memwb.MemValid {
		commit.MemValid = true
		commit.MemAddr = memwb.EffAddr &^ 0x3
		commit.MemMask = memwb.MemMask
		commit.MemStore = memwb.MemStore
		if memwb.MemStore {
			commit.MemData = memwb.MemLanes
		} else {
			commit.MemData = memwb.MemData
		}
	}

	if memwb.RegWrite {
		value := memwb.ALUResult
		if memwb.MemToReg {
			value = emu.LoadExtract(
				memwb.MemData, memwb.Inst.MemSize, memwb.EffAddr, memwb.Inst.MemUnsigned)
		}
		s.regFile.WriteReg(memwb.Rd, value)
		commit.Rd = memwb.Rd
		commit.RdValue = value
		commit.RdWrite = true
	}

	return commit
}
