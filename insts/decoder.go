package insts

// Major opcodes (bits [6:0]).
const (
	opcodeLUI    = 0x37
	opcodeAUIPC  = 0x17
	opcodeJAL    = 0x6F
	opcodeJALR   = 0x67
	opcodeBranch = 0x63
	opcodeLoad   = 0x03
	opcodeStore  = 0x23
	opcodeOpImm  = 0x13
	opcodeOp     = 0x33
	opcodeFence  = 0x0F
	opcodeSystem = 0x73
)

// Decoder decodes RV32I machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32I instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV32I instruction word. Unsupported encodings
// return an instruction with Illegal set and no enables asserted.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{Op: OpUnknown, Format: FormatUnknown}

	opcode := word & 0x7F
	rd := uint8((word >> 7) & 0x1F)
	funct3 := (word >> 12) & 0x7
	rs1 := uint8((word >> 15) & 0x1F)
	rs2 := uint8((word >> 20) & 0x1F)
	funct7 := (word >> 25) & 0x7F

	switch opcode {
	case opcodeLUI:
		inst.Op = OpLUI
		inst.Format = FormatU
		inst.Rd = rd
		inst.RegWrite = rd != 0
		inst.ALU = ALUControl{Select: ALUPassB}

	case opcodeAUIPC:
		inst.Op = OpAUIPC
		inst.Format = FormatU
		inst.Rd = rd
		inst.RegWrite = rd != 0
		inst.IsAUIPC = true
		inst.ALU = ALUControl{Select: ALUAdd}

	case opcodeJAL:
		inst.Op = OpJAL
		inst.Format = FormatJ
		inst.Rd = rd
		inst.RegWrite = rd != 0
		inst.IsJAL = true
		// The ALU computes the return address; operand selection
		// substitutes PC and the constant 4.
		inst.ALU = ALUControl{Select: ALUAdd}

	case opcodeJALR:
		if funct3 != 0 {
			return d.illegal(inst)
		}
		inst.Op = OpJALR
		inst.Format = FormatI
		inst.Rd = rd
		inst.Rs1 = rs1
		inst.RegWrite = rd != 0
		inst.IsJALR = true
		inst.ALU = ALUControl{Select: ALUAdd}

	case opcodeBranch:
		inst.Format = FormatB
		inst.Rs1 = rs1
		inst.Rs2 = rs2
		inst.ALU = ALUControl{Select: ALUAdd, Sub: true}
		switch funct3 {
		case 0x0:
			inst.Op, inst.Branch = OpBEQ, BranchEQ
		case 0x1:
			inst.Op, inst.Branch = OpBNE, BranchNE
		case 0x4:
			inst.Op, inst.Branch = OpBLT, BranchLT
		case 0x5:
			inst.Op, inst.Branch = OpBGE, BranchGE
		case 0x6:
			inst.Op, inst.Branch = OpBLTU, BranchLTU
		case 0x7:
			inst.Op, inst.Branch = OpBGEU, BranchGEU
		default:
			return d.illegal(inst)
		}

	case opcodeLoad:
		inst.Format = FormatI
		inst.Rd = rd
		inst.Rs1 = rs1
		inst.MemRead = true
		inst.RegWrite = rd != 0
		inst.ALU = ALUControl{Select: ALUAdd}
		switch funct3 {
		case 0x0:
			inst.Op, inst.MemSize = OpLB, 1
		case 0x1:
			inst.Op, inst.MemSize = OpLH, 2
		case 0x2:
			inst.Op, inst.MemSize = OpLW, 4
		case 0x4:
			inst.Op, inst.MemSize, inst.MemUnsigned = OpLBU, 1, true
		case 0x5:
			inst.Op, inst.MemSize, inst.MemUnsigned = OpLHU, 2, true
		default:
			return d.illegal(inst)
		}

	case opcodeStore:
		inst.Format = FormatS
		inst.Rs1 = rs1
		inst.Rs2 = rs2
		inst.MemWrite = true
		inst.ALU = ALUControl{Select: ALUAdd}
		switch funct3 {
		case 0x0:
			inst.Op, inst.MemSize = OpSB, 1
		case 0x1:
			inst.Op, inst.MemSize = OpSH, 2
		case 0x2:
			inst.Op, inst.MemSize = OpSW, 4
		default:
			return d.illegal(inst)
		}

	case opcodeOpImm:
		inst.Format = FormatI
		inst.Rd = rd
		inst.Rs1 = rs1
		inst.RegWrite = rd != 0
		switch funct3 {
		case 0x0:
			inst.Op = OpADDI
			inst.ALU = ALUControl{Select: ALUAdd}
		case 0x2:
			inst.Op = OpSLTI
			inst.ALU = ALUControl{Select: ALUSetLess}
		case 0x3:
			inst.Op = OpSLTIU
			inst.ALU = ALUControl{Select: ALUSetLess, Unsigned: true}
		case 0x4:
			inst.Op = OpXORI
			inst.ALU = ALUControl{Select: ALUXor}
		case 0x6:
			inst.Op = OpORI
			inst.ALU = ALUControl{Select: ALUOr}
		case 0x7:
			inst.Op = OpANDI
			inst.ALU = ALUControl{Select: ALUAnd}
		case 0x1:
			if funct7 != 0 {
				return d.illegal(inst)
			}
			inst.Op = OpSLLI
			inst.ALU = ALUControl{Select: ALUShiftLeft}
		case 0x5:
			switch funct7 {
			case 0x00:
				inst.Op = OpSRLI
				inst.ALU = ALUControl{Select: ALUShiftRight}
			case 0x20:
				inst.Op = OpSRAI
				inst.ALU = ALUControl{Select: ALUShiftRight, Arith: true}
			default:
				return d.illegal(inst)
			}
		}

	case opcodeOp:
		inst.Format = FormatR
		inst.Rd = rd
		inst.Rs1 = rs1
		inst.Rs2 = rs2
		inst.RegWrite = rd != 0
		switch funct3 {
		case 0x0:
			switch funct7 {
			case 0x00:
				inst.Op = OpADD
				inst.ALU = ALUControl{Select: ALUAdd}
			case 0x20:
				inst.Op = OpSUB
				inst.ALU = ALUControl{Select: ALUAdd, Sub: true}
			default:
				return d.illegal(inst)
			}
		case 0x1:
			if funct7 != 0 {
				return d.illegal(inst)
			}
			inst.Op = OpSLL
			inst.ALU = ALUControl{Select: ALUShiftLeft}
		case 0x2:
			if funct7 != 0 {
				return d.illegal(inst)
			}
			inst.Op = OpSLT
			inst.ALU = ALUControl{Select: ALUSetLess}
		case 0x3:
			if funct7 != 0 {
				return d.illegal(inst)
			}
			inst.Op = OpSLTU
			inst.ALU = ALUControl{Select: ALUSetLess, Unsigned: true}
		case 0x4:
			if funct7 != 0 {
				return d.illegal(inst)
			}
			inst.Op = OpXOR
			inst.ALU = ALUControl{Select: ALUXor}
		case 0x5:
			switch funct7 {
			case 0x00:
				inst.Op = OpSRL
				inst.ALU = ALUControl{Select: ALUShiftRight}
			case 0x20:
				inst.Op = OpSRA
				inst.ALU = ALUControl{Select: ALUShiftRight, Arith: true}
			default:
				return d.illegal(inst)
			}
		case 0x6:
			if funct7 != 0 {
				return d.illegal(inst)
			}
			inst.Op = OpOR
			inst.ALU = ALUControl{Select: ALUOr}
		case 0x7:
			if funct7 != 0 {
				return d.illegal(inst)
			}
			inst.Op = OpAND
			inst.ALU = ALUControl{Select: ALUAnd}
		}

	case opcodeFence:
		// FENCE and FENCE.I retire as no-ops in a single in-order core.
		inst.Op = OpFENCE
		inst.Format = FormatI
		inst.IsFENCE = true

	case opcodeSystem:
		if funct3 != 0 || rd != 0 || rs1 != 0 {
			return d.illegal(inst)
		}
		switch word >> 20 {
		case 0x000:
			inst.Op = OpECALL
			inst.Format = FormatI
			inst.IsECALL = true
		case 0x001:
			inst.Op = OpEBREAK
			inst.Format = FormatI
			inst.IsEBREAK = true
		default:
			return d.illegal(inst)
		}

	default:
		return d.illegal(inst)
	}

	inst.Imm = Immediate(word, inst.Format)

	return inst
}

// illegal marks the instruction as undecodable and strips every enable
// so it travels the pipeline as a trapping no-op.
func (d *Decoder) illegal(inst *Instruction) *Instruction {
	inst.Op = OpUnknown
	inst.Format = FormatUnknown
	inst.Illegal = true
	inst.RegWrite = false
	inst.MemRead = false
	inst.MemWrite = false
	inst.Branch = BranchNone
	return inst
}
