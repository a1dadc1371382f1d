package emu

import "github.com/sarchlab/r5sim/insts"

// ALUOutput is the combinational output of the arithmetic unit.
type ALUOutput struct {
	// Result is the 32-bit operation result.
	Result uint32
	// Eq is true when the operands are equal.
	Eq bool
	// Lt is true when operand A is less than operand B, signed.
	Lt bool
	// Ltu is true when operand A is less than operand B, unsigned.
	Ltu bool
}

// ALU implements the RV32I arithmetic unit as a pure function of the
// control bits and two operands. It holds no state.
type ALU struct{}

// NewALU creates a new arithmetic unit.
func NewALU() *ALU {
	return &ALU{}
}

// Run computes the operation selected by ctrl on operands a and b.
// The comparison flags are produced on every operation; branch
// resolution consumes them regardless of the selected result.
func (u *ALU) Run(ctrl insts.ALUControl, a, b uint32) ALUOutput {
	out := ALUOutput{
		Eq:  a == b,
		Lt:  int32(a) < int32(b),
		Ltu: a < b,
	}

	switch ctrl.Select {
	case insts.ALUAdd:
		if ctrl.Sub {
			out.Result = a - b
		} else {
			out.Result = a + b
		}
	case insts.ALUShiftLeft:
		out.Result = a << (b & 0x1F)
	case insts.ALUSetLess:
		lt := out.Lt
		if ctrl.Unsigned {
			lt = out.Ltu
		}
		if lt {
			out.Result = 1
		}
	case insts.ALUXor:
		out.Result = a ^ b
	case insts.ALUShiftRight:
		if ctrl.Arith {
			out.Result = uint32(int32(a) >> (b & 0x1F))
		} else {
			out.Result = a >> (b & 0x1F)
		}
	case insts.ALUOr:
		out.Result = a | b
	case insts.ALUAnd:
		out.Result = a & b
	case insts.ALUPassB:
		out.Result = b
	}

	return out
}
