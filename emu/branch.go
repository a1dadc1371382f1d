package emu

import "github.com/sarchlab/r5sim/insts"

// BranchTaken evaluates a conditional branch outcome from the
// arithmetic unit's comparison flags and the branch kind.
func BranchTaken(kind insts.BranchKind, out ALUOutput) bool {
	switch kind {
	case insts.BranchEQ:
		return out.Eq
	case insts.BranchNE:
		return !out.Eq
	case insts.BranchLT:
		return out.Lt
	case insts.BranchGE:
		return !out.Lt
	case insts.BranchLTU:
		return out.Ltu
	case insts.BranchGEU:
		return !out.Ltu
	default:
		return false
	}
}
