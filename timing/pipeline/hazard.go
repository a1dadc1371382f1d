package pipeline

import "github.com/sarchlab/r5sim/emu"

// ForwardSource indicates where a forwarded operand value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use the register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEX means forward the ALU result from the EX/MEM register.
	ForwardFromEX
	// ForwardFromMEMALU means forward the ALU result from the MEM/WB register.
	ForwardFromMEMALU
	// ForwardFromMEMLoad means forward the loaded value from the MEM/WB register.
	ForwardFromMEMLoad
)

// ForwardingResult contains forwarding decisions for both source operands.
type ForwardingResult struct {
	// ForwardRs1 specifies the forwarding source for the rs1 operand.
	ForwardRs1 ForwardSource
	// ForwardRs2 specifies the forwarding source for the rs2 operand.
	// For stores, rs2 is the store data register.
	ForwardRs2 ForwardSource
}

// Any reports whether either operand is forwarded.
func (r ForwardingResult) Any() bool {
	return r.ForwardRs1 != ForwardNone || r.ForwardRs2 != ForwardNone
}

// StallResult contains stall and flush control signals.
type StallResult struct {
	// StallIF indicates the IF stage should hold its current instruction.
	StallIF bool
	// StallID indicates the ID stage should stall.
	StallID bool
	// InsertBubbleEX indicates a bubble should be inserted in the EX stage.
	InsertBubbleEX bool
	// FlushIF indicates the IF slot should be squashed (taken branch).
	FlushIF bool
	// FlushID indicates the ID slot should be squashed (taken branch).
	FlushID bool
}

// HazardUnit detects data hazards and determines forwarding/stall signals.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectForwarding determines the forwarding sources for the instruction
// in the ID/EX register. It checks the source registers against the
// destinations of the instructions in EX/MEM and MEM/WB, preferring the
// younger EX/MEM value when both match.
func (h *HazardUnit) DetectForwarding(
	idex *IDEXRegister,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardingResult {
	result := ForwardingResult{
		ForwardRs1: ForwardNone,
		ForwardRs2: ForwardNone,
	}

	if !idex.Valid || idex.Inst == nil {
		return result
	}

	if idex.Inst.ReadsRs1() {
		result.ForwardRs1 = h.detectForwardForReg(idex.Rs1, exmem, memwb)
	}
	if idex.Inst.ReadsRs2() {
		result.ForwardRs2 = h.detectForwardForReg(idex.Rs2, exmem, memwb)
	}

	return result
}

// detectForwardForReg checks if a specific register needs forwarding.
func (h *HazardUnit) detectForwardForReg(
	reg uint8,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardSource {
	// x0 always reads as 0, no need to forward.
	if reg == 0 {
		return ForwardNone
	}

	// Priority: EX/MEM has precedence over MEM/WB (more recent value).
	// A load in EX/MEM never matches here: the load-use stall guarantees
	// its consumer is at least two slots behind, so only the ALU result
	// is ever forwarded from this register.
	if exmem.Valid && exmem.RegWrite && !exmem.MemRead && exmem.Rd == reg {
		return ForwardFromEX
	}

	if memwb.Valid && memwb.RegWrite && memwb.Rd == reg {
		if memwb.MemToReg {
			return ForwardFromMEMLoad
		}
		return ForwardFromMEMALU
	}

	return ForwardNone
}

// DetectLoadUseHazardDecoded detects a load-use hazard using decoded
// register info. loadRd is the destination of the load in ID/EX;
// nextRs1, nextRs2 are the sources of the next instruction, with
// usesRs1, usesRs2 indicating which operands it actually reads. The
// loaded value is not available until after MEM, so exactly one bubble
// is required between the pair.
func (h *HazardUnit) DetectLoadUseHazardDecoded(
	loadRd uint8,
	nextRs1, nextRs2 uint8,
	usesRs1, usesRs2 bool,
) bool {
	// x0 doesn't cause hazards.
	if loadRd == 0 {
		return false
	}

	if usesRs1 && loadRd == nextRs1 {
		return true
	}
	if usesRs2 && loadRd == nextRs2 {
		return true
	}

	return false
}

// ComputeStalls computes stall and flush signals from hazard conditions.
func (h *HazardUnit) ComputeStalls(loadUseHazard bool, branchTaken bool) StallResult {
	result := StallResult{}

	// Load-use hazard: hold IF and ID, insert a bubble in EX.
	if loadUseHazard {
		result.StallIF = true
		result.StallID = true
		result.InsertBubbleEX = true
	}

	// Taken branch or jump: squash the speculatively fetched slots.
	if branchTaken {
		result.FlushIF = true
		result.FlushID = true
	}

	return result
}

// GetForwardedValue returns the operand value to use based on the
// forwarding decision.
func (h *HazardUnit) GetForwardedValue(
	forward ForwardSource,
	originalValue uint32,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) uint32 {
	switch forward {
	case ForwardFromEX:
		return exmem.ALUResult
	case ForwardFromMEMALU:
		return memwb.ALUResult
	case ForwardFromMEMLoad:
		return emu.LoadExtract(
			memwb.MemData, memwb.Inst.MemSize, memwb.EffAddr, memwb.Inst.MemUnsigned)
	default:
		return originalValue
	}
}
