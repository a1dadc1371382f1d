package pipeline

import (
	"github.com/sarchlab/r5sim/emu"
	"github.com/sarchlab/r5sim/timing/cache"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of cycles the fetch slot was held.
	Stalls uint64
	// LoadUseStalls is the number of load-use bubbles inserted.
	LoadUseStalls uint64
	// MemStalls is the number of cycles spent waiting on the D-cache.
	MemStalls uint64
	// FetchBubbles is the number of cycles fetch produced no instruction
	// while waiting on the I-cache.
	FetchBubbles uint64
	// Flushes is the number of pipeline flushes (taken branches and jumps).
	Flushes uint64
	// DataHazards is the number of cycles with at least one forwarded operand.
	DataHazards uint64
	// Traps is the number of trapped instructions retired.
	Traps uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithRetireHook registers a function called with each retirement
// record, in program order.
func WithRetireHook(hook func(emu.Commit)) PipelineOption {
	return func(p *Pipeline) {
		p.onRetire = hook
	}
}

// Pipeline implements the 5-stage pipelined core model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
//
// Fetch and memory both go through L1 caches. An I-cache miss injects
// bubbles into decode while the fetch PC holds; a D-cache miss holds
// MEM and every younger stage while writeback drains.
type Pipeline struct {
	// Pipeline registers
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	// Pipeline stages
	fetchStage     *CachedFetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *CachedMemoryStage
	writebackStage *WritebackStage

	// Hazard detection
	hazardUnit *HazardUnit

	// Shared architectural state
	regFile *emu.RegFile

	// Program counter (speculative fetch PC)
	pc uint32

	// Retirement callback
	onRetire func(emu.Commit)

	// Statistics
	stats Statistics

	// Execution state
	halted bool
}

// NewPipeline creates a new 5-stage pipeline over the given register
// file and cache controllers.
func NewPipeline(
	regFile *emu.RegFile,
	icache *cache.Controller,
	dcache *cache.Controller,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		fetchStage:     NewCachedFetchStage(icache),
		decodeStage:    NewDecodeStage(regFile),
		executeStage:   NewExecuteStage(),
		memoryStage:    NewCachedMemoryStage(dcache),
		writebackStage: NewWritebackStage(regFile),
		hazardUnit:     NewHazardUnit(),
		regFile:        regFile,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// PC returns the current fetch program counter.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC sets the fetch program counter.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
	p.regFile.PC = pc
}

// GetIFID returns the IF/ID pipeline register.
func (p *Pipeline) GetIFID() *IFIDRegister {
	return &p.ifid
}

// GetIDEX returns the ID/EX pipeline register.
func (p *Pipeline) GetIDEX() *IDEXRegister {
	return &p.idex
}

// GetEXMEM returns the EX/MEM pipeline register.
func (p *Pipeline) GetEXMEM() *EXMEMRegister {
	return &p.exmem
}

// GetMEMWB returns the MEM/WB pipeline register.
func (p *Pipeline) GetMEMWB() *MEMWBRegister {
	return &p.memwb
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// ICacheStats returns instruction cache statistics.
func (p *Pipeline) ICacheStats() cache.Statistics {
	return p.fetchStage.CacheStats()
}

// DCacheStats returns data cache statistics.
func (p *Pipeline) DCacheStats() cache.Statistics {
	return p.memoryStage.CacheStats()
}

// Halted returns true if the pipeline has retired a halting instruction.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Run executes the pipeline until it halts or maxCycles elapse.
// maxCycles of 0 means no limit. Returns true if the pipeline halted.
func (p *Pipeline) Run(maxCycles uint64) bool {
	for !p.halted {
		if maxCycles > 0 && p.stats.Cycles >= maxCycles {
			break
		}
		p.Tick()
	}
	return p.halted
}

// Tick executes one pipeline cycle.
//
// Hazard handling:
//   - Data forwarding from EX/MEM and MEM/WB into EX resolves RAW
//     hazards without stalling.
//   - A load-use pair stalls fetch and decode for exactly one cycle.
//   - Branches and jumps resolve in EX; a taken one squashes the two
//     speculatively fetched slots behind it.
//
// Stages are evaluated in reverse order (WB→MEM→EX→ID→IF) to compute
// new values before latching them into pipeline registers at cycle end.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	p.stats.Cycles++

	// Cache refill machines advance first so a completing refill can be
	// consumed by a stage access in the same cycle.
	p.fetchStage.Tick()
	p.memoryStage.Tick()

	forwarding := p.hazardUnit.DetectForwarding(&p.idex, &p.exmem, &p.memwb)
	if forwarding.Any() {
		p.stats.DataHazards++
	}

	// Detect a load-use hazard between the load in ID/EX and the
	// instruction about to decode. The loaded value cannot be forwarded
	// in time for its EX, so one bubble separates the pair.
	loadUseHazard := false
	if p.idex.Valid && p.idex.MemRead && p.idex.Rd != 0 && p.ifid.Valid {
		next := p.decodeStage.Peek(p.ifid.Word)
		loadUseHazard = p.hazardUnit.DetectLoadUseHazardDecoded(
			p.idex.Rd,
			next.Rs1, next.Rs2,
			next.ReadsRs1(), next.ReadsRs2(),
		)
	}

	// Stage 5: Writeback
	savedMEMWB := p.memwb
	if p.memwb.Valid {
		commit := p.writebackStage.Writeback(&p.memwb)
		p.stats.Instructions++
		if commit.Trap {
			p.stats.Traps++
		}
		if p.onRetire != nil {
			p.onRetire(commit)
		}
		if commit.Halt {
			// Younger in-flight instructions are squashed: nothing
			// behind the halting instruction may touch state.
			p.halted = true
			return
		}
	}

	// Stage 4: Memory
	var nextMEMWB MEMWBRegister
	memStall := false
	if p.exmem.Valid {
		var memResult MemoryResult
		memResult, memStall = p.memoryStage.Access(&p.exmem)
		if memStall {
			p.stats.MemStalls++
		}

		if !memStall {
			nextMEMWB = MEMWBRegister{
				Valid:     true,
				PC:        p.exmem.PC,
				Word:      p.exmem.Word,
				Inst:      p.exmem.Inst,
				ALUResult: p.exmem.ALUResult,
				MemData:   memResult.MemData,
				EffAddr:   p.exmem.EffAddr,
				Rs1Value:  p.exmem.Rs1Value,
				Rs2Value:  p.exmem.Rs2Value,
				NextPC:    p.exmem.NextPC,
				Rd:        p.exmem.Rd,
				RegWrite:  p.exmem.RegWrite,
				MemToReg:  p.exmem.MemRead,
				MemValid:  p.exmem.MemRead || p.exmem.MemWrite,
				MemStore:  p.exmem.MemWrite,
				MemMask:   p.exmem.LaneMask,
				MemLanes:  p.exmem.StoreLanes,
				Trap:      p.exmem.Trap,
				Halt:      p.exmem.Halt,
			}
		}
	}

	// Stage 3: Execute
	var nextEXMEM EXMEMRegister
	branchTaken := false
	var branchTarget uint32
	if p.idex.Valid && !memStall {
		rs1Val := p.hazardUnit.GetForwardedValue(
			forwarding.ForwardRs1, p.idex.Rs1Value, &p.exmem, &savedMEMWB)
		rs2Val := p.hazardUnit.GetForwardedValue(
			forwarding.ForwardRs2, p.idex.Rs2Value, &p.exmem, &savedMEMWB)

		execResult := p.executeStage.Execute(&p.idex, rs1Val, rs2Val)

		if execResult.Redirect {
			branchTaken = true
			branchTarget = execResult.NextPC
		}

		nextEXMEM = EXMEMRegister{
			Valid:      true,
			PC:         p.idex.PC,
			Word:       p.idex.Word,
			Inst:       p.idex.Inst,
			ALUResult:  execResult.ALUResult,
			EffAddr:    execResult.EffAddr,
			StoreLanes: execResult.StoreLanes,
			LaneMask:   execResult.LaneMask,
			Rs1Value:   rs1Val,
			Rs2Value:   rs2Val,
			NextPC:     execResult.NextPC,
			Rd:         p.idex.Rd,
			MemRead:    execResult.MemRead,
			MemWrite:   execResult.MemWrite,
			RegWrite:   execResult.RegWrite,
			Trap:       execResult.Trap,
			Halt:       execResult.Halt,
		}
	} else if p.idex.Valid && memStall {
		// The instruction in MEM/WB retired this cycle and its slot
		// drains to a bubble while the stall holds ID/EX. Capture its
		// value into the held operands now; the forward source is gone
		// by the time Execute runs.
		if forwarding.ForwardRs1 != ForwardNone {
			p.idex.Rs1Value = p.hazardUnit.GetForwardedValue(
				forwarding.ForwardRs1, p.idex.Rs1Value, &p.exmem, &savedMEMWB)
		}
		if forwarding.ForwardRs2 != ForwardNone {
			p.idex.Rs2Value = p.hazardUnit.GetForwardedValue(
				forwarding.ForwardRs2, p.idex.Rs2Value, &p.exmem, &savedMEMWB)
		}
	}

	stallResult := p.hazardUnit.ComputeStalls(loadUseHazard || memStall, branchTaken)
	if loadUseHazard && !memStall {
		p.stats.LoadUseStalls++
	}

	// Stage 1: Fetch. An I-cache miss injects a bubble and holds the
	// PC; the request is reissued next cycle.
	var nextIFID IFIDRegister
	if !stallResult.StallIF && !stallResult.FlushIF && !memStall {
		word, ok := p.fetchStage.Fetch(p.pc)
		if ok {
			nextIFID = IFIDRegister{
				Valid: true,
				PC:    p.pc,
				Word:  word,
			}
			p.pc += 4 // Sequential speculative fetch
		} else {
			p.stats.FetchBubbles++
		}
	} else if (stallResult.StallIF || memStall) && !stallResult.FlushIF {
		nextIFID = p.ifid
		p.stats.Stalls++
	}

	// Stage 2: Decode
	var nextIDEX IDEXRegister
	if p.ifid.Valid && !stallResult.StallID && !stallResult.FlushID && !memStall {
		decResult := p.decodeStage.Decode(p.ifid.Word)
		nextIDEX = IDEXRegister{
			Valid:    true,
			PC:       p.ifid.PC,
			Word:     p.ifid.Word,
			Inst:     decResult.Inst,
			Rs1Value: decResult.Rs1Value,
			Rs2Value: decResult.Rs2Value,
			Rd:       decResult.Inst.Rd,
			Rs1:      decResult.Inst.Rs1,
			Rs2:      decResult.Inst.Rs2,
			MemRead:  decResult.Inst.MemRead,
			MemWrite: decResult.Inst.MemWrite,
			RegWrite: decResult.Inst.RegWrite,
		}
	} else if (stallResult.StallID || memStall) && !stallResult.FlushID {
		nextIDEX = p.idex
	}

	// A taken branch or jump redirects fetch and squashes the two
	// younger slots.
	if branchTaken {
		p.pc = branchTarget
		nextIFID.Clear()
		nextIDEX.Clear()
		p.stats.Flushes++
	}

	// Latch pipeline registers. On a memory stall the stalled stages
	// hold while writeback drains a bubble.
	if !memStall {
		p.memwb = nextMEMWB
	} else {
		p.memwb.Clear()
	}
	if !memStall {
		p.exmem = nextEXMEM
	}
	if stallResult.InsertBubbleEX && !memStall {
		p.idex.Clear()
	} else if !memStall {
		p.idex = nextIDEX
	}
	p.ifid = nextIFID
}
