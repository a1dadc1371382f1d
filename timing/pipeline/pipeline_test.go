package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/r5sim/emu"
	"github.com/sarchlab/r5sim/timing/cache"
	"github.com/sarchlab/r5sim/timing/latency"
	"github.com/sarchlab/r5sim/timing/pipeline"
)

// Instruction word encoders for building test programs.

func encodeI(opcode, funct3 uint32, rd, rs1 uint8, imm int32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | uint32(rs1)<<15 | funct3<<12 |
		uint32(rd)<<7 | opcode
}

func encodeR(funct7, funct3 uint32, rd, rs1, rs2 uint8) uint32 {
	return funct7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 |
		uint32(rd)<<7 | 0x33
}

func encodeS(funct3 uint32, rs2, rs1 uint8, imm int32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7F)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 |
		funct3<<12 | (u&0x1F)<<7 | 0x23
}

func encodeB(funct3 uint32, rs1, rs2 uint8, imm int32) uint32 {
	u := uint32(imm)
	return (u>>12&0x1)<<31 | (u>>5&0x3F)<<25 | uint32(rs2)<<20 |
		uint32(rs1)<<15 | funct3<<12 | (u>>1&0xF)<<8 | (u>>11&0x1)<<7 | 0x63
}

func encodeJAL(rd uint8, imm int32) uint32 {
	u := uint32(imm)
	return (u>>20&0x1)<<31 | (u>>1&0x3FF)<<21 | (u>>11&0x1)<<20 |
		(u>>12&0xFF)<<12 | uint32(rd)<<7 | 0x6F
}

func addi(rd, rs1 uint8, imm int32) uint32 { return encodeI(0x13, 0x0, rd, rs1, imm) }
func add(rd, rs1, rs2 uint8) uint32        { return encodeR(0x00, 0x0, rd, rs1, rs2) }
func lw(rd, rs1 uint8, imm int32) uint32   { return encodeI(0x03, 0x2, rd, rs1, imm) }
func sw(rs2, rs1 uint8, imm int32) uint32  { return encodeS(0x2, rs2, rs1, imm) }
func beq(rs1, rs2 uint8, imm int32) uint32 { return encodeB(0x0, rs1, rs2, imm) }

const (
	ecallWord  = 0x0000_0073
	ebreakWord = 0x0010_0073
)

// testCore wires a pipeline over fresh architectural state with both
// caches backed by the same memory.
type testCore struct {
	regFile  *emu.RegFile
	memory   *emu.Memory
	pipeline *pipeline.Pipeline
	commits  []emu.Commit
}

func newTestCore(program []uint32) *testCore {
	c := &testCore{
		regFile: &emu.RegFile{},
		memory:  emu.NewMemory(),
	}

	for i, word := range program {
		c.memory.Write32(uint32(i*4), word)
	}

	icache := cache.New(cache.DefaultConfig(),
		cache.NewMemoryPort(c.memory, latency.NewModel()))
	dcache := cache.New(cache.DefaultConfig(),
		cache.NewMemoryPort(c.memory, latency.NewModel()))

	c.pipeline = pipeline.NewPipeline(c.regFile, icache, dcache,
		pipeline.WithRetireHook(func(commit emu.Commit) {
			c.commits = append(c.commits, commit)
		}))
	c.pipeline.SetPC(0)

	return c
}

func (c *testCore) run() {
	halted := c.pipeline.Run(10000)
	ExpectWithOffset(1, halted).To(BeTrue(), "pipeline did not halt")
}

var _ = Describe("Pipeline", func() {
	It("should execute a straight-line program", func() {
		core := newTestCore([]uint32{
			addi(1, 0, 5),
			addi(2, 0, 7),
			ebreakWord,
		})
		core.run()

		Expect(core.regFile.ReadReg(1)).To(Equal(uint32(5)))
		Expect(core.regFile.ReadReg(2)).To(Equal(uint32(7)))
	})

	It("should forward ALU results without stalling", func() {
		core := newTestCore([]uint32{
			addi(1, 0, 5),
			addi(2, 1, 3), // needs x1 from EX/MEM
			add(3, 2, 1),  // needs x2 from EX/MEM, x1 from MEM/WB
			ebreakWord,
		})
		core.run()

		Expect(core.regFile.ReadReg(2)).To(Equal(uint32(8)))
		Expect(core.regFile.ReadReg(3)).To(Equal(uint32(13)))
		Expect(core.pipeline.Stats().LoadUseStalls).To(Equal(uint64(0)))
	})

	It("should insert one bubble for a load-use pair", func() {
		core := newTestCore([]uint32{
			addi(1, 0, 0x100),
			lw(2, 1, 0),  // x2 = mem[0x100] = 20
			add(3, 2, 2), // load-use: needs x2 immediately
			ebreakWord,
		})
		core.memory.Write32(0x100, 20)
		core.run()

		Expect(core.regFile.ReadReg(3)).To(Equal(uint32(40)))
		Expect(core.pipeline.Stats().LoadUseStalls).To(Equal(uint64(1)))
	})

	It("should forward a loaded value from MEM/WB", func() {
		core := newTestCore([]uint32{
			addi(1, 0, 0x100),
			lw(2, 1, 0),
			addi(5, 0, 1), // filler: one instruction between load and use
			add(3, 2, 2),  // x2 forwards from MEM/WB, no stall
			ebreakWord,
		})
		core.memory.Write32(0x100, 6)
		core.run()

		Expect(core.regFile.ReadReg(3)).To(Equal(uint32(12)))
		Expect(core.pipeline.Stats().LoadUseStalls).To(Equal(uint64(0)))
	})

	It("should keep a forwarded operand across a D-cache stall", func() {
		core := newTestCore([]uint32{
			addi(5, 0, 7),
			lw(6, 0, 0x100), // cold miss: MEM and younger stages hold
			add(7, 5, 5),    // x5 only reachable from MEM/WB at stall onset
			ebreakWord,
		})
		core.memory.Write32(0x100, 123)
		core.run()

		Expect(core.regFile.ReadReg(6)).To(Equal(uint32(123)))
		Expect(core.regFile.ReadReg(7)).To(Equal(uint32(14)))
		Expect(core.pipeline.Stats().MemStalls).To(BeNumerically(">", 0))
	})

	It("should squash the fetched slots on a taken branch", func() {
		core := newTestCore([]uint32{
			addi(1, 0, 1),
			beq(1, 1, 8),  // taken: skip the next instruction
			addi(5, 0, 99), // squashed
			addi(6, 0, 7),
			ebreakWord,
		})
		core.run()

		Expect(core.regFile.ReadReg(5)).To(Equal(uint32(0)))
		Expect(core.regFile.ReadReg(6)).To(Equal(uint32(7)))
		Expect(core.pipeline.Stats().Flushes).To(BeNumerically(">=", 1))
	})

	It("should fall through a not-taken branch without flushing", func() {
		core := newTestCore([]uint32{
			addi(1, 0, 1),
			beq(1, 0, 8), // not taken
			addi(5, 0, 3),
			ebreakWord,
		})
		core.run()

		Expect(core.regFile.ReadReg(5)).To(Equal(uint32(3)))
		Expect(core.pipeline.Stats().Flushes).To(Equal(uint64(0)))
	})

	It("should link and redirect on JAL", func() {
		core := newTestCore([]uint32{
			encodeJAL(1, 8), // jump over the next instruction, x1 = 4
			addi(5, 0, 99),  // squashed
			ebreakWord,
		})
		core.run()

		Expect(core.regFile.ReadReg(1)).To(Equal(uint32(4)))
		Expect(core.regFile.ReadReg(5)).To(Equal(uint32(0)))
	})

	It("should store through to memory", func() {
		core := newTestCore([]uint32{
			addi(1, 0, 0x200),
			addi(2, 0, 42),
			sw(2, 1, 4),
			ebreakWord,
		})
		core.run()

		Expect(core.memory.Read32(0x204)).To(Equal(uint32(42)))
	})

	It("should forward the store data register", func() {
		core := newTestCore([]uint32{
			addi(1, 0, 0x200),
			addi(2, 0, 9), // store data produced right before the store
			sw(2, 1, 0),
			ebreakWord,
		})
		core.run()

		Expect(core.memory.Read32(0x200)).To(Equal(uint32(9)))
	})

	It("should retire a misaligned load as a trap without writing rd", func() {
		core := newTestCore([]uint32{
			addi(2, 0, 55),
			addi(1, 0, 0x101),
			lw(2, 1, 0), // misaligned
			ebreakWord,
		})
		core.run()

		Expect(core.regFile.ReadReg(2)).To(Equal(uint32(55)))
		Expect(core.pipeline.Stats().Traps).To(Equal(uint64(1)))

		trapped := core.commits[2]
		Expect(trapped.Trap).To(BeTrue())
		Expect(trapped.RdWrite).To(BeFalse())
		Expect(trapped.NextPC).To(Equal(trapped.PC + 4))
	})

	It("should halt on ECALL", func() {
		core := newTestCore([]uint32{
			addi(1, 0, 3),
			ecallWord,
			addi(1, 0, 99), // never retires
		})
		core.run()

		Expect(core.pipeline.Halted()).To(BeTrue())
		Expect(core.regFile.ReadReg(1)).To(Equal(uint32(3)))

		last := core.commits[len(core.commits)-1]
		Expect(last.Halt).To(BeTrue())
	})

	It("should count fetch bubbles for cold I-cache misses", func() {
		core := newTestCore([]uint32{
			addi(1, 0, 1),
			ebreakWord,
		})
		core.run()

		Expect(core.pipeline.Stats().FetchBubbles).To(BeNumerically(">", 0))
		Expect(core.pipeline.ICacheStats().Misses).To(BeNumerically(">=", 1))
	})

	It("should produce the same retirement stream as the emulator", func() {
		program := []uint32{
			addi(1, 0, 0x300),
			addi(2, 0, 10),
			sw(2, 1, 0),
			lw(3, 1, 0),
			add(4, 3, 2),
			beq(4, 0, 8), // not taken
			addi(5, 4, -3),
			ebreakWord,
		}

		core := newTestCore(program)
		core.run()

		refMem := emu.NewMemory()
		for i, word := range program {
			refMem.Write32(uint32(i*4), word)
		}
		emulator := emu.NewEmulator(emu.WithMemory(refMem))
		reference := emulator.Run()

		Expect(core.commits).To(HaveLen(len(reference)))
		for i := range reference {
			Expect(core.commits[i]).To(Equal(reference[i]),
				"commit %d diverged: got %s want %s",
				i, core.commits[i].String(), reference[i].String())
		}
	})

	It("should report CPI over the run", func() {
		core := newTestCore([]uint32{
			addi(1, 0, 1),
			addi(2, 0, 2),
			addi(3, 0, 3),
			ebreakWord,
		})
		core.run()

		stats := core.pipeline.Stats()
		Expect(stats.Instructions).To(Equal(uint64(4)))
		Expect(stats.CPI()).To(BeNumerically(">", 1.0))
	})
})
