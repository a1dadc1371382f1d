package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/r5sim/emu"
	"github.com/sarchlab/r5sim/insts"
)

var _ = Describe("ALU", func() {
	var alu *emu.ALU

	BeforeEach(func() {
		alu = emu.NewALU()
	})

	It("should add", func() {
		out := alu.Run(insts.ALUControl{Select: insts.ALUAdd}, 3, 4)
		Expect(out.Result).To(Equal(uint32(7)))
	})

	It("should wrap on add overflow", func() {
		out := alu.Run(insts.ALUControl{Select: insts.ALUAdd}, 0xFFFF_FFFF, 1)
		Expect(out.Result).To(Equal(uint32(0)))
	})

	It("should subtract", func() {
		out := alu.Run(insts.ALUControl{Select: insts.ALUAdd, Sub: true}, 3, 5)
		Expect(out.Result).To(Equal(uint32(0xFFFF_FFFE)))
	})

	It("should compute signed set-less-than", func() {
		ctrl := insts.ALUControl{Select: insts.ALUSetLess}
		Expect(alu.Run(ctrl, 0xFFFF_FFFF, 1).Result).To(Equal(uint32(1))) // -1 < 1
		Expect(alu.Run(ctrl, 1, 0xFFFF_FFFF).Result).To(Equal(uint32(0)))
	})

	It("should compute unsigned set-less-than", func() {
		ctrl := insts.ALUControl{Select: insts.ALUSetLess, Unsigned: true}
		Expect(alu.Run(ctrl, 0xFFFF_FFFF, 1).Result).To(Equal(uint32(0)))
		Expect(alu.Run(ctrl, 1, 0xFFFF_FFFF).Result).To(Equal(uint32(1)))
	})

	It("should shift left masking the shift amount", func() {
		ctrl := insts.ALUControl{Select: insts.ALUShiftLeft}
		Expect(alu.Run(ctrl, 1, 4).Result).To(Equal(uint32(16)))
		Expect(alu.Run(ctrl, 1, 33).Result).To(Equal(uint32(2)))
	})

	It("should shift right logically", func() {
		ctrl := insts.ALUControl{Select: insts.ALUShiftRight}
		Expect(alu.Run(ctrl, 0x8000_0000, 4).Result).To(Equal(uint32(0x0800_0000)))
	})

	It("should shift right arithmetically", func() {
		ctrl := insts.ALUControl{Select: insts.ALUShiftRight, Arith: true}
		Expect(alu.Run(ctrl, 0x8000_0000, 4).Result).To(Equal(uint32(0xF800_0000)))
	})

	It("should compute xor, or, and", func() {
		Expect(alu.Run(insts.ALUControl{Select: insts.ALUXor}, 0b1100, 0b1010).Result).
			To(Equal(uint32(0b0110)))
		Expect(alu.Run(insts.ALUControl{Select: insts.ALUOr}, 0b1100, 0b1010).Result).
			To(Equal(uint32(0b1110)))
		Expect(alu.Run(insts.ALUControl{Select: insts.ALUAnd}, 0b1100, 0b1010).Result).
			To(Equal(uint32(0b1000)))
	})

	It("should pass through operand B", func() {
		out := alu.Run(insts.ALUControl{Select: insts.ALUPassB}, 99, 0x12345000)
		Expect(out.Result).To(Equal(uint32(0x12345000)))
	})

	It("should always produce comparison flags", func() {
		out := alu.Run(insts.ALUControl{Select: insts.ALUAdd}, 5, 5)
		Expect(out.Eq).To(BeTrue())
		Expect(out.Lt).To(BeFalse())
		Expect(out.Ltu).To(BeFalse())

		out = alu.Run(insts.ALUControl{Select: insts.ALUAdd}, 0xFFFF_FFFF, 0)
		Expect(out.Eq).To(BeFalse())
		Expect(out.Lt).To(BeTrue())   // -1 < 0 signed
		Expect(out.Ltu).To(BeFalse()) // max > 0 unsigned
	})
})

var _ = Describe("BranchTaken", func() {
	out := func(eq, lt, ltu bool) emu.ALUOutput {
		return emu.ALUOutput{Eq: eq, Lt: lt, Ltu: ltu}
	}

	It("should resolve each branch kind from the flags", func() {
		Expect(emu.BranchTaken(insts.BranchEQ, out(true, false, false))).To(BeTrue())
		Expect(emu.BranchTaken(insts.BranchNE, out(true, false, false))).To(BeFalse())
		Expect(emu.BranchTaken(insts.BranchLT, out(false, true, false))).To(BeTrue())
		Expect(emu.BranchTaken(insts.BranchGE, out(false, true, false))).To(BeFalse())
		Expect(emu.BranchTaken(insts.BranchLTU, out(false, false, true))).To(BeTrue())
		Expect(emu.BranchTaken(insts.BranchGEU, out(false, false, true))).To(BeFalse())
		Expect(emu.BranchTaken(insts.BranchNone, out(true, true, true))).To(BeFalse())
	})
})
