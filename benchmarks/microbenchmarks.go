// Package benchmarks provides small hand-assembled RV32I kernels and a
// harness for measuring pipeline timing behavior.
package benchmarks

// Instruction word encoders for assembling kernels.

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

func addi(rd, rs1 uint8, imm int32) uint32 { return encodeI(0x13, 0x0, rd, rs1, imm) }
func add(rd, rs1, rs2 uint8) uint32        { return encodeR(0x00, 0x0, rd, rs1, rs2) }
func lw(rd, rs1 uint8, imm int32) uint32   { return encodeI(0x03, 0x2, rd, rs1, imm) }
func sw(rs2, rs1 uint8, imm int32) uint32  { return encodeS(0x2, rs2, rs1, imm) }
func bne(rs1, rs2 uint8, imm int32) uint32 { return encodeB(0x1, rs1, rs2, imm) }

const ebreakWord = 0x0010_0073

// ALULoop builds a counted loop of independent ALU operations. The
// body has no data hazards between consecutive instructions, so a warm
// pipeline should approach one instruction per cycle.
func ALULoop(iterations int32) []uint32 {
	return []uint32{
		addi(1, 0, iterations), // x1 = counter
		// loop:
		addi(2, 2, 1),
		addi(3, 3, 1),
		addi(4, 4, 1),
		addi(5, 5, 1),
		addi(1, 1, -1),
		bne(1, 0, -20), // back to loop head
		ebreakWord,
	}
}

// LoadUseLoop builds a counted loop where every load feeds the next
// instruction, forcing a load-use bubble per iteration on top of the
// D-cache timing.
func LoadUseLoop(iterations int32, dataAddr int32) []uint32 {
	return []uint32{
		addi(1, 0, iterations), // x1 = counter
		addi(6, 0, dataAddr),   // x6 = data pointer
		sw(6, 6, 0),            // seed: mem[dataAddr] = dataAddr
		// loop:
		lw(7, 6, 0),
		add(8, 7, 7), // consumes the load immediately
		addi(1, 1, -1),
		bne(1, 0, -12),
		ebreakWord,
	}
}

// BranchLoop builds a loop dominated by taken branches, stressing the
// flush path of sequential speculative fetch.
func BranchLoop(iterations int32) []uint32 {
	return []uint32{
		addi(1, 0, iterations), // x1 = counter
		// loop:
		bne(0, 0, 8), // never taken
		addi(1, 1, -1),
		bne(1, 0, -8), // taken until the counter drains
		ebreakWord,
	}
}
