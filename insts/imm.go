package insts

// Immediate extracts the sign-extended 32-bit immediate for the given
// format from an instruction word. The format acts as a one-hot
// selector; FormatR and FormatUnknown yield 0.
func Immediate(word uint32, format Format) int32 {
	switch format {
	case FormatI:
		// bits [31:20]
		return int32(word) >> 20

	case FormatS:
		// bits [31:25] | [11:7]
		imm := (int32(word) >> 25 << 5) | int32((word>>7)&0x1F)
		return imm

	case FormatB:
		// bit 31 | bit 7 | bits [30:25] | bits [11:8], scaled by 2
		imm := (int32(word) >> 31 << 12) |
			int32((word>>7)&0x1)<<11 |
			int32((word>>25)&0x3F)<<5 |
			int32((word>>8)&0xF)<<1
		return imm

	case FormatU:
		// bits [31:12], low 12 bits zero
		return int32(word & 0xFFFFF000)

	case FormatJ:
		// bit 31 | bits [19:12] | bit 20 | bits [30:21], scaled by 2
		imm := (int32(word) >> 31 << 20) |
			int32((word>>12)&0xFF)<<12 |
			int32((word>>20)&0x1)<<11 |
			int32((word>>21)&0x3FF)<<1
		return imm

	default:
		return 0
	}
}
