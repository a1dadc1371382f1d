package emu

// Byte-lane helpers. The caches store and load full aligned words;
// narrower accesses are masked and shifted at the boundary using the
// low address bits to select the lane(s).

// LaneMask returns the byte-lane mask for an access of the given size
// at the given (naturally aligned) address.
func LaneMask(size uint8, addr uint32) uint8 {
	var mask uint8
	switch size {
	case 1:
		mask = 0x1
	case 2:
		mask = 0x3
	default:
		mask = 0xF
	}
	return mask << (addr & 0x3)
}

// StoreLanes shifts a store value into its byte lanes within the
// aligned word.
func StoreLanes(value uint32, size uint8, addr uint32) uint32 {
	switch size {
	case 1:
		value &= 0xFF
	case 2:
		value &= 0xFFFF
	}
	return value << ((addr & 0x3) * 8)
}

// MergeLanes replaces the masked byte lanes of old with the
// corresponding lanes of lanes.
func MergeLanes(old, lanes uint32, mask uint8) uint32 {
	var bits uint32
	for i := 0; i < 4; i++ {
		if mask&(1<<i) != 0 {
			bits |= 0xFF << (i * 8)
		}
	}
	return (old &^ bits) | (lanes & bits)
}

// LoadExtract extracts an access of the given size from the aligned
// word and sign- or zero-extends it to 32 bits.
func LoadExtract(word uint32, size uint8, addr uint32, unsigned bool) uint32 {
	shifted := word >> ((addr & 0x3) * 8)
	switch size {
	case 1:
		if unsigned {
			return shifted & 0xFF
		}
		return uint32(int32(int8(shifted)))
	case 2:
		if unsigned {
			return shifted & 0xFFFF
		}
		return uint32(int32(int16(shifted)))
	default:
		return shifted
	}
}
