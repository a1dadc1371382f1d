// Package emu provides functional RV32I emulation.
package emu

// RegFile represents the RV32I register file: 32 general-purpose
// 32-bit registers with two asynchronous read ports and one clocked
// write port. Register x0 is hardwired to zero.
type RegFile struct {
	// X holds general-purpose registers x0-x31. X[0] always reads
	// as 0; writes to it are discarded.
	X [32]uint32

	// PC is the program counter.
	PC uint32
}

// ReadReg reads a register value. Register 0 returns 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}

// Reset clears every register and the program counter.
func (r *RegFile) Reset() {
	for i := range r.X {
		r.X[i] = 0
	}
	r.PC = 0
}
