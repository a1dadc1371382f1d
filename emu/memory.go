package emu

// pageSize is the granularity of sparse memory allocation.
const pageSize = 4096

// Memory is a sparse, byte-addressed, little-endian memory. Pages are
// allocated on first touch; unwritten locations read as zero.
type Memory struct {
	pages map[uint32][]byte
}

// NewMemory creates an empty sparse memory.
func NewMemory() *Memory {
	return &Memory{
		pages: make(map[uint32][]byte),
	}
}

// page returns the page containing addr, allocating it if needed.
func (m *Memory) page(addr uint32, allocate bool) []byte {
	id := addr / pageSize
	p, ok := m.pages[id]
	if !ok && allocate {
		p = make([]byte, pageSize)
		m.pages[id] = p
	}
	return p
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) uint8 {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr%pageSize]
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value uint8) {
	p := m.page(addr, true)
	p[addr%pageSize] = value
}

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint32) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint32, value uint16) {
	m.Write8(addr, uint8(value))
	m.Write8(addr+1, uint8(value>>8))
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint32) uint32 {
	return uint32(m.Read8(addr)) |
		uint32(m.Read8(addr+1))<<8 |
		uint32(m.Read8(addr+2))<<16 |
		uint32(m.Read8(addr+3))<<24
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) {
	m.Write8(addr, uint8(value))
	m.Write8(addr+1, uint8(value>>8))
	m.Write8(addr+2, uint8(value>>16))
	m.Write8(addr+3, uint8(value>>24))
}

// LoadBytes copies data into memory starting at addr.
func (m *Memory) LoadBytes(addr uint32, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint32(i), b)
	}
}
