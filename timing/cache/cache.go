package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/r5sim/emu"
)

// Config holds cache geometry parameters.
type Config struct {
	// Sets is the number of sets.
	Sets int
	// Ways is the associativity.
	Ways int
	// LineBytes is the cache line size in bytes.
	LineBytes int
}

// DefaultConfig returns the standard geometry: 32 sets, 2 ways,
// 16-byte lines — 1 KiB per cache instance.
func DefaultConfig() Config {
	return Config{
		Sets:      32,
		Ways:      2,
		LineBytes: 16,
	}
}

// Size returns the total capacity in bytes.
func (c Config) Size() int {
	return c.Sets * c.Ways * c.LineBytes
}

// LineWords returns the number of 32-bit words per line.
func (c Config) LineWords() int {
	return c.LineBytes / 4
}

// State is the controller's miss-handling state.
type State int

const (
	// StateCompare is the default state: requests are checked against
	// the tag arrays and served combinationally on a hit.
	StateCompare State = iota
	// StateAllocate refills a victim way one word at a time from the
	// backing port. The controller is busy for the whole refill.
	StateAllocate
)

// AccessResult is returned by Access each cycle the request is asserted.
type AccessResult struct {
	// Done is true when the request completed this cycle. While false
	// the requester must hold and reissue the same request.
	Done bool
	// Data is the word read (for read requests).
	Data uint32
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads         uint64
	Writes        uint64
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	Refills       uint64
	WriteThroughs uint64
}

// Controller is one cache instance: set-associative, write-through,
// write-allocate, with a two-state miss-refill machine. Tag, valid,
// and recency state live in an Akita cache directory; the word arrays
// are owned here.
type Controller struct {
	config    Config
	directory *akitacache.DirectoryImpl
	data      [][]uint32
	port      BackingPort

	state State

	// Latched miss bookkeeping. Exactly one outstanding miss at a time.
	missAddr  uint32
	missWrite bool
	missLanes uint32
	missMask  uint8
	victim    *akitacache.Block
	filled    int
	reqOut    bool

	// Completion handoff: set when a refill finishes, consumed by the
	// reissued request in the same cycle busy deasserts.
	done     bool
	doneData uint32

	stats Statistics
}

// New creates a cache controller with the given geometry and backing
// port. All lines start invalid.
func New(config Config, port BackingPort) *Controller {
	totalBlocks := config.Sets * config.Ways
	data := make([][]uint32, totalBlocks)
	for i := range data {
		data[i] = make([]uint32, config.LineWords())
	}

	return &Controller{
		config: config,
		directory: akitacache.NewDirectory(
			config.Sets,
			config.Ways,
			config.LineBytes,
			akitacache.NewLRUVictimFinder(),
		),
		data: data,
		port: port,
	}
}

// Config returns the cache geometry.
func (c *Controller) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Controller) Stats() Statistics {
	return c.stats
}

// State returns the controller's current state.
func (c *Controller) State() State {
	return c.state
}

// Busy reports whether a miss refill is in progress. While busy, the
// requesting stage and every stage behind it must hold.
func (c *Controller) Busy() bool {
	return c.state == StateAllocate
}

// blockIndex computes the index into the word arrays for a block.
func (c *Controller) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Ways + block.WayID
}

// lineAddr returns the line-aligned address containing addr.
func (c *Controller) lineAddr(addr uint32) uint32 {
	return addr &^ uint32(c.config.LineBytes-1)
}

// wordIndex returns the word offset of addr within its line.
func (c *Controller) wordIndex(addr uint32) int {
	return int(addr%uint32(c.config.LineBytes)) / 4
}

// Tick advances the controller and its backing port by one cycle. The
// refill machine runs here so an abandoned request (a squashed fetch,
// for example) still completes its line.
func (c *Controller) Tick() {
	c.port.Tick()

	if c.state != StateAllocate {
		return
	}

	line := c.data[c.blockIndex(c.victim)]

	if c.port.Valid() {
		line[c.filled] = c.port.ReadData()
		if c.filled == 0 {
			// The way becomes valid once the first word lands.
			c.victim.IsValid = true
		}
		c.filled++
		c.reqOut = false
	}

	if c.filled == c.config.LineWords() {
		idx := c.wordIndex(c.missAddr)
		if c.missWrite {
			merged := emu.MergeLanes(line[idx], c.missLanes, c.missMask)
			line[idx] = merged
			c.port.IssueWrite(c.missAddr, merged)
			c.stats.WriteThroughs++
		} else {
			c.doneData = line[idx]
		}
		c.directory.Visit(c.victim)
		c.stats.Refills++
		c.state = StateCompare
		c.done = true
		return
	}

	if !c.reqOut && c.port.Ready() {
		c.port.IssueRead(c.lineAddr(c.missAddr) + uint32(c.filled*4))
		c.reqOut = true
	}
}

// Access presents a request for one cycle. addr must be word-aligned;
// narrower accesses arrive pre-shifted into lanes with a byte mask (the
// byte-lane unit sits outside the cache). A request must never assert
// read and write together; the write flag selects the direction.
//
// The requester must reissue the same request every cycle until Done.
func (c *Controller) Access(addr uint32, write bool, lanes uint32, mask uint8) AccessResult {
	if c.state == StateAllocate {
		return AccessResult{}
	}

	if c.done {
		c.done = false
		if addr == c.missAddr && write == c.missWrite {
			if write {
				c.stats.Writes++
				return AccessResult{Done: true}
			}
			c.stats.Reads++
			return AccessResult{Done: true, Data: c.doneData}
		}
		// The requester changed while the refill completed; fall
		// through to a fresh lookup.
	}

	line := c.lineAddr(addr)
	block := c.directory.Lookup(0, uint64(line))

	if block != nil && block.IsValid {
		idx := c.wordIndex(addr)
		words := c.data[c.blockIndex(block)]

		if write {
			if !c.port.Ready() {
				// Write-through needs the port; hold the requester.
				return AccessResult{}
			}
			c.stats.Hits++
			merged := emu.MergeLanes(words[idx], lanes, mask)
			words[idx] = merged
			c.port.IssueWrite(addr, merged)
			c.stats.WriteThroughs++
			c.stats.Writes++
			c.directory.Visit(block)
			return AccessResult{Done: true}
		}

		c.stats.Hits++
		c.stats.Reads++
		c.directory.Visit(block)
		return AccessResult{Done: true, Data: words[idx]}
	}

	// Miss: pick a victim (invalid way first, else the way the recency
	// pointer does not mark) and start the refill.
	c.stats.Misses++
	victim := c.directory.FindVictim(uint64(line))
	if victim.IsValid {
		c.stats.Evictions++
	}
	victim.Tag = uint64(line)
	victim.IsValid = false
	victim.IsDirty = false

	c.victim = victim
	c.missAddr = addr
	c.missWrite = write
	c.missLanes = lanes
	c.missMask = mask
	c.filled = 0
	c.reqOut = false
	c.state = StateAllocate

	return AccessResult{}
}

// Reset invalidates every line and drops any in-flight refill.
func (c *Controller) Reset() {
	c.directory.Reset()
	c.state = StateCompare
	c.done = false
	c.reqOut = false
	c.filled = 0
	c.stats = Statistics{}
}
