package pipeline

import (
	"github.com/sarchlab/r5sim/timing/cache"
)

// CachedFetchStage fetches instruction words through the L1 instruction
// cache. A miss produces fetch bubbles: the stage reports not-done and
// the fetch unit holds the PC, reissuing the same request each cycle
// until the refill completes.
type CachedFetchStage struct {
	cache *cache.Controller
}

// NewCachedFetchStage creates a new cached fetch stage.
func NewCachedFetchStage(icache *cache.Controller) *CachedFetchStage {
	return &CachedFetchStage{cache: icache}
}

// Fetch presents the PC to the I-cache for one cycle. ok is false while
// the line is being refilled.
func (s *CachedFetchStage) Fetch(pc uint32) (word uint32, ok bool) {
	result := s.cache.Access(pc, false, 0, 0)
	return result.Data, result.Done
}

// Tick advances the I-cache refill machine.
func (s *CachedFetchStage) Tick() {
	s.cache.Tick()
}

// CacheStats returns the underlying cache statistics.
func (s *CachedFetchStage) CacheStats() cache.Statistics {
	return s.cache.Stats()
}

// CachedMemoryStage performs loads and stores through the L1 data
// cache. While a request is not done, the MEM stage and everything
// behind it hold; the instruction replays the identical request each
// cycle until the cache completes it.
type CachedMemoryStage struct {
	cache *cache.Controller
}

// NewCachedMemoryStage creates a new cached memory stage.
func NewCachedMemoryStage(dcache *cache.Controller) *CachedMemoryStage {
	return &CachedMemoryStage{cache: dcache}
}

// MemoryResult holds the result of a memory stage access.
type MemoryResult struct {
	// MemData is the aligned word read from the cache (for loads).
	MemData uint32
}

// Access performs the memory access for the instruction in EX/MEM.
// Returns the result and whether the pipeline must stall.
func (s *CachedMemoryStage) Access(exmem *EXMEMRegister) (MemoryResult, bool) {
	result := MemoryResult{}

	if !exmem.Valid || exmem.Trap {
		return result, false
	}
	if !exmem.MemRead && !exmem.MemWrite {
		return result, false
	}

	aligned := exmem.EffAddr &^ 0x3

	if exmem.MemWrite {
		r := s.cache.Access(aligned, true, exmem.StoreLanes, exmem.LaneMask)
		return result, !r.Done
	}

	r := s.cache.Access(aligned, false, 0, 0)
	if !r.Done {
		return result, true
	}
	result.MemData = r.Data
	return result, false
}

// Tick advances the D-cache refill machine.
func (s *CachedMemoryStage) Tick() {
	s.cache.Tick()
}

// CacheStats returns the underlying cache statistics.
func (s *CachedMemoryStage) CacheStats() cache.Statistics {
	return s.cache.Stats()
}
