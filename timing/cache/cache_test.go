package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/r5sim/emu"
	"github.com/sarchlab/r5sim/timing/cache"
	"github.com/sarchlab/r5sim/timing/latency"
)

var _ = Describe("Controller", func() {
	var (
		memory     *emu.Memory
		port       *cache.MemoryPort
		controller *cache.Controller
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		for i := uint32(0); i < 0x1000; i += 4 {
			memory.Write32(i, 0x1000_0000+i)
		}
		port = cache.NewMemoryPort(memory, latency.NewModel())
		controller = cache.New(cache.DefaultConfig(), port)
	})

	// readUntilDone reissues a read every cycle until the controller
	// completes it, returning the data and the cycles spent.
	readUntilDone := func(addr uint32) (uint32, int) {
		for cycle := 1; cycle <= 100; cycle++ {
			result := controller.Access(addr, false, 0, 0)
			if result.Done {
				return result.Data, cycle
			}
			controller.Tick()
		}
		Fail("read never completed")
		return 0, 0
	}

	writeUntilDone := func(addr uint32, lanes uint32, mask uint8) {
		for cycle := 1; cycle <= 100; cycle++ {
			result := controller.Access(addr, true, lanes, mask)
			if result.Done {
				return
			}
			controller.Tick()
		}
		Fail("write never completed")
	}

	Describe("geometry", func() {
		It("should default to 1 KiB of 16-byte lines", func() {
			config := cache.DefaultConfig()
			Expect(config.Sets).To(Equal(32))
			Expect(config.Ways).To(Equal(2))
			Expect(config.LineBytes).To(Equal(16))
			Expect(config.Size()).To(Equal(1024))
			Expect(config.LineWords()).To(Equal(4))
		})
	})

	Describe("read path", func() {
		It("should miss cold, refill, and return the word", func() {
			data, cycles := readUntilDone(0x100)

			Expect(data).To(Equal(uint32(0x1000_0100)))
			Expect(cycles).To(BeNumerically(">", 1))
			Expect(controller.Stats().Misses).To(Equal(uint64(1)))
			Expect(controller.Stats().Refills).To(Equal(uint64(1)))
		})

		It("should hit in one cycle after a refill", func() {
			readUntilDone(0x100)

			result := controller.Access(0x100, false, 0, 0)
			Expect(result.Done).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(0x1000_0100)))
			Expect(controller.Stats().Hits).To(Equal(uint64(1)))
		})

		It("should serve the whole refilled line", func() {
			readUntilDone(0x100)

			for offset := uint32(0); offset < 16; offset += 4 {
				result := controller.Access(0x100+offset, false, 0, 0)
				Expect(result.Done).To(BeTrue())
				Expect(result.Data).To(Equal(uint32(0x1000_0100 + offset)))
			}
		})

		It("should stay busy through the refill", func() {
			controller.Access(0x100, false, 0, 0)
			Expect(controller.Busy()).To(BeTrue())
			Expect(controller.State()).To(Equal(cache.StateAllocate))

			controller.Tick()
			Expect(controller.Busy()).To(BeTrue())
		})

		It("should finish an abandoned refill", func() {
			controller.Access(0x100, false, 0, 0)
			for controller.Busy() {
				controller.Tick()
			}

			// A different request arrives instead of the reissue.
			data, cycles := readUntilDone(0x104)
			Expect(data).To(Equal(uint32(0x1000_0104)))
			Expect(cycles).To(Equal(1))
		})
	})

	Describe("write path", func() {
		It("should write through on a hit", func() {
			readUntilDone(0x200)

			writeUntilDone(0x200, 0xDEAD_BEEF, 0xF)

			result := controller.Access(0x200, false, 0, 0)
			Expect(result.Done).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(0xDEAD_BEEF)))
			Expect(memory.Read32(0x200)).To(Equal(uint32(0xDEAD_BEEF)))
		})

		It("should allocate on a write miss and apply the store after the fill", func() {
			writeUntilDone(0x300, 0x0000_5500, 0x2)

			result := controller.Access(0x300, false, 0, 0)
			Expect(result.Done).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(0x1000_5500)))
			Expect(memory.Read32(0x300)).To(Equal(uint32(0x1000_5500)))
			Expect(controller.Stats().Misses).To(Equal(uint64(1)))
			Expect(controller.Stats().WriteThroughs).To(Equal(uint64(1)))
		})

		It("should merge byte lanes into the cached word", func() {
			readUntilDone(0x400)

			writeUntilDone(0x400, 0x0000_AB00, 0x2)

			result := controller.Access(0x400, false, 0, 0)
			Expect(result.Done).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(0x1000_AB00)))
		})
	})

	Describe("replacement", func() {
		// Addresses 0x000, 0x200, 0x400 all index set 0.
		It("should fill the invalid way before evicting", func() {
			readUntilDone(0x000)
			readUntilDone(0x200)

			Expect(controller.Stats().Evictions).To(Equal(uint64(0)))

			// Both ways valid; the set still holds both lines.
			Expect(controller.Access(0x000, false, 0, 0).Done).To(BeTrue())
			Expect(controller.Access(0x200, false, 0, 0).Done).To(BeTrue())
		})

		It("should evict the way not most recently used", func() {
			readUntilDone(0x000)
			readUntilDone(0x200)
			readUntilDone(0x000) // 0x000 most recent

			readUntilDone(0x400) // evicts 0x200

			Expect(controller.Stats().Evictions).To(Equal(uint64(1)))
			Expect(controller.Access(0x000, false, 0, 0).Done).To(BeTrue())
			Expect(controller.Access(0x400, false, 0, 0).Done).To(BeTrue())

			// 0x200 misses again.
			result := controller.Access(0x200, false, 0, 0)
			Expect(result.Done).To(BeFalse())
		})
	})

	Describe("Reset", func() {
		It("should invalidate every line", func() {
			readUntilDone(0x100)
			controller.Reset()

			result := controller.Access(0x100, false, 0, 0)
			Expect(result.Done).To(BeFalse())
			Expect(controller.Stats().Misses).To(Equal(uint64(1)))
		})
	})
})

var _ = Describe("MemoryPort", func() {
	var (
		memory *emu.Memory
		port   *cache.MemoryPort
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		memory.Write32(0x40, 0xCAFE_F00D)
		port = cache.NewMemoryPort(memory, latency.NewModel())
	})

	It("should return read data after the configured latency", func() {
		Expect(port.Ready()).To(BeTrue())
		port.IssueRead(0x40)
		Expect(port.Ready()).To(BeFalse())

		port.Tick()
		Expect(port.Valid()).To(BeFalse())

		port.Tick()
		Expect(port.Valid()).To(BeTrue())
		Expect(port.ReadData()).To(Equal(uint32(0xCAFE_F00D)))
		Expect(port.Ready()).To(BeTrue())
	})

	It("should hold valid for exactly one cycle", func() {
		port.IssueRead(0x40)
		port.Tick()
		port.Tick()
		Expect(port.Valid()).To(BeTrue())

		port.Tick()
		Expect(port.Valid()).To(BeFalse())
	})

	It("should complete a read even with a zero-latency config", func() {
		config := latency.DefaultMemTimingConfig()
		config.ReadLatency = 0
		port = cache.NewMemoryPort(memory, latency.NewModelWithConfig(config))

		port.IssueRead(0x40)
		port.Tick()
		Expect(port.Valid()).To(BeTrue())
		Expect(port.ReadData()).To(Equal(uint32(0xCAFE_F00D)))
		Expect(port.Ready()).To(BeTrue())
	})

	It("should apply writes and free up after the write latency", func() {
		port.IssueWrite(0x80, 0x1234_5678)
		Expect(memory.Read32(0x80)).To(Equal(uint32(0x1234_5678)))
		Expect(port.Ready()).To(BeFalse())

		port.Tick()
		Expect(port.Ready()).To(BeTrue())
		Expect(port.Valid()).To(BeFalse())
	})

	It("should apply jitter to the configured read cadence", func() {
		config := latency.DefaultMemTimingConfig()
		config.JitterPeriod = 2
		config.JitterExtra = 3
		jittery := cache.NewMemoryPort(memory, latency.NewModelWithConfig(config))

		jittery.IssueRead(0x40)
		jittery.Tick()
		jittery.Tick()
		Expect(jittery.Valid()).To(BeTrue())

		// Second read carries the extra latency.
		jittery.IssueRead(0x40)
		for i := 0; i < 4; i++ {
			jittery.Tick()
			Expect(jittery.Valid()).To(BeFalse())
		}
		jittery.Tick()
		Expect(jittery.Valid()).To(BeTrue())
	})
})
