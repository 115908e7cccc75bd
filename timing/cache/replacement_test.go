package cache_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/timing/cache"
)

func priorities(set []cache.Line) []uint32 {
	ranks := make([]uint32, len(set))
	for i, l := range set {
		ranks[i] = l.Priority
	}
	return ranks
}

func allValid(set []cache.Line) bool {
	for _, l := range set {
		if !l.Valid {
			return false
		}
	}
	return true
}

var _ = Describe("StackLRU", func() {
	var (
		lru *cache.StackLRU
		set []cache.Line
	)

	BeforeEach(func() {
		lru = cache.NewStackLRU()
		set = make([]cache.Line, 4)
	})

	Describe("Cold fill", func() {
		It("should fill free slots in order without evicting", func() {
			for i, tag := range []uint64{10, 20, 30, 40} {
				res := lru.Resolve(set, tag, false)
				Expect(res.Hit).To(BeFalse())
				Expect(res.Way).To(Equal(i))
				Expect(res.Evicted).To(BeFalse())
				Expect(res.DirtyWriteback).To(BeFalse())
			}
		})

		It("should rank filled lines ahead of free ones", func() {
			lru.Resolve(set, 10, false)
			Expect(priorities(set)).To(Equal([]uint32{0, 1, 1, 1}))

			lru.Resolve(set, 20, false)
			Expect(priorities(set)).To(Equal([]uint32{1, 0, 2, 2}))

			lru.Resolve(set, 30, false)
			Expect(priorities(set)).To(Equal([]uint32{2, 1, 0, 3}))

			lru.Resolve(set, 40, false)
			Expect(priorities(set)).To(Equal([]uint32{3, 2, 1, 0}))
		})

		It("should take the first free slot in scan order", func() {
			set[2] = cache.Line{Tag: 7, Valid: true}

			res := lru.Resolve(set, 8, false)
			Expect(res.Way).To(Equal(0))
		})
	})

	Describe("Hits", func() {
		BeforeEach(func() {
			for _, tag := range []uint64{10, 20, 30, 40} {
				lru.Resolve(set, tag, false)
			}
		})

		It("should hit on resident tags", func() {
			res := lru.Resolve(set, 20, false)
			Expect(res.Hit).To(BeTrue())
			Expect(res.Way).To(Equal(1))
		})

		It("should promote the hit line and push down newer lines only", func() {
			// ranks before: {3, 2, 1, 0}; hit way 1 (rank 2)
			lru.Resolve(set, 20, false)
			Expect(priorities(set)).To(Equal([]uint32{3, 0, 2, 1}))
		})

		It("should leave ranks unchanged when hitting the MRU line", func() {
			lru.Resolve(set, 40, false)
			Expect(priorities(set)).To(Equal([]uint32{3, 2, 1, 0}))
		})
	})

	Describe("Eviction", func() {
		It("should evict the least recently used tag", func() {
			tags := []uint64{1, 2, 3, 4}
			for _, tag := range tags {
				Expect(lru.Resolve(set, tag, false).Hit).To(BeFalse())
			}
			for _, tag := range tags {
				Expect(lru.Resolve(set, tag, false).Hit).To(BeTrue())
			}

			res := lru.Resolve(set, 5, false)
			Expect(res.Hit).To(BeFalse())
			Expect(res.Evicted).To(BeTrue())
			Expect(res.EvictedTag).To(Equal(uint64(1)))
			Expect(res.Way).To(Equal(0))

			// T1 is gone, the others remain.
			Expect(lru.Resolve(set, 2, false).Hit).To(BeTrue())
			Expect(lru.Resolve(set, 1, false).Hit).To(BeFalse())
		})

		It("should break rank ties by lowest slot", func() {
			for i := range set {
				set[i] = cache.Line{Tag: uint64(i + 1), Valid: true, Priority: 3}
			}

			res := lru.Resolve(set, 99, false)
			Expect(res.Way).To(Equal(0))
		})
	})

	Describe("Dirty writeback", func() {
		It("should report a writeback when a written line is evicted", func() {
			lru.Resolve(set, 1, true)
			for _, tag := range []uint64{2, 3, 4} {
				lru.Resolve(set, tag, false)
			}

			res := lru.Resolve(set, 5, false)
			Expect(res.EvictedTag).To(Equal(uint64(1)))
			Expect(res.DirtyWriteback).To(BeTrue())
		})

		It("should not report a writeback for a line only read", func() {
			for _, tag := range []uint64{1, 2, 3, 4} {
				lru.Resolve(set, tag, false)
			}

			res := lru.Resolve(set, 5, true)
			Expect(res.DirtyWriteback).To(BeFalse())
		})

		It("should let a read clear the dirty flag", func() {
			lru.Resolve(set, 1, true)
			Expect(set[0].Dirty).To(BeTrue())

			lru.Resolve(set, 1, false)
			Expect(set[0].Dirty).To(BeFalse())
		})

		It("should mark the new occupant by its own access type", func() {
			lru.Resolve(set, 1, true)
			for _, tag := range []uint64{2, 3, 4} {
				lru.Resolve(set, tag, false)
			}

			res := lru.Resolve(set, 5, false)
			Expect(set[res.Way].Dirty).To(BeFalse())
			Expect(set[res.Way].Tag).To(Equal(uint64(5)))
		})
	})

	Describe("Invariants", func() {
		It("should keep ranks a permutation once the set is full", func() {
			rng := rand.New(rand.NewSource(42))
			want := []uint32{0, 1, 2, 3}

			for i := 0; i < 2000; i++ {
				tag := uint64(rng.Intn(7))
				lru.Resolve(set, tag, rng.Intn(2) == 0)

				if allValid(set) {
					Expect(priorities(set)).To(ConsistOf(want))
				}
			}
		})

		It("should never hold a tag twice", func() {
			rng := rand.New(rand.NewSource(7))

			for i := 0; i < 2000; i++ {
				lru.Resolve(set, uint64(rng.Intn(9)), false)

				seen := map[uint64]bool{}
				for _, l := range set {
					if !l.Valid {
						continue
					}
					Expect(seen[l.Tag]).To(BeFalse())
					seen[l.Tag] = true
				}
			}
		})
	})
})
