package reference_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/timing/cache"
	"github.com/sarchlab/cachesim/timing/cache/reference"
	"github.com/sarchlab/cachesim/trace"
)

var _ = Describe("Model", func() {
	var m *reference.Model

	BeforeEach(func() {
		var err error
		// 2 sets, 2 ways, 16B lines
		m, err = reference.NewModel(cache.Config{BlockSize: 16, Associativity: 2, Capacity: 64})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject an invalid geometry", func() {
		_, err := reference.NewModel(cache.Config{BlockSize: 16, Associativity: 3, Capacity: 64})
		Expect(err).To(MatchError(cache.ErrInvalidConfig))
	})

	It("should hit after a fill", func() {
		hit, _ := m.Access(false, 0x100)
		Expect(hit).To(BeFalse())

		hit, _ = m.Access(false, 0x10F)
		Expect(hit).To(BeTrue())
		Expect(m.Resident(0x100)).To(BeTrue())
	})

	It("should evict the least recently used block", func() {
		// 0x00, 0x20, 0x40 share set 0
		m.Access(false, 0x00)
		m.Access(false, 0x20)
		m.Access(true, 0x00)

		hit, wb := m.Access(false, 0x40)
		Expect(hit).To(BeFalse())
		Expect(wb).To(BeFalse())
		Expect(m.Resident(0x20)).To(BeFalse())
		Expect(m.Resident(0x00)).To(BeTrue())

		_, wb = m.Access(false, 0x20)
		Expect(wb).To(BeTrue())
	})

	It("should forget everything on reset", func() {
		m.Access(false, 0x100)
		m.Reset()
		Expect(m.Resident(0x100)).To(BeFalse())
	})
})

var _ = Describe("Verifier", func() {
	DescribeTable("should agree with the cache model on random traffic",
		func(config cache.Config, span uint64, seed int64) {
			c, err := cache.New(config, nil)
			Expect(err).NotTo(HaveOccurred())
			v, err := reference.NewVerifier(config)
			Expect(err).NotTo(HaveOccurred())

			rng := rand.New(rand.NewSource(seed))
			for i := uint64(0); i < 20000; i++ {
				rec := trace.Record{
					IsWrite: rng.Intn(3) == 0,
					Address: uint64(rng.Int63n(int64(span))),
				}
				v.OnAccess(i, rec, c.Probe(rec.IsWrite, rec.Address))
			}

			Expect(v.Checked()).To(Equal(uint64(20000)))
			Expect(v.Err()).NotTo(HaveOccurred())
			Expect(v.Divergences()).To(BeEmpty())
		},
		Entry("direct-mapped", cache.Config{BlockSize: 16, Associativity: 1, Capacity: 1024}, uint64(8192), int64(1)),
		Entry("4-way", cache.Config{BlockSize: 64, Associativity: 4, Capacity: 4096}, uint64(32768), int64(2)),
		Entry("fully associative", cache.Config{BlockSize: 32, Associativity: 8, Capacity: 256}, uint64(1024), int64(3)),
	)

	It("should report a disagreeing access", func() {
		config := cache.Config{BlockSize: 16, Associativity: 1, Capacity: 64}
		v, err := reference.NewVerifier(config)
		Expect(err).NotTo(HaveOccurred())

		rec := trace.Record{Address: 0x40}
		v.OnAccess(0, rec, cache.AccessResult{Hit: true})

		Expect(v.Count()).To(Equal(uint64(1)))
		Expect(v.Err()).To(MatchError(ContainSubstring("1 of 1 accesses")))

		d := v.Divergences()
		Expect(d).To(HaveLen(1))
		Expect(d[0].WantHit).To(BeFalse())
		Expect(d[0].GotHit).To(BeTrue())
		Expect(d[0].String()).To(ContainSubstring("# 0 40 0"))
	})

	It("should keep a bounded number of divergences", func() {
		v, err := reference.NewVerifier(cache.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 2*reference.MaxKeptDivergences; i++ {
			v.OnAccess(uint64(i), trace.Record{Address: uint64(i) << 20}, cache.AccessResult{Hit: true})
		}

		Expect(v.Count()).To(Equal(uint64(2 * reference.MaxKeptDivergences)))
		Expect(v.Divergences()).To(HaveLen(reference.MaxKeptDivergences))
	})
})
