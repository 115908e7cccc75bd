package simulator_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/simulator"
)

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "config-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("should default to the reference cache", func() {
		config := simulator.DefaultConfig()
		Expect(config.Cache.BlockSize).To(Equal(uint64(16)))
		Expect(config.Cache.Associativity).To(Equal(uint64(1)))
		Expect(config.Cache.Capacity).To(Equal(uint64(16384)))
		Expect(config.Timing.MissPenalty).To(Equal(uint32(30)))
		Expect(config.Timing.DirtyWritebackPenalty).To(Equal(uint32(2)))
		Expect(config.Validate()).To(Succeed())
		Expect(config.Name()).To(Equal("16B-1way-16KB"))
	})

	DescribeTable("should round-trip through a file",
		func(name string) {
			config := simulator.DefaultConfig()
			config.Cache.Associativity = 4
			config.Cache.Capacity = 2 << 20
			config.Timing.MissPenalty = 100

			path := filepath.Join(dir, name)
			Expect(config.SaveConfig(path)).To(Succeed())

			loaded, err := simulator.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(config))
			Expect(loaded.Name()).To(Equal("16B-4way-2MB"))
		},
		Entry("JSON", "cache.json"),
		Entry("YAML", "cache.yaml"),
	)

	It("should keep defaults for fields missing from the file", func() {
		path := filepath.Join(dir, "partial.yml")
		Expect(os.WriteFile(path, []byte("cache:\n  capacity: 4096\n"), 0644)).To(Succeed())

		config, err := simulator.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(config.Cache.Capacity).To(Equal(uint64(4096)))
		Expect(config.Cache.BlockSize).To(Equal(uint64(16)))
		Expect(config.Timing.MissPenalty).To(Equal(uint32(30)))
	})

	It("should fail on a malformed file", func() {
		path := filepath.Join(dir, "bad.json")
		Expect(os.WriteFile(path, []byte("{"), 0644)).To(Succeed())

		_, err := simulator.LoadConfig(path)
		Expect(err).To(HaveOccurred())
	})

	It("should clone independently", func() {
		config := simulator.DefaultConfig()
		clone := config.Clone()
		clone.Timing.MissPenalty = 1
		Expect(config.Timing.MissPenalty).To(Equal(uint32(30)))
	})
})
