package latency_test

import (
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/timing/latency"
)

var _ = Describe("Latency", func() {
	var table *latency.Table

	BeforeEach(func() {
		table = latency.NewTable()
	})

	Describe("Default Timing Values", func() {
		It("should have correct miss penalty", func() {
			Expect(table.Config().MissPenalty).To(Equal(uint32(30)))
		})

		It("should have correct dirty writeback penalty", func() {
			Expect(table.Config().DirtyWritebackPenalty).To(Equal(uint32(2)))
		})

		It("should not charge a base access cost", func() {
			Expect(table.AccessCycles()).To(BeZero())
		})
	})

	Describe("Extra Cycles", func() {
		It("should charge nothing for a hit", func() {
			Expect(table.ExtraCycles(true, false)).To(BeZero())
		})

		It("should charge the miss penalty for a clean miss", func() {
			Expect(table.ExtraCycles(false, false)).To(Equal(uint32(30)))
		})

		It("should charge both penalties for a dirty miss", func() {
			Expect(table.ExtraCycles(false, true)).To(Equal(uint32(32)))
			Expect(table.WorstCase()).To(Equal(uint32(32)))
		})
	})

	Describe("Custom Configuration", func() {
		It("should use custom config values", func() {
			config := &latency.TimingConfig{
				MissPenalty:           100,
				DirtyWritebackPenalty: 7,
				AccessCycles:          1,
			}
			custom := latency.NewTableWithConfig(config)

			Expect(custom.ExtraCycles(false, false)).To(Equal(uint32(100)))
			Expect(custom.ExtraCycles(false, true)).To(Equal(uint32(107)))
			Expect(custom.AccessCycles()).To(Equal(uint32(1)))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	Describe("Validation", func() {
		It("should accept the default config", func() {
			Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
		})

		It("should reject penalties that overflow 32 bits", func() {
			config := latency.DefaultTimingConfig()
			config.MissPenalty = math.MaxUint32
			config.DirtyWritebackPenalty = 1
			Expect(config.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()

			clone.MissPenalty = 100

			Expect(original.MissPenalty).To(Equal(uint32(30)))
			Expect(clone.MissPenalty).To(Equal(uint32(100)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.MissPenalty = 50
			original.AccessCycles = 1

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.MissPenalty).To(Equal(uint32(50)))
			Expect(loaded.DirtyWritebackPenalty).To(Equal(uint32(2)))
			Expect(loaded.AccessCycles).To(Equal(uint32(1)))
		})

		It("should keep defaults for omitted fields", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"miss_penalty": 12}`), 0644)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.MissPenalty).To(Equal(uint32(12)))
			Expect(loaded.DirtyWritebackPenalty).To(Equal(uint32(2)))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
