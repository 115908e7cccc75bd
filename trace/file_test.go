package trace_test

import (
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/trace"
)

var _ = Describe("Trace files", func() {
	var (
		tempDir string
		records []trace.Record
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "trace-test")
		Expect(err).NotTo(HaveOccurred())

		records = []trace.Record{
			{IsWrite: false, Address: 0x7fffed80, Instructions: 1},
			{IsWrite: true, Address: 0x10010000, Instructions: 4},
			{IsWrite: false, Address: 0x4000, Instructions: 0},
		}
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	writeTrace := func(name string) string {
		path := filepath.Join(tempDir, name)
		w, err := trace.Create(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.WriteAll(trace.NewSliceSource(records))).To(Succeed())
		Expect(w.Count()).To(Equal(uint64(len(records))))
		Expect(w.Close()).To(Succeed())
		return path
	}

	DescribeTable("should read back what was written",
		func(name string, compression trace.Compression) {
			path := writeTrace(name)

			src, err := trace.Open(path)
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = src.Close() }()

			Expect(src.Compression()).To(Equal(compression))
			Expect(src.Path()).To(Equal(path))

			got, err := trace.Collect(src)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(records))
		},
		Entry("plain text", "t.trace", trace.CompressionNone),
		Entry("gzip", "t.trace.gz", trace.CompressionGzip),
		Entry("zstd", "t.trace.zst", trace.CompressionZstd),
		Entry("lz4", "t.trace.lz4", trace.CompressionLZ4),
	)

	It("should digest the decoded content independently of compression", func() {
		digest := func(name string) uint64 {
			src, err := trace.Open(writeTrace(name))
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = src.Close() }()

			_, err = trace.Collect(src)
			Expect(err).NotTo(HaveOccurred())
			return src.Digest()
		}

		plain := digest("d.trace")
		Expect(plain).NotTo(BeZero())
		Expect(digest("d.trace.gz")).To(Equal(plain))
		Expect(digest("d.trace.zst")).To(Equal(plain))
	})

	It("should open an empty trace", func() {
		path := filepath.Join(tempDir, "empty.trace")
		Expect(os.WriteFile(path, nil, 0644)).To(Succeed())

		src, err := trace.Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = src.Close() }()

		_, err = src.Next()
		Expect(err).To(Equal(io.EOF))
	})

	It("should fail for a missing file", func() {
		_, err := trace.Open(filepath.Join(tempDir, "missing.trace"))
		Expect(err).To(HaveOccurred())
	})

	It("should tolerate closing twice", func() {
		src, err := trace.Open(writeTrace("c.trace.gz"))
		Expect(err).NotTo(HaveOccurred())
		Expect(src.Close()).To(Succeed())
		Expect(src.Close()).To(Succeed())
	})
})
