package trace_test

import (
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/trace"
)

var _ = Describe("ParseLine", func() {
	It("should decode a read", func() {
		rec, err := trace.ParseLine("# 0 7fffed80 1")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec).To(Equal(trace.Record{IsWrite: false, Address: 0x7fffed80, Instructions: 1}))
	})

	It("should decode a write with a 0x prefix", func() {
		rec, err := trace.ParseLine("# 1 0x10010000 12")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.IsWrite).To(BeTrue())
		Expect(rec.Address).To(Equal(uint64(0x10010000)))
		Expect(rec.Instructions).To(Equal(uint32(12)))
	})

	It("should accept full 64-bit addresses", func() {
		rec, err := trace.ParseLine("#\t0\tffffffffffffffff\t0")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Address).To(Equal(uint64(0xffffffffffffffff)))
	})

	DescribeTable("malformed lines",
		func(line string) {
			_, err := trace.ParseLine(line)
			Expect(err).To(HaveOccurred())
		},
		Entry("missing marker", "0 7fffed80 1"),
		Entry("missing field", "# 0 7fffed80"),
		Entry("extra field", "# 0 7fffed80 1 9"),
		Entry("non-numeric type", "# r 7fffed80 1"),
		Entry("non-hex address", "# 0 zz 1"),
		Entry("negative instructions", "# 0 7fffed80 -1"),
		Entry("instruction count overflow", "# 0 7fffed80 4294967296"),
	)

	It("should format records back into trace syntax", func() {
		rec := trace.Record{IsWrite: true, Address: 0xbeef, Instructions: 3}
		Expect(trace.FormatLine(rec)).To(Equal("# 1 beef 3"))

		parsed, err := trace.ParseLine(trace.FormatLine(rec))
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(Equal(rec))
	})
})

var _ = Describe("Reader", func() {
	It("should yield records lazily and end with io.EOF", func() {
		r := trace.NewReader(strings.NewReader("# 0 10 1\n\n# 1 20 2\n"))

		rec, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Address).To(Equal(uint64(0x10)))

		rec, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Address).To(Equal(uint64(0x20)))
		Expect(r.Line()).To(Equal(3))

		_, err = r.Next()
		Expect(err).To(Equal(io.EOF))
	})

	It("should report the line number of a malformed record", func() {
		r := trace.NewReader(strings.NewReader("# 0 10 1\n# 0 bogus\n"))

		_, err := r.Next()
		Expect(err).NotTo(HaveOccurred())

		_, err = r.Next()
		var perr *trace.ParseError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.Line).To(Equal(2))
		Expect(perr.Error()).To(ContainSubstring("trace line 2"))
	})

	It("should handle a trace without a trailing newline", func() {
		records, err := trace.Collect(trace.NewReader(strings.NewReader("# 0 10 1\n# 1 20 2")))
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
	})
})

var _ = Describe("SliceSource", func() {
	It("should replay records in order and rewind", func() {
		src := trace.NewSliceSource([]trace.Record{{Address: 1}, {Address: 2}})
		Expect(src.Len()).To(Equal(2))

		records, err := trace.Collect(src)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))

		_, err = src.Next()
		Expect(err).To(Equal(io.EOF))

		src.Rewind()
		rec, err := src.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Address).To(Equal(uint64(1)))
	})
})
