package report_test

import (
	"bytes"
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/simulator"
	"github.com/sarchlab/cachesim/timing/cache"
)

func sampleReport() simulator.Report {
	stats := cache.Statistics{
		Accesses:        4,
		Writes:          1,
		Misses:          3,
		DirtyWritebacks: 1,
		Instructions:    4,
		Cycles:          92,
	}
	return simulator.Report{
		RunID:   "run-1",
		Config:  *simulator.DefaultConfig(),
		Stats:   stats,
		Metrics: stats.Derive(),
	}
}

var _ = Describe("Report", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = new(bytes.Buffer)
	})

	It("should print settings and statistics as text", func() {
		report.WriteText(buf, sampleReport())

		Expect(buf.String()).To(Equal(strings.Join([]string{
			"CACHE SETTINGS",
			"       Cache Size (Bytes): 16384",
			"           Associativity : 1",
			"       Block Size (Bytes): 16",
			"    Miss Penalty (Cycles): 30",
			"Dirty WB Penalty (Cycles): 2",
			"",
			"CACHE STATS",
			"TOTAL ACCESSES: 4",
			"         READS: 3",
			"        WRITES: 1",
			"",
			"     MISS-RATE: 75.000000",
			"        MISSES: 3",
			"          HITS: 1",
			"",
			"           IPC: 0.043478",
			"  INSTRUCTIONS: 4",
			"        CYCLES: 92",
			"      DIRTY WB: 1",
			"",
		}, "\n")))
	})

	It("should print undefined metrics for an empty run", func() {
		r := simulator.Report{Config: *simulator.DefaultConfig()}
		r.Metrics = r.Stats.Derive()

		report.WriteText(buf, r)
		Expect(buf.String()).To(ContainSubstring("MISS-RATE: undefined"))
		Expect(buf.String()).To(ContainSubstring("IPC: undefined"))
	})

	It("should encode one report as a JSON object", func() {
		Expect(report.WriteJSON(buf, sampleReport())).To(Succeed())

		var decoded map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded["run_id"]).To(Equal("run-1"))
		Expect(decoded["metrics"]).To(HaveKeyWithValue("miss_rate", 75.0))
		Expect(decoded["stats"]).To(HaveKeyWithValue("dirty_writebacks", 1.0))
	})

	It("should encode several reports as a JSON array", func() {
		Expect(report.WriteJSON(buf, sampleReport(), sampleReport())).To(Succeed())

		var decoded []any
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded).To(HaveLen(2))
	})

	It("should write one CSV row per report", func() {
		empty := simulator.Report{RunID: "run-2", Config: *simulator.DefaultConfig()}
		empty.Metrics = empty.Stats.Derive()

		report.WriteCSV(buf, sampleReport(), empty)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(Equal(report.CSVHeader))
		Expect(lines[1]).To(Equal(
			"run-1,16B-1way-16KB,16,1,16384,30,2,4,3,1,3,1,75.000000,4,92,0.043478,1"))
		Expect(lines[2]).To(Equal(
			"run-2,16B-1way-16KB,16,1,16384,30,2,0,0,0,0,0,,0,0,,0"))
	})

	DescribeTable("format names",
		func(name string, want report.Format, ok bool) {
			f, err := report.ParseFormat(name)
			if !ok {
				Expect(err).To(HaveOccurred())
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(f).To(Equal(want))
		},
		Entry("text", "text", report.FormatText, true),
		Entry("upper-case JSON", "JSON", report.FormatJSON, true),
		Entry("csv", "csv", report.FormatCSV, true),
		Entry("unknown", "xml", report.Format(""), false),
	)
})
