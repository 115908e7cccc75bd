// Package report renders simulation reports for people and for scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/cachesim/simulator"
	"github.com/sarchlab/cachesim/timing/cache"
)

// Format selects how reports are rendered.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or csv)", name)
}

// Write renders the reports in the given format.
func Write(w io.Writer, format Format, reports ...simulator.Report) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, reports...)
	case FormatCSV:
		WriteCSV(w, reports...)
	default:
		for i, r := range reports {
			if i > 0 {
				_, _ = fmt.Fprintln(w)
			}
			WriteText(w, r)
		}
	}
	return nil
}

// WriteText prints the cache settings followed by the cache statistics.
func WriteText(w io.Writer, r simulator.Report) {
	c := r.Config
	_, _ = fmt.Fprintln(w, "CACHE SETTINGS")
	_, _ = fmt.Fprintf(w, "       Cache Size (Bytes): %d\n", c.Cache.Capacity)
	_, _ = fmt.Fprintf(w, "           Associativity : %d\n", c.Cache.Associativity)
	_, _ = fmt.Fprintf(w, "       Block Size (Bytes): %d\n", c.Cache.BlockSize)
	_, _ = fmt.Fprintf(w, "    Miss Penalty (Cycles): %d\n", c.Timing.MissPenalty)
	_, _ = fmt.Fprintf(w, "Dirty WB Penalty (Cycles): %d\n", c.Timing.DirtyWritebackPenalty)
	if c.Timing.AccessCycles > 0 {
		_, _ = fmt.Fprintf(w, "  Access Cycles (Cycles): %d\n", c.Timing.AccessCycles)
	}
	_, _ = fmt.Fprintln(w)

	s := r.Stats
	m := r.Metrics
	_, _ = fmt.Fprintln(w, "CACHE STATS")
	_, _ = fmt.Fprintf(w, "TOTAL ACCESSES: %d\n", s.Accesses)
	_, _ = fmt.Fprintf(w, "         READS: %d\n", s.Reads())
	_, _ = fmt.Fprintf(w, "        WRITES: %d\n", s.Writes)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "     MISS-RATE: %s\n", m.MissRate)
	_, _ = fmt.Fprintf(w, "        MISSES: %d\n", s.Misses)
	_, _ = fmt.Fprintf(w, "          HITS: %d\n", s.Hits())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "           IPC: %s\n", m.IPC)
	_, _ = fmt.Fprintf(w, "  INSTRUCTIONS: %d\n", s.Instructions)
	_, _ = fmt.Fprintf(w, "        CYCLES: %d\n", s.Cycles)
	_, _ = fmt.Fprintf(w, "      DIRTY WB: %d\n", s.DirtyWritebacks)
}

// WriteJSON encodes a single report as an object and several as an array.
func WriteJSON(w io.Writer, reports ...simulator.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if len(reports) == 1 {
		return encoder.Encode(reports[0])
	}
	if reports == nil {
		reports = []simulator.Report{}
	}
	return encoder.Encode(reports)
}

// CSVHeader lists the columns written by WriteCSV.
const CSVHeader = "run_id,config,block_size,associativity,capacity," +
	"miss_penalty,dirty_wb_penalty,accesses,reads,writes,misses,hits," +
	"miss_rate,instructions,cycles,ipc,dirty_wb"

// WriteCSV prints one row per report. Undefined ratios are left empty.
func WriteCSV(w io.Writer, reports ...simulator.Report) {
	_, _ = fmt.Fprintln(w, CSVHeader)

	for _, r := range reports {
		_, _ = fmt.Fprintln(w, CSVRow(r))
	}
}

// CSVRow formats one report as a CSV row matching CSVHeader.
func CSVRow(r simulator.Report) string {
	c := r.Config
	s := r.Stats
	return fmt.Sprintf("%s,%s,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%s,%d,%d,%s,%d",
		r.RunID,
		c.Name(),
		c.Cache.BlockSize,
		c.Cache.Associativity,
		c.Cache.Capacity,
		c.Timing.MissPenalty,
		c.Timing.DirtyWritebackPenalty,
		s.Accesses,
		s.Reads(),
		s.Writes,
		s.Misses,
		s.Hits(),
		csvRatio(r.Metrics.MissRate),
		s.Instructions,
		s.Cycles,
		csvRatio(r.Metrics.IPC),
		s.DirtyWritebacks,
	)
}

func csvRatio(r cache.Ratio) string {
	if !r.Defined {
		return ""
	}
	return r.String()
}
