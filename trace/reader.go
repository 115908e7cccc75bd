package trace

import (
	"bufio"
	"io"
	"strings"
)

// Source is a lazy, single-pass sequence of access records. Next returns
// io.EOF once the sequence is exhausted.
type Source interface {
	Next() (Record, error)
}

// maxLineLength bounds a single trace line.
const maxLineLength = 1 << 16

// Reader decodes records from a text stream.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)

	return &Reader{scanner: scanner}
}

// Next returns the next record. Blank lines are skipped. A malformed line
// yields a *ParseError.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++

		text := r.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		rec, err := ParseLine(text)
		if err != nil {
			return Record{}, &ParseError{Line: r.line, Text: text, Err: err}
		}

		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Record{}, err
	}

	return Record{}, io.EOF
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int {
	return r.line
}

// SliceSource serves records from memory.
type SliceSource struct {
	records []Record
	next    int
}

// NewSliceSource creates a source that yields the given records in order.
func NewSliceSource(records []Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next returns the next record, or io.EOF.
func (s *SliceSource) Next() (Record, error) {
	if s.next >= len(s.records) {
		return Record{}, io.EOF
	}

	rec := s.records[s.next]
	s.next++

	return rec, nil
}

// Len returns the total number of records.
func (s *SliceSource) Len() int {
	return len(s.records)
}

// Rewind restarts the sequence from the first record.
func (s *SliceSource) Rewind() {
	s.next = 0
}

// Collect drains a source into a slice.
func Collect(src Source) ([]Record, error) {
	var records []Record

	for {
		rec, err := src.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}

		records = append(records, rec)
	}
}
