package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Writer encodes records in trace syntax.
type Writer struct {
	w     *bufio.Writer
	count uint64
}

// NewWriter creates a Writer over w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one record.
func (w *Writer) Write(rec Record) error {
	if _, err := w.w.WriteString(FormatLine(rec)); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}

	w.count++

	return nil
}

// WriteAll drains a source into the writer.
func (w *Writer) WriteAll(src Source) error {
	for {
		rec, err := src.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := w.Write(rec); err != nil {
			return err
		}
	}
}

// Count returns the number of records written.
func (w *Writer) Count() uint64 {
	return w.count
}

// Flush writes any buffered data.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// FileWriter writes a trace file, compressing it according to the file
// extension.
type FileWriter struct {
	*Writer

	file       *os.File
	compressor io.WriteCloser
}

// Create creates (or truncates) a trace file for writing.
func Create(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	fw := &FileWriter{file: f}

	var sink io.Writer = f
	switch CompressionForPath(path) {
	case CompressionGzip:
		fw.compressor = gzip.NewWriter(f)
	case CompressionZstd:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		fw.compressor = zw
	case CompressionLZ4:
		fw.compressor = lz4.NewWriter(f)
	}

	if fw.compressor != nil {
		sink = fw.compressor
	}
	fw.Writer = NewWriter(sink)

	return fw, nil
}

// Close flushes pending records and closes the file.
func (fw *FileWriter) Close() error {
	if err := fw.Flush(); err != nil {
		_ = fw.file.Close()
		return err
	}

	if fw.compressor != nil {
		if err := fw.compressor.Close(); err != nil {
			_ = fw.file.Close()
			return err
		}
	}

	return fw.file.Close()
}
