package trace

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a trace file is encoded on disk.
type Compression int

const (
	// CompressionNone is a plain text trace.
	CompressionNone Compression = iota
	// CompressionGzip is a gzip stream.
	CompressionGzip
	// CompressionZstd is a zstd stream.
	CompressionZstd
	// CompressionLZ4 is an LZ4 frame stream.
	CompressionLZ4
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

// CompressionForPath picks the compression implied by a file extension.
func CompressionForPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

func detectCompression(header []byte) Compression {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(header, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(header, lz4Magic):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// FileSource streams records from a trace file. Compressed traces are
// detected by their magic bytes and decoded on the fly.
type FileSource struct {
	*Reader

	path        string
	file        *os.File
	compression Compression
	closers     []func() error
	digest      *xxhash.Digest
}

// Open opens a trace file for reading.
func Open(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	src := &FileSource{
		path:   path,
		file:   f,
		digest: xxhash.New(),
	}

	buffered := bufio.NewReader(f)
	header, err := buffered.Peek(4)
	if err != nil && err != io.EOF {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read trace header: %w", err)
	}

	var body io.Reader
	src.compression = detectCompression(header)
	switch src.compression {
	case CompressionGzip:
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to open gzip trace: %w", err)
		}
		src.closers = append(src.closers, gz.Close)
		body = gz
	case CompressionZstd:
		zr, err := zstd.NewReader(buffered)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to open zstd trace: %w", err)
		}
		src.closers = append(src.closers, func() error {
			zr.Close()
			return nil
		})
		body = zr
	case CompressionLZ4:
		body = lz4.NewReader(buffered)
	default:
		body = buffered
	}

	src.Reader = NewReader(io.TeeReader(body, src.digest))

	return src, nil
}

// Path returns the path the trace was opened from.
func (s *FileSource) Path() string {
	return s.path
}

// Compression returns the detected on-disk encoding.
func (s *FileSource) Compression() Compression {
	return s.compression
}

// Digest returns the xxhash64 of the decoded bytes consumed so far. After
// the source has returned io.EOF it identifies the whole trace.
func (s *FileSource) Digest() uint64 {
	return s.digest.Sum64()
}

// Close releases the decoder and the file.
func (s *FileSource) Close() error {
	var firstErr error

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil

	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.file = nil
	}

	return firstErr
}
