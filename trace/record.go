// Package trace reads and writes memory access traces.
//
// A trace is a text file with one access per line:
//
//	# <type> <address> <instructions>
//
// where type is 0 for a read and non-zero for a write, address is a
// hexadecimal 64-bit address (with or without a 0x prefix), and instructions
// is the decimal number of instructions retired since the previous access.
package trace

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one decoded memory access.
type Record struct {
	// IsWrite is true for a store, false for a load.
	IsWrite bool
	// Address is the accessed byte address.
	Address uint64
	// Instructions is the number of instructions retired since the
	// previous access.
	Instructions uint32
}

// ParseError reports a malformed trace line.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("trace line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine decodes one trace line.
func ParseLine(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 || fields[0] != "#" {
		return Record{}, fmt.Errorf("expected \"# <type> <address> <instructions>\"")
	}

	kind, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad access type: %w", err)
	}

	addrText := strings.TrimPrefix(strings.TrimPrefix(fields[2], "0x"), "0X")
	addr, err := strconv.ParseUint(addrText, 16, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad address: %w", err)
	}

	insts, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("bad instruction count: %w", err)
	}

	return Record{
		IsWrite:      kind != 0,
		Address:      addr,
		Instructions: uint32(insts),
	}, nil
}

// FormatLine encodes a record in trace syntax, without a trailing newline.
func FormatLine(rec Record) string {
	kind := 0
	if rec.IsWrite {
		kind = 1
	}
	return fmt.Sprintf("# %d %x %d", kind, rec.Address, rec.Instructions)
}
