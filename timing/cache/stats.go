package cache

import (
	"fmt"
	"strconv"
)

// Statistics holds the running counters of one simulation run.
type Statistics struct {
	// Accesses is the number of memory accesses processed.
	Accesses uint64 `json:"accesses"`
	// Writes is the number of write accesses.
	Writes uint64 `json:"writes"`
	// Misses is the number of accesses that missed.
	Misses uint64 `json:"misses"`
	// DirtyWritebacks is the number of dirty lines replaced.
	DirtyWritebacks uint64 `json:"dirty_writebacks"`
	// Instructions is the number of instructions retired.
	Instructions uint64 `json:"instructions"`
	// Cycles is the number of cycles spent.
	Cycles uint64 `json:"cycles"`

	// AccessCycles is the base cost added to Cycles for every access.
	AccessCycles uint32 `json:"-"`
}

// Record accounts for one access.
func (s *Statistics) Record(
	instructions uint32,
	isWrite, hit, dirtyWriteback bool,
	extraCycles uint32,
) {
	s.Accesses++
	s.Instructions += uint64(instructions)
	s.Cycles += uint64(extraCycles) + uint64(s.AccessCycles)

	if isWrite {
		s.Writes++
	}
	if !hit {
		s.Misses++
	}
	if dirtyWriteback {
		s.DirtyWritebacks++
	}
}

// Reads returns the number of read accesses.
func (s Statistics) Reads() uint64 {
	return s.Accesses - s.Writes
}

// Hits returns the number of accesses that hit.
func (s Statistics) Hits() uint64 {
	return s.Accesses - s.Misses
}

// Merge adds the counters of another run.
func (s *Statistics) Merge(other Statistics) {
	s.Accesses += other.Accesses
	s.Writes += other.Writes
	s.Misses += other.Misses
	s.DirtyWritebacks += other.DirtyWritebacks
	s.Instructions += other.Instructions
	s.Cycles += other.Cycles
}

// Reset clears all counters. The base access cost is kept.
func (s *Statistics) Reset() {
	*s = Statistics{AccessCycles: s.AccessCycles}
}

// Ratio is a derived metric that may be undefined because its denominator
// was zero.
type Ratio struct {
	Value   float64
	Defined bool
}

// NewRatio divides num by den. The result is undefined when den is zero.
func NewRatio(num, den float64) Ratio {
	if den == 0 {
		return Ratio{}
	}
	return Ratio{Value: num / den, Defined: true}
}

// String formats the value, or "undefined".
func (r Ratio) String() string {
	if !r.Defined {
		return "undefined"
	}
	return strconv.FormatFloat(r.Value, 'f', 6, 64)
}

// MarshalJSON encodes an undefined ratio as null.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, r.Value, 'g', -1, 64), nil
}

// UnmarshalJSON decodes null as an undefined ratio.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Ratio{}
		return nil
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("ratio %s: %w", data, err)
	}

	*r = Ratio{Value: v, Defined: true}
	return nil
}

// Metrics are the values derived from Statistics at report time.
type Metrics struct {
	// MissRate is misses per access, in percent.
	MissRate Ratio `json:"miss_rate"`
	// IPC is instructions per cycle.
	IPC Ratio `json:"ipc"`
}

// Derive computes the miss rate and IPC.
func (s Statistics) Derive() Metrics {
	missRate := NewRatio(float64(s.Misses), float64(s.Accesses))
	if missRate.Defined {
		missRate.Value *= 100
	}

	return Metrics{
		MissRate: missRate,
		IPC:      NewRatio(float64(s.Instructions), float64(s.Cycles)),
	}
}
