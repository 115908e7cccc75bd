package sweep

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/simulator"
)

// Grid returns the cross product of the given geometries on top of base.
// Empty lists keep the base value. Combinations that do not form a valid
// cache, such as a capacity smaller than one set, are skipped.
func Grid(blockSizes, associativities, capacities []uint64, base *simulator.Config) []*simulator.Config {
	if base == nil {
		base = simulator.DefaultConfig()
	}
	if len(blockSizes) == 0 {
		blockSizes = []uint64{base.Cache.BlockSize}
	}
	if len(associativities) == 0 {
		associativities = []uint64{base.Cache.Associativity}
	}
	if len(capacities) == 0 {
		capacities = []uint64{base.Cache.Capacity}
	}

	var configs []*simulator.Config
	for _, capacity := range capacities {
		for _, assoc := range associativities {
			for _, bs := range blockSizes {
				c := base.Clone()
				c.Cache.BlockSize = bs
				c.Cache.Associativity = assoc
				c.Cache.Capacity = capacity
				if c.Validate() != nil {
					continue
				}
				configs = append(configs, c)
			}
		}
	}

	return configs
}

// ParseSizes parses a comma-separated list of sizes such as "16,32,64" or
// "16K,1M". K, M and G are binary multiples.
func ParseSizes(list string) ([]uint64, error) {
	var sizes []uint64
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		size, err := ParseSize(field)
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

// ParseSize parses one size with an optional K, M or G suffix, optionally
// followed by B.
func ParseSize(s string) (uint64, error) {
	text := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "B")

	shift := uint(0)
	if n := len(text); n > 0 {
		switch text[n-1] {
		case 'K':
			shift = 10
		case 'M':
			shift = 20
		case 'G':
			shift = 30
		}
		if shift > 0 {
			text = text[:n-1]
		}
	}

	v, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if v > (^uint64(0))>>shift {
		return 0, fmt.Errorf("size %q overflows 64 bits", s)
	}

	return v << shift, nil
}
