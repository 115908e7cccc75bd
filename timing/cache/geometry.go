package cache

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrInvalidConfig is returned (wrapped) when a cache geometry cannot be
// built from the given parameters.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// Geometry decomposes 64-bit addresses into block offset, set index and tag.
//
// Addresses are laid out as:
//
//	|****** TAG ******|**** SET ****|** OFFSET **|
//
// The tag occupies all the remaining high bits, so it is never masked.
type Geometry struct {
	blockSize     uint64
	associativity uint64
	numSets       uint64

	offsetBits uint
	setBits    uint
	setMask    uint64
	tagShift   uint
}

// NewGeometry computes the address decomposition for a cache with the given
// block size, associativity and capacity, all in bytes except associativity.
// Every parameter and the implied set count must be a power of two.
func NewGeometry(blockSize, associativity, capacity uint64) (Geometry, error) {
	if !isPowerOfTwo(blockSize) {
		return Geometry{}, fmt.Errorf(
			"%w: block size %d is not a power of two", ErrInvalidConfig, blockSize)
	}
	if !isPowerOfTwo(associativity) {
		return Geometry{}, fmt.Errorf(
			"%w: associativity %d is not a power of two", ErrInvalidConfig, associativity)
	}
	if !isPowerOfTwo(capacity) {
		return Geometry{}, fmt.Errorf(
			"%w: capacity %d is not a power of two", ErrInvalidConfig, capacity)
	}

	overflow, setBytes := bits.Mul64(blockSize, associativity)
	if overflow != 0 || capacity%setBytes != 0 || capacity < setBytes {
		return Geometry{}, fmt.Errorf(
			"%w: capacity %d is not divisible by block size %d x associativity %d",
			ErrInvalidConfig, capacity, blockSize, associativity)
	}

	numSets := capacity / setBytes
	offsetBits := uint(bits.TrailingZeros64(blockSize))
	setBits := uint(bits.TrailingZeros64(numSets))

	return Geometry{
		blockSize:     blockSize,
		associativity: associativity,
		numSets:       numSets,
		offsetBits:    offsetBits,
		setBits:       setBits,
		setMask:       numSets - 1,
		tagShift:      offsetBits + setBits,
	}, nil
}

func isPowerOfTwo(v uint64) bool {
	return bits.OnesCount64(v) == 1
}

// BlockSize returns the line size in bytes.
func (g Geometry) BlockSize() uint64 {
	return g.blockSize
}

// Associativity returns the number of ways per set.
func (g Geometry) Associativity() uint64 {
	return g.associativity
}

// NumSets returns the number of sets.
func (g Geometry) NumSets() uint64 {
	return g.numSets
}

// NumLines returns the total number of line slots.
func (g Geometry) NumLines() uint64 {
	return g.numSets * g.associativity
}

// OffsetBits returns log2 of the block size.
func (g Geometry) OffsetBits() uint {
	return g.offsetBits
}

// SetBits returns log2 of the number of sets.
func (g Geometry) SetBits() uint {
	return g.setBits
}

// TagShift returns the bit position where the tag starts.
func (g Geometry) TagShift() uint {
	return g.tagShift
}

// SetIndex extracts the set index from an address.
func (g Geometry) SetIndex(addr uint64) uint64 {
	return (addr >> g.offsetBits) & g.setMask
}

// Tag extracts the tag from an address.
func (g Geometry) Tag(addr uint64) uint64 {
	return addr >> g.tagShift
}

// Offset extracts the byte offset within the block.
func (g Geometry) Offset(addr uint64) uint64 {
	return addr & (g.blockSize - 1)
}

// BlockAddress returns the address with the offset bits cleared.
func (g Geometry) BlockAddress(addr uint64) uint64 {
	return addr &^ (g.blockSize - 1)
}

// Compose rebuilds an address from its tag, set index and offset.
func (g Geometry) Compose(tag, setIndex, offset uint64) uint64 {
	return tag<<g.tagShift | (setIndex&g.setMask)<<g.offsetBits | offset&(g.blockSize-1)
}
