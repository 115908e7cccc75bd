// Package reference checks the cache model against an independent LRU
// implementation built on Akita's cache directory.
package reference

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/cachesim/timing/cache"
)

// Model is a write-back, write-allocate cache whose replacement is decided
// by Akita's LRU victim finder.
type Model struct {
	blockSize uint64
	directory akitacache.Directory
}

// NewModel builds a cold model with the given geometry.
func NewModel(config cache.Config) (*Model, error) {
	g, err := config.Geometry()
	if err != nil {
		return nil, err
	}

	return &Model{
		blockSize: g.BlockSize(),
		directory: akitacache.NewDirectory(
			int(g.NumSets()),
			int(g.Associativity()),
			int(g.BlockSize()),
			akitacache.NewLRUVictimFinder(),
		),
	}, nil
}

// Access applies one access and reports whether it hit and whether it
// replaced a dirty block. A line's dirty bit follows the most recent access
// to it.
func (m *Model) Access(isWrite bool, addr uint64) (hit, dirtyWriteback bool) {
	blockAddr := addr / m.blockSize * m.blockSize

	block := m.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		block.IsDirty = isWrite
		m.directory.Visit(block)
		return true, false
	}

	victim := m.directory.FindVictim(blockAddr)
	dirtyWriteback = victim.IsValid && victim.IsDirty

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = isWrite
	m.directory.Visit(victim)

	return false, dirtyWriteback
}

// Resident reports whether the block holding addr is cached.
func (m *Model) Resident(addr uint64) bool {
	block := m.directory.Lookup(0, addr/m.blockSize*m.blockSize)
	return block != nil && block.IsValid
}

// Reset invalidates every block.
func (m *Model) Reset() {
	m.directory.Reset()
}
