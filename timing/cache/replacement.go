package cache

// Resolution is the outcome of resolving one access against one set.
type Resolution struct {
	// Way is the slot within the set that now holds the block.
	Way int
	// Hit is true if the block was already resident.
	Hit bool
	// DirtyWriteback is true if a dirty line was replaced. Only meaningful
	// on a miss.
	DirtyWriteback bool
	// Evicted is true if the miss replaced a valid line, whose tag is then
	// EvictedTag.
	Evicted    bool
	EvictedTag uint64
}

// StackLRU resolves accesses with stack-based LRU replacement. Each line
// carries a recency rank; once a set is full the ranks form the permutation
// {0, ..., associativity-1} and the line with the largest rank is the
// victim.
type StackLRU struct{}

// NewStackLRU creates a stack-based LRU replacement engine.
func NewStackLRU() *StackLRU {
	return &StackLRU{}
}

// Resolve looks the tag up in the set, picks a victim on a miss and promotes
// the chosen line to rank 0.
func (StackLRU) Resolve(set []Line, tag uint64, isWrite bool) Resolution {
	res := Resolution{Way: -1}
	invalidWay := -1

	for i := range set {
		if !set[i].Valid {
			if invalidWay < 0 {
				invalidWay = i
			}
			continue
		}

		if set[i].Tag == tag {
			res.Way = i
			res.Hit = true
			break
		}
	}

	if !res.Hit {
		// Never evict while the set still has a free slot.
		if invalidWay >= 0 {
			res.Way = invalidWay
		} else {
			res.Way = victimWay(set)
			res.Evicted = true
			res.EvictedTag = set[res.Way].Tag
		}

		victim := &set[res.Way]
		res.DirtyWriteback = victim.Dirty
		victim.Tag = tag
		victim.Valid = true
	}

	set[res.Way].Dirty = isWrite
	promote(set, res.Way)

	return res
}

// victimWay returns the first line holding the largest rank.
func victimWay(set []Line) int {
	way := 0
	for i := 1; i < len(set); i++ {
		if set[i].Priority > set[way].Priority {
			way = i
		}
	}
	return way
}

// promote moves the line at way to rank 0 and pushes every line that was
// at or above its old rank down by one.
func promote(set []Line, way int) {
	oldRank := set[way].Priority
	assoc := uint32(len(set))

	for i := range set {
		p := set[i].Priority
		if p <= oldRank && p < assoc {
			set[i].Priority = p + 1
		}
	}

	set[way].Priority = 0
}
