package cache

// Line is the state of one physical cache line slot.
type Line struct {
	// Tag identifies the resident block. Only meaningful when Valid is set.
	Tag uint64 `json:"tag"`
	// Valid is false until the slot is first filled.
	Valid bool `json:"valid"`
	// Dirty reflects the type of the most recent access to the line.
	Dirty bool `json:"dirty"`
	// Priority is the recency rank within the set, 0 being the most
	// recently used.
	Priority uint32 `json:"priority"`
}

// State stores every line of the cache, grouped by set. Lines of set i live
// at [i*associativity, (i+1)*associativity).
type State struct {
	lines         []Line
	associativity int
}

// NewState allocates numSets*associativity zeroed lines.
func NewState(numSets, associativity int) *State {
	return &State{
		lines:         make([]Line, numSets*associativity),
		associativity: associativity,
	}
}

// Set returns a mutable view of the lines that belong to the given set.
func (s *State) Set(index uint64) []Line {
	base := int(index) * s.associativity
	return s.lines[base : base+s.associativity : base+s.associativity]
}

// NumSets returns the number of sets.
func (s *State) NumSets() int {
	return len(s.lines) / s.associativity
}

// Associativity returns the number of lines per set.
func (s *State) Associativity() int {
	return s.associativity
}

// Reset returns every line to its initial state.
func (s *State) Reset() {
	clear(s.lines)
}
