package reference

import (
	"fmt"
	"sync"

	"github.com/sarchlab/cachesim/timing/cache"
	"github.com/sarchlab/cachesim/trace"
)

// MaxKeptDivergences bounds how many divergences a Verifier remembers. All
// of them are counted.
const MaxKeptDivergences = 16

// Divergence is one access on which the two models disagree.
type Divergence struct {
	Seq    uint64
	Record trace.Record

	WantHit            bool
	GotHit             bool
	WantDirtyWriteback bool
	GotDirtyWriteback  bool
}

func (d Divergence) String() string {
	return fmt.Sprintf(
		"access %d (%s): reference hit=%t wb=%t, model hit=%t wb=%t",
		d.Seq, trace.FormatLine(d.Record),
		d.WantHit, d.WantDirtyWriteback, d.GotHit, d.GotDirtyWriteback)
}

// Verifier replays every observed access on a reference Model and compares
// the outcomes. It is meant to be registered as a simulator observer.
type Verifier struct {
	mu sync.Mutex

	model       *Model
	checked     uint64
	count       uint64
	divergences []Divergence
}

// NewVerifier creates a verifier for a cache with the given geometry.
func NewVerifier(config cache.Config) (*Verifier, error) {
	model, err := NewModel(config)
	if err != nil {
		return nil, err
	}

	return &Verifier{model: model}, nil
}

// OnAccess checks one access.
func (v *Verifier) OnAccess(seq uint64, rec trace.Record, result cache.AccessResult) {
	v.mu.Lock()
	defer v.mu.Unlock()

	hit, wb := v.model.Access(rec.IsWrite, rec.Address)
	v.checked++

	if hit == result.Hit && wb == result.DirtyWriteback {
		return
	}

	v.count++
	if len(v.divergences) < MaxKeptDivergences {
		v.divergences = append(v.divergences, Divergence{
			Seq:                seq,
			Record:             rec,
			WantHit:            hit,
			GotHit:             result.Hit,
			WantDirtyWriteback: wb,
			GotDirtyWriteback:  result.DirtyWriteback,
		})
	}
}

// OnProgress does nothing.
func (v *Verifier) OnProgress(uint64, cache.Statistics) {}

// Checked returns the number of accesses compared.
func (v *Verifier) Checked() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.checked
}

// Count returns the number of divergent accesses.
func (v *Verifier) Count() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.count
}

// Divergences returns the first divergent accesses.
func (v *Verifier) Divergences() []Divergence {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]Divergence(nil), v.divergences...)
}

// Err summarizes the divergences, or returns nil if there were none.
func (v *Verifier) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.count == 0 {
		return nil
	}

	return fmt.Errorf("%d of %d accesses diverge from the reference model, first: %s",
		v.count, v.checked, v.divergences[0])
}
