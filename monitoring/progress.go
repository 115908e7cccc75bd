package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/cachesim/timing/cache"
	"github.com/sarchlab/cachesim/trace"
)

// A ProgressBar tracks how many accesses of a trace have been simulated.
// Total is zero when the trace length is unknown.
type ProgressBar struct {
	sync.Mutex
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// SetFinished records the number of finished accesses.
func (b *ProgressBar) SetFinished(n uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished = n
}

// IncrementFinished adds a certain amount to the finished accesses.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

type progressBarView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

func (b *ProgressBar) view() progressBarView {
	b.Lock()
	defer b.Unlock()

	return progressBarView{
		ID:        b.ID,
		Name:      b.Name,
		StartTime: b.StartTime,
		Total:     b.Total,
		Finished:  b.Finished,
	}
}

// progressTracker moves a progress bar forward as a simulation reports
// progress.
type progressTracker struct {
	bar *ProgressBar
}

func (t progressTracker) OnAccess(uint64, trace.Record, cache.AccessResult) {}

func (t progressTracker) OnProgress(done uint64, _ cache.Statistics) {
	t.bar.SetFinished(done)
}
