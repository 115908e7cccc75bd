// Package recording stores simulation reports in a SQLite database so that
// runs can be compared after the fact.
package recording

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/simulator"
)

const createRunsSQL = `CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	label            TEXT NOT NULL,
	trace_digest     TEXT NOT NULL,
	recorded_at      TEXT NOT NULL,
	block_size       INTEGER NOT NULL,
	associativity    INTEGER NOT NULL,
	capacity         INTEGER NOT NULL,
	miss_penalty     INTEGER NOT NULL,
	dirty_wb_penalty INTEGER NOT NULL,
	access_cycles    INTEGER NOT NULL,
	accesses         INTEGER NOT NULL,
	writes           INTEGER NOT NULL,
	misses           INTEGER NOT NULL,
	dirty_writebacks INTEGER NOT NULL,
	instructions     INTEGER NOT NULL,
	cycles           INTEGER NOT NULL,
	miss_rate        REAL,
	ipc              REAL
);`

const runColumns = `run_id, label, trace_digest, recorded_at,
	block_size, associativity, capacity,
	miss_penalty, dirty_wb_penalty, access_cycles,
	accesses, writes, misses, dirty_writebacks, instructions, cycles,
	miss_rate, ipc`

// Run is one row of the runs table.
type Run struct {
	RunID       string
	Label       string
	TraceDigest string
	RecordedAt  time.Time

	BlockSize      uint64
	Associativity  uint64
	Capacity       uint64
	MissPenalty    uint32
	DirtyWBPenalty uint32
	AccessCycles   uint32

	Accesses        uint64
	Writes          uint64
	Misses          uint64
	DirtyWritebacks uint64
	Instructions    uint64
	Cycles          uint64

	// MissRate and IPC are invalid when the metric is undefined.
	MissRate sql.NullFloat64
	IPC      sql.NullFloat64
}

// FromReport flattens a report into a row. The label names the trace or
// workload; it defaults to the trace path.
func FromReport(label string, r simulator.Report) Run {
	if label == "" {
		label = r.TracePath
	}

	digest := ""
	if r.TraceDigest != 0 {
		digest = strconv.FormatUint(r.TraceDigest, 16)
	}

	c := r.Config
	s := r.Stats
	m := r.Metrics
	return Run{
		RunID:           r.RunID,
		Label:           label,
		TraceDigest:     digest,
		RecordedAt:      time.Now().UTC(),
		BlockSize:       c.Cache.BlockSize,
		Associativity:   c.Cache.Associativity,
		Capacity:        c.Cache.Capacity,
		MissPenalty:     c.Timing.MissPenalty,
		DirtyWBPenalty:  c.Timing.DirtyWritebackPenalty,
		AccessCycles:    c.Timing.AccessCycles,
		Accesses:        s.Accesses,
		Writes:          s.Writes,
		Misses:          s.Misses,
		DirtyWritebacks: s.DirtyWritebacks,
		Instructions:    s.Instructions,
		Cycles:          s.Cycles,
		MissRate:        sql.NullFloat64{Float64: m.MissRate.Value, Valid: m.MissRate.Defined},
		IPC:             sql.NullFloat64{Float64: m.IPC.Value, Valid: m.IPC.Defined},
	}
}

// Recorder buffers runs and writes them to SQLite in batches.
type Recorder struct {
	mu sync.Mutex

	db        *sql.DB
	filename  string
	batchSize int
	pending   []Run
}

// New creates <path>.sqlite3 and its runs table. An empty path picks a
// unique name. New refuses to overwrite an existing database. Pending runs
// are flushed when the program exits through atexit.
func New(path string) (*Recorder, error) {
	if path == "" {
		path = "cachesim_" + xid.New().String()
	}

	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}

	if _, err := db.Exec(createRunsSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	r := &Recorder{
		db:        db,
		filename:  filename,
		batchSize: 1000,
	}

	atexit.Register(func() {
		if err := r.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush %s: %v\n", filename, err)
		}
	})

	return r, nil
}

// Filename returns the database file name.
func (r *Recorder) Filename() string {
	return r.filename
}

// Record buffers a report under the given label.
func (r *Recorder) Record(label string, report simulator.Report) error {
	return r.RecordRun(FromReport(label, report))
}

// RecordRun buffers a row, flushing when the batch is full.
func (r *Recorder) RecordRun(run Run) error {
	r.mu.Lock()
	r.pending = append(r.pending, run)
	full := len(r.pending) >= r.batchSize
	r.mu.Unlock()

	if full {
		return r.Flush()
	}
	return nil
}

// Flush writes all buffered runs in one transaction.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) == 0 || r.db == nil {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, run := range r.pending {
		_, err := stmt.Exec(
			run.RunID, run.Label, run.TraceDigest,
			run.RecordedAt.Format(time.RFC3339Nano),
			run.BlockSize, run.Associativity, run.Capacity,
			run.MissPenalty, run.DirtyWBPenalty, run.AccessCycles,
			run.Accesses, run.Writes, run.Misses, run.DirtyWritebacks,
			run.Instructions, run.Cycles,
			run.MissRate, run.IPC,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting run %s: %w", run.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	r.pending = nil
	return nil
}

// Runs reads back every stored run in insertion order. Buffered runs are
// flushed first.
func (r *Recorder) Runs() ([]Run, error) {
	if err := r.Flush(); err != nil {
		return nil, err
	}
	if r.db == nil {
		return nil, fmt.Errorf("recorder %s is closed", r.filename)
	}

	rows, err := r.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			recordedAt string
		)
		err := rows.Scan(
			&run.RunID, &run.Label, &run.TraceDigest, &recordedAt,
			&run.BlockSize, &run.Associativity, &run.Capacity,
			&run.MissPenalty, &run.DirtyWBPenalty, &run.AccessCycles,
			&run.Accesses, &run.Writes, &run.Misses, &run.DirtyWritebacks,
			&run.Instructions, &run.Cycles,
			&run.MissRate, &run.IPC,
		)
		if err != nil {
			return nil, err
		}

		run.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad timestamp: %w", run.RunID, err)
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Close flushes pending runs and closes the database.
func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
