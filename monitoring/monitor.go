// Package monitoring serves the state of a running simulation over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/cachesim/simulator"
	"github.com/sarchlab/cachesim/timing/cache"
)

// Monitor turns a simulation into a server that can be inspected while the
// trace is running.
type Monitor struct {
	portNumber int

	simLock sync.RWMutex
	sim     *simulator.Simulator

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	listener net.Listener
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterSimulator sets the simulation to be inspected.
func (m *Monitor) RegisterSimulator(s *simulator.Simulator) {
	m.simLock.Lock()
	defer m.simLock.Unlock()

	m.sim = s
}

func (m *Monitor) target() *simulator.Simulator {
	m.simLock.RLock()
	defer m.simLock.RUnlock()

	return m.sim
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// TrackProgress creates a progress bar and returns an observer that keeps
// it up to date. Register the observer with the simulator.
func (m *Monitor) TrackProgress(name string, total uint64) (simulator.Observer, *ProgressBar) {
	bar := m.CreateProgressBar(name, total)
	return progressTracker{bar: bar}, bar
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/stats", m.stats)
	r.HandleFunc("/api/config", m.config)
	r.HandleFunc("/api/set/{index}", m.set)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/", m.index)

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", fmt.Errorf("starting monitor: %w", err)
	}
	m.listener = listener

	url := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	router := m.Router()
	go func() {
		err := http.Serve(listener, router)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			dieOnErr(err)
		}
	}()

	return url, nil
}

// OpenBrowser starts the server if needed and opens it in a browser.
func (m *Monitor) OpenBrowser() error {
	if m.listener == nil {
		if _, err := m.StartServer(); err != nil {
			return err
		}
	}

	url := fmt.Sprintf("http://localhost:%d", m.listener.Addr().(*net.TCPAddr).Port)
	return browser.OpenURL(url)
}

// StopServer closes the listener.
func (m *Monitor) StopServer() error {
	if m.listener == nil {
		return nil
	}

	err := m.listener.Close()
	m.listener = nil
	return err
}

func (m *Monitor) simulatorOr503(w http.ResponseWriter) *simulator.Simulator {
	s := m.target()
	if s == nil {
		http.Error(w, "No simulation registered", http.StatusServiceUnavailable)
	}

	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<html><head><title>cachesim monitor</title></head><body>
<h1>cachesim monitor</h1>
<ul>
<li><a href="/api/progress">progress</a></li>
<li><a href="/api/stats">stats</a></li>
<li><a href="/api/config">config</a></li>
<li><a href="/api/set/0">set 0</a></li>
<li><a href="/api/resource">resource</a></li>
<li><a href="/api/profile">profile</a> (takes one second)</li>
</ul>
</body></html>
`)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	views := make([]progressBarView, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		views = append(views, b.view())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, views)
}

type statsRsp struct {
	RunID    string           `json:"run_id"`
	Accesses uint64           `json:"accesses"`
	Stats    cache.Statistics `json:"stats"`
	Metrics  cache.Metrics    `json:"metrics"`
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	s := m.simulatorOr503(w)
	if s == nil {
		return
	}

	done, stats := s.Progress()
	writeJSON(w, statsRsp{
		RunID:    s.RunID(),
		Accesses: done,
		Stats:    stats,
		Metrics:  stats.Derive(),
	})
}

type configRsp struct {
	Config     *simulator.Config `json:"config"`
	NumSets    uint64            `json:"num_sets"`
	OffsetBits uint              `json:"offset_bits"`
	SetBits    uint              `json:"set_bits"`
	TagShift   uint              `json:"tag_shift"`
}

func (m *Monitor) config(w http.ResponseWriter, _ *http.Request) {
	s := m.simulatorOr503(w)
	if s == nil {
		return
	}

	g := s.Geometry()
	writeJSON(w, configRsp{
		Config:     s.Config(),
		NumSets:    g.NumSets(),
		OffsetBits: g.OffsetBits(),
		SetBits:    g.SetBits(),
		TagShift:   g.TagShift(),
	})
}

// setView is the serialized form of one cache set.
type setView struct {
	Index uint64
	Lines []cache.Line
}

func (m *Monitor) set(w http.ResponseWriter, r *http.Request) {
	s := m.simulatorOr503(w)
	if s == nil {
		return
	}

	index, err := strconv.ParseUint(mux.Vars(r)["index"], 0, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid set index: %s", err), http.StatusBadRequest)
		return
	}

	lines, err := s.Lines(index)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&setView{Index: index, Lines: lines})
	serializer.SetMaxDepth(3)

	w.Header().Set("Content-Type", "application/json")
	err = serializer.Serialize(w)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
