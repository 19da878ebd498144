package profiler

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/pipeline"
)

// KindStats are the counters accumulated for one pipeline kind since the last report.
type KindStats struct {
	Tiles    int
	Failures int
	Total    time.Duration
}

// Mean returns the mean latency of the recorded tiles, or zero when none were recorded.
func (s KindStats) Mean() time.Duration {
	if s.Tiles == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Tiles)
}

// Profiler tracks tile throughput and memory statistics for performance monitoring.
// Outputs stats to the package logger at a configurable interval.
type Profiler struct {
	mu             *sync.Mutex
	now            func() time.Time
	lastTime       time.Time
	updateInterval time.Duration
	kinds          map[pipeline.Kind]KindStats
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: optional ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		now:            time.Now,
		updateInterval: time.Second,
		kinds:          make(map[pipeline.Kind]KindStats),
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// ProfilerBuilderOption configures a Profiler during NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithUpdateInterval sets how often Tick reports.
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// Record adds one rendered tile. It is safe to call from render workers concurrently.
//
// Parameters:
//   - kind: the pipeline kind that rendered the tile
//   - elapsed: how long the tile took
//   - err: the render error, nil on success
func (p *Profiler) Record(kind pipeline.Kind, elapsed time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.kinds[kind]
	s.Tiles++
	s.Total += elapsed
	if err != nil {
		s.Failures++
	}
	p.kinds[kind] = s
}

// Snapshot returns a copy of the counters accumulated since the last report.
func (p *Profiler) Snapshot() map[pipeline.Kind]KindStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[pipeline.Kind]KindStats, len(p.kinds))
	for k, s := range p.kinds {
		out[k] = s
	}
	return out
}

// Tick logs performance statistics when the update interval has elapsed and then resets the counters.
// Statistics include per-kind tile rate, failures and mean latency, plus heap usage, allocation rate and GC pauses.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	kinds := make([]pipeline.Kind, 0, len(p.kinds))
	for k := range p.kinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	log := common.Logger()
	for _, k := range kinds {
		s := p.kinds[k]
		log.Info("profiler tiles",
			"kind", k.String(),
			"tiles_per_sec", float64(s.Tiles)/elapsed.Seconds(),
			"failures", s.Failures,
			"mean", s.Mean())
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc is live heap, Sys is the process footprint.
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	log.Info("profiler memory",
		"heap_mb", allocMB,
		"alloc_rate_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_last_us", lastPauseUs,
		"gc_max_us", maxPauseUs,
		"sys_mb", sysMB)

	clear(p.kinds)
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
