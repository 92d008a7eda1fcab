package profiler

import (
	"log"
	"runtime"
	"sync"
	"time"
)

// Sample is the state captured when an import begins.
type Sample struct {
	start      time.Time
	totalAlloc uint64
	gcCount    uint32
}

// LoadStats describes one finished import.
type LoadStats struct {
	Name       string
	Bytes      int
	Duration   time.Duration
	AllocMB    float64
	GCCount    uint32
	MaxPauseUs uint64
}

// Summary aggregates every import recorded by a Profiler.
type Summary struct {
	Loads      int
	Failures   int
	Bytes      int64
	TotalTime  time.Duration
	LastLoad   LoadStats
	SlowestRun LoadStats
}

// Profiler tracks model import timing and memory statistics for performance monitoring.
// Outputs one log line per recorded import. Safe for concurrent use.
type Profiler struct {
	mu       sync.Mutex
	memStats runtime.MemStats
	summary  Summary
	quiet    bool
}

// NewProfiler creates a new Profiler with default settings.
//
// Parameters:
//   - quiet: when true, imports are aggregated but not logged
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(quiet bool) *Profiler {
	return &Profiler{quiet: quiet}
}

// Start captures the time and allocator state at the beginning of an import.
//
// Returns:
//   - Sample: the captured state, passed to Record when the import ends
func (p *Profiler) Start() Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	runtime.ReadMemStats(&p.memStats)
	return Sample{
		start:      time.Now(),
		totalAlloc: p.memStats.TotalAlloc,
		gcCount:    p.memStats.NumGC,
	}
}

// Record finishes an import started with Start and logs its statistics.
// Statistics include: duration, input size, bytes allocated, GC count and max pause time.
//
// Parameters:
//   - name: the model name
//   - size: the input size in bytes
//   - s: the sample returned by Start
//   - err: the import error, if any
//
// Returns:
//   - LoadStats: the statistics of this import
func (p *Profiler) Record(name string, size int, s Sample, err error) LoadStats {
	elapsed := time.Since(s.start)

	p.mu.Lock()
	defer p.mu.Unlock()

	runtime.ReadMemStats(&p.memStats)
	// TotalAlloc is cumulative, so the delta includes concurrent imports when loads overlap.
	allocMB := float64(p.memStats.TotalAlloc-s.totalAlloc) / 1024 / 1024

	gcCount := p.memStats.NumGC
	var maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		startIdx := s.gcCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	stats := LoadStats{
		Name:       name,
		Bytes:      size,
		Duration:   elapsed,
		AllocMB:    allocMB,
		GCCount:    gcCount - s.gcCount,
		MaxPauseUs: maxPauseUs,
	}

	p.summary.Loads++
	if err != nil {
		p.summary.Failures++
	}
	p.summary.Bytes += int64(size)
	p.summary.TotalTime += elapsed
	p.summary.LastLoad = stats
	if elapsed > p.summary.SlowestRun.Duration {
		p.summary.SlowestRun = stats
	}

	if !p.quiet {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		log.Printf("[Profiler] %s %s | %d bytes in %s | Alloc: %.2f MB | GC: %d (max: %d µs)",
			name, status, size, elapsed.Round(time.Microsecond), allocMB, stats.GCCount, maxPauseUs)
	}

	return stats
}

// Summary returns the aggregate statistics of every recorded import.
//
// Returns:
//   - Summary: the aggregate statistics
func (p *Profiler) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}
