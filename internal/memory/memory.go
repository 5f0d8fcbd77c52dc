package memory

import (
	"context"
	"runtime"
	"sync"
	"time"

	"datalint/internal/logging"
	"datalint/internal/metrics"
)

// Config tunes a Monitor.
type Config struct {
	// Limit is the heap budget in bytes. Zero falls back to the runtime
	// memory limit; with neither the monitor never pauses.
	Limit int64
	// PauseAt and ResumeAt are fractions of Limit. Work pauses once the heap
	// reaches PauseAt and resumes when it drops below ResumeAt.
	PauseAt  float64
	ResumeAt float64
	// Interval is the sampling period.
	Interval time.Duration
	// MaxPause bounds a single pause. Memory the scan itself retains can
	// keep the heap above ResumeAt forever, so once a pause has lasted this
	// long workers are released and no new pause starts for another
	// MaxPause. Zero leaves pauses unbounded.
	MaxPause time.Duration
}

// DefaultConfig pauses at 85% of the runtime limit and resumes below 70%,
// or after 30 seconds.
func DefaultConfig() Config {
	return Config{
		PauseAt:  0.85,
		ResumeAt: 0.70,
		Interval: time.Second,
		MaxPause: 30 * time.Second,
	}
}

// Monitor samples the Go heap and holds back file processing while it is
// over budget. It satisfies pipeline.Gate.
type Monitor struct {
	cfg      Config
	limit    int64
	readHeap func() uint64
	now      func() time.Time

	mu       sync.Mutex
	heap     uint64
	paused   bool
	pausedAt time.Time
	// holdUntil suppresses new pauses after one was cut short.
	holdUntil time.Time
	// resume is closed when the current pause ends.
	resume chan struct{}

	done     chan struct{}
	stopOnce sync.Once
	loop     sync.WaitGroup
}

// NewMonitor returns a stopped monitor.
func NewMonitor(cfg Config) *Monitor {
	limit := cfg.Limit
	if limit <= 0 {
		limit = runtimeLimit()
	}
	if limit == 0 {
		logging.Debug("No memory limit configured, heap backpressure disabled")
	} else {
		logging.Debug("Heap backpressure at %.0f%% of %s", cfg.PauseAt*100, FormatBytes(limit))
	}

	return &Monitor{
		cfg:      cfg,
		limit:    limit,
		readHeap: heapAlloc,
		now:      time.Now,
		resume:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// Start samples the heap every Interval until Stop. Without a limit it
// does nothing.
func (m *Monitor) Start() {
	if m.limit == 0 || m.cfg.Interval <= 0 {
		return
	}

	m.loop.Add(1)
	go func() {
		defer m.loop.Done()
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.done:
				return
			case <-ticker.C:
				m.observe(m.readHeap())
			}
		}
	}()
}

// Stop ends sampling and releases every waiting worker. It is safe to call
// more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		metrics.MemoryPaused.Set(0)
	})
	m.loop.Wait()
}

// observe applies one heap sample.
func (m *Monitor) observe(heap uint64) {
	m.mu.Lock()
	m.heap = heap
	if m.limit == 0 {
		m.mu.Unlock()
		return
	}

	ratio := float64(heap) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(ratio)

	now := m.now()
	collect := false
	switch {
	case !m.paused && ratio >= m.cfg.PauseAt && !now.Before(m.holdUntil):
		m.paused = true
		m.pausedAt = now
		collect = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		logging.Warn("Heap at %.1f%% of %s, pausing file processing", ratio*100, FormatBytes(m.limit))
	case m.paused && ratio < m.cfg.ResumeAt:
		m.release()
		logging.Info("Heap down to %.1f%% of %s, resuming", ratio*100, FormatBytes(m.limit))
	case m.paused && m.cfg.MaxPause > 0 && now.Sub(m.pausedAt) >= m.cfg.MaxPause:
		m.release()
		m.holdUntil = now.Add(m.cfg.MaxPause)
		logging.Warn("Heap still at %.1f%% of %s after %v, resuming anyway", ratio*100, FormatBytes(m.limit), m.cfg.MaxPause)
	}
	m.mu.Unlock()

	if collect {
		runtime.GC()
	}
}

// release ends the current pause. The caller holds mu.
func (m *Monitor) release() {
	m.paused = false
	close(m.resume)
	m.resume = make(chan struct{})
	metrics.MemoryPaused.Set(0)
}

// WaitIfPaused blocks while the monitor is paused. It returns false only
// when ctx ends first.
func (m *Monitor) WaitIfPaused(ctx context.Context) bool {
	m.mu.Lock()
	paused, resume := m.paused, m.resume
	m.mu.Unlock()
	if !paused {
		return true
	}

	select {
	case <-resume:
		return true
	case <-m.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Paused reports whether workers are currently held back.
func (m *Monitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Limit returns the heap budget, 0 when backpressure is disabled.
func (m *Monitor) Limit() int64 { return m.limit }

// Usage returns the last sampled heap as a fraction of the limit, or 0
// without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.heap) / float64(m.limit)
}
