package common

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Stats holds atomic counters for progress tracking during long observation passes.
type Stats struct {
	FlaresProcessed uint64 // Atomic counter for flares evaluated
	FlaresFailed    uint64 // Atomic counter for flares that fell back to a zero record
	BytesFetched    uint64 // Atomic counter for archive bytes downloaded
	LastFlareNanos  uint64 // Atomic duration of the most recent flare evaluation

	total uint64 // Expected number of flares (0 if unknown)

	// Internal state for reporter
	running    atomic.Bool
	stopCh     chan struct{}
	interval   time.Duration
	silent     bool
	lastFlares uint64
	lastTime   time.Time
}

// NewStats creates a new Stats instance reporting every interval.
func NewStats(total int, interval time.Duration) *Stats {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Stats{
		stopCh:   make(chan struct{}),
		interval: interval,
		total:    uint64(total),
	}
}

// AddFlare records one evaluated flare and how long it took.
func (s *Stats) AddFlare(elapsed time.Duration, failed bool) {
	atomic.AddUint64(&s.FlaresProcessed, 1)
	if failed {
		atomic.AddUint64(&s.FlaresFailed, 1)
	}
	atomic.StoreUint64(&s.LastFlareNanos, uint64(elapsed.Nanoseconds()))
}

// AddBytes atomically increments the archive bytes counter.
func (s *Stats) AddBytes(count uint64) {
	atomic.AddUint64(&s.BytesFetched, count)
}

// GetFlares atomically reads the number of evaluated flares.
func (s *Stats) GetFlares() uint64 {
	return atomic.LoadUint64(&s.FlaresProcessed)
}

// GetFailed atomically reads the number of failed flares.
func (s *Stats) GetFailed() uint64 {
	return atomic.LoadUint64(&s.FlaresFailed)
}

// GetBytes atomically reads the archive bytes counter.
func (s *Stats) GetBytes() uint64 {
	return atomic.LoadUint64(&s.BytesFetched)
}

// SetSilent enables or disables silent mode
func (s *Stats) SetSilent(silent bool) {
	s.silent = silent
}

// StartReporter starts a background goroutine that logs progress every interval.
func (s *Stats) StartReporter() {
	if s.running.Load() {
		return
	}

	s.running.Store(true)
	s.lastTime = time.Now()
	s.lastFlares = 0

	go s.reporterLoop()
}

// StopReporter stops the background reporter goroutine
func (s *Stats) StopReporter() {
	if !s.running.Load() {
		return
	}

	s.running.Store(false)
	close(s.stopCh)
}

func (s *Stats) reporterLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.printStatus()
		}
	}
}

func (s *Stats) printStatus() {
	if s.silent {
		return
	}

	now := time.Now()
	elapsed := now.Sub(s.lastTime).Seconds()
	if elapsed < 0.001 {
		return
	}

	current := s.GetFlares()
	rate := float64(current-s.lastFlares) / elapsed
	lastMs := float64(atomic.LoadUint64(&s.LastFlareNanos)) / 1_000_000

	fields := logrus.Fields{
		"flares":  current,
		"failed":  s.GetFailed(),
		"rate":    rate,
		"last_ms": lastMs,
		"mib":     float64(s.GetBytes()) / (1024 * 1024),
	}
	if s.total > 0 {
		fields["total"] = s.total
		fields["pct"] = float64(current) * 100 / float64(s.total)
	}

	logrus.WithFields(fields).Info("[Progress]")

	s.lastFlares = current
	s.lastTime = now
}

// Reset resets all counters (useful for testing or restarting)
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.FlaresProcessed, 0)
	atomic.StoreUint64(&s.FlaresFailed, 0)
	atomic.StoreUint64(&s.BytesFetched, 0)
	atomic.StoreUint64(&s.LastFlareNanos, 0)
	s.lastFlares = 0
	s.lastTime = time.Now()
}
