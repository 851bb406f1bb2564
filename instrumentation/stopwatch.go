// Package instrumentation measures frame timings.
//
// A Stopwatch keeps the last MaxSamples lap durations in a ring; the
// compositor times rasterization with one and records the layer tree's
// build time into another.
package instrumentation

import (
	"sync"
	"sync/atomic"
	"time"
)

// MaxSamples is the number of laps a Stopwatch remembers.
const MaxSamples = 120

// FrameBudget is the duration of one frame at 60 Hz.
const FrameBudget = time.Second / 60

// FrameBudgetMultiple returns frames times FrameBudget. Non-positive
// multiples return zero.
func FrameBudgetMultiple(frames int) time.Duration {
	if frames <= 0 {
		return 0
	}
	return time.Duration(frames) * FrameBudget
}

// Clock supplies monotonic timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock. time.Time carries a monotonic reading,
// so differences are unaffected by clock changes.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock reading start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Stopwatch records lap durations into a ring of MaxSamples entries.
//
// Start advances to the next slot and Stop fills it; SetLapTime does both
// with an externally measured duration. The zero value is not usable; use
// NewStopwatch. A Stopwatch is safe for concurrent use.
type Stopwatch struct {
	mu      sync.Mutex
	clock   Clock
	start   time.Time
	laps    [MaxSamples]time.Duration
	current int
	written int
}

// NewStopwatch creates a stopwatch reading clock. A nil clock uses
// SystemClock.
func NewStopwatch(clock Clock) *Stopwatch {
	if clock == nil {
		clock = SystemClock{}
	}
	// The first Start or SetLapTime lands in slot 0.
	return &Stopwatch{clock: clock, current: MaxSamples - 1}
}

// Start begins a lap in the next slot.
func (s *Stopwatch) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = s.clock.Now()
	s.advanceLocked()
}

// Stop ends the current lap.
func (s *Stopwatch) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.laps[s.current] = s.clock.Now().Sub(s.start)
}

// SetLapTime records a lap measured elsewhere.
func (s *Stopwatch) SetLapTime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
	s.laps[s.current] = d
}

func (s *Stopwatch) advanceLocked() {
	s.current = (s.current + 1) % MaxSamples
	if s.written < MaxSamples {
		s.written++
	}
}

// Lap starts a lap and returns the function that stops it:
//
//	defer sw.Lap()()
func (s *Stopwatch) Lap() (stop func()) {
	s.Start()
	return s.Stop
}

// LastLap returns the most recently recorded lap.
func (s *Stopwatch) LastLap() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.laps[s.current]
}

// CurrentSample returns the ring index of the most recent lap.
func (s *Stopwatch) CurrentSample() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// MaxDelta returns the longest remembered lap.
func (s *Stopwatch) MaxDelta() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var m time.Duration
	for _, d := range s.laps {
		m = max(m, d)
	}
	return m
}

// AverageDelta returns the mean of the remembered laps, or zero before the
// first lap.
func (s *Stopwatch) AverageDelta() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range s.laps {
		sum += d
	}
	return sum / time.Duration(s.written)
}

// Laps returns the remembered laps, oldest first.
func (s *Stopwatch) Laps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, 0, s.written)
	for i := s.written - 1; i >= 0; i-- {
		out = append(out, s.laps[(s.current-i+MaxSamples)%MaxSamples])
	}
	return out
}

// Counter counts events. The zero value is ready to use.
type Counter struct {
	n atomic.Int64
}

// Increment adds one.
func (c *Counter) Increment() { c.n.Add(1) }

// Add adds delta.
func (c *Counter) Add(delta int64) { c.n.Add(delta) }

// Count returns the current value.
func (c *Counter) Count() int64 { return c.n.Load() }

// Reset sets the count to zero.
func (c *Counter) Reset() { c.n.Store(0) }
