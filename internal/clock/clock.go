package clock

import (
	"sync"
	"time"
)

// Clock provides current time abstraction for frames without host timestamp.
// Params: none.
// Returns: current wall-clock time.
type Clock interface {
	Now() time.Time
}

// RealClock reads current UTC time from system clock.
// Params: none.
// Returns: current UTC timestamp.
type RealClock struct{}

// Now returns current UTC time.
// Params: none.
// Returns: current UTC timestamp.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// Manual is a settable clock for deterministic tick sequences.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates manual clock at start time.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves manual time forward.
// Params: positive or zero duration.
// Returns: new current time.
func (m *Manual) Advance(step time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(step)
	return m.now
}
