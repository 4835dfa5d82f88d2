// Package clock provides the "current time" dependency so the scheduler and
// session code never read the wall clock directly.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current instant
type Clock interface {
	Now() time.Time
}

// Real reads the system clock in Location (UTC when nil)
type Real struct {
	Location *time.Location
}

func (r Real) Now() time.Time {
	if r.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(r.Location)
}

// Manual is a settable clock for tests and replays
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a clock frozen at t
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Local reports another clock's time in Location
type Local struct {
	Clock    Clock
	Location *time.Location
}

func (l Local) Now() time.Time {
	return l.Clock.Now().In(l.Location)
}
