// Package clock supplies the wall-clock timestamps stamped on entities.
//
// Merges compare UpdatedAt values directly, so a clock must never hand out
// the same instant twice to consecutive writes on one device.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System is a Clock backed by time.Now whose readings strictly increase.
// If the OS clock stalls or steps backwards, the next reading is the previous
// one plus a nanosecond.
type System struct {
	mu   sync.Mutex
	last time.Time
}

// New returns a System clock.
func New() *System {
	return &System{}
}

// Now returns a UTC instant strictly after every earlier reading.
func (c *System) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC().Round(0)
	if !now.After(c.last) {
		now = c.last.Add(time.Nanosecond)
	}
	c.last = now
	return now
}

// Fixed is a manually driven Clock for tests. Every reading advances it by Step.
type Fixed struct {
	mu   sync.Mutex
	at   time.Time
	Step time.Duration
}

// NewFixed returns a Fixed clock starting at t and advancing one second per reading.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{at: t.UTC(), Step: time.Second}
}

// Now returns the current reading and advances the clock.
func (c *Fixed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.at
	c.at = c.at.Add(c.Step)
	return now
}

// Set moves the clock to t.
func (c *Fixed) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = t.UTC()
}
