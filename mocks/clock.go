package mocks

import (
	"sync"
	"time"
)

// Clock is a settable WallClock, letting tests pin the time embedded in locks.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a WallClock fixed at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock forward (or backward) to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
