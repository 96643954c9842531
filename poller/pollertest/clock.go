// Package pollertest provides a clock that lets tests run poll loops without waiting.
package pollertest

import (
	"sync"
	"time"
)

// InstantClock fires every wait immediately and records the requested delays.
type InstantClock struct {
	mu     sync.Mutex
	now    time.Time
	delays []time.Duration
}

func (c *InstantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Delays returns every delay requested so far.
func (c *InstantClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

// Elapsed is the sum of all requested delays.
func (c *InstantClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, d := range c.delays {
		total += d
	}
	return total
}
