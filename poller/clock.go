package poller

import "time"

// Clock schedules the waits between history queries.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

// RealClock waits on wall-clock timers.
type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
