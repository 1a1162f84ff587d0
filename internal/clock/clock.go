package clock

import "time"

// Clock abstracts wall time so curation dates are testable.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// New returns a Clock backed by time.Now.
func New() Clock {
	return realClock{}
}

// Today truncates a Clock's current time to a UTC date, the key every daily
// row (assignments, curation records, weight metrics) is scoped to.
func Today(c Clock) time.Time {
	now := c.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
