package engine

import "time"

// Clock abstracts wall-clock time so capture-slot logic is testable
// without real-time waits.
type Clock interface {
	Now() time.Time
}

type locationClock struct {
	loc *time.Location
}

// NewClock returns a Clock pinned to the given location.
func NewClock(loc *time.Location) Clock {
	return &locationClock{loc: loc}
}

func (c *locationClock) Now() time.Time {
	return time.Now().In(c.loc)
}
