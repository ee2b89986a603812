package clock

import "time"

// FakeClock pins Now to a fixed instant so posting dates and document
// defaults are deterministic in tests.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward, for aging and due-date scenarios.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
