package goals

import "time"

// Clock supplies the engine's notion of now.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always returns the same instant. Set moves it.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time          { return c.T }
func (c *FixedClock) Set(t time.Time)         { c.T = t }
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }
