package meshfx

import (
	"time"
)

// Clock measures the variable time step between frames.
type Clock struct {
	Time time.Time
	Dt   time.Duration
	// MaxDt caps a single step, e.g. after the process was suspended. 0 disables the cap.
	MaxDt time.Duration

	now func() time.Time
}

// NewClock starts a clock at now(). A nil now uses time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{Time: now(), now: now}
}

// Tick advances the clock to the current time and returns the elapsed step.
func (c *Clock) Tick() time.Duration {
	t := c.now()
	c.Dt = t.Sub(c.Time)
	if c.Dt < 0 {
		c.Dt = 0
	}
	if c.MaxDt > 0 && c.Dt > c.MaxDt {
		c.Dt = c.MaxDt
	}
	c.Time = t
	return c.Dt
}

// Seconds is the last step in seconds.
func (c *Clock) Seconds() float32 { return float32(c.Dt.Seconds()) }
