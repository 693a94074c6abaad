package meshfx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockTick(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewClock(func() time.Time { return now })

	now = now.Add(16 * time.Millisecond)
	assert.Equal(t, 16*time.Millisecond, c.Tick())
	assert.InDelta(t, 0.016, c.Seconds(), 1e-6)

	now = now.Add(40 * time.Millisecond)
	c.Tick()
	assert.Equal(t, 40*time.Millisecond, c.Dt)
	assert.Equal(t, now, c.Time)
}

func TestClockClampsSteps(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewClock(func() time.Time { return now })
	c.MaxDt = 100 * time.Millisecond

	now = now.Add(5 * time.Second)
	assert.Equal(t, 100*time.Millisecond, c.Tick())

	now = now.Add(-time.Second)
	assert.Equal(t, time.Duration(0), c.Tick())
}
