package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	before := time.Now()
	now := c.Now()
	assert.False(t, now.Before(before))
	assert.GreaterOrEqual(t, c.Since(before), time.Duration(0))

	start := time.Now()
	c.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
}

func TestMockClock(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewMockClock(base)
	assert.Equal(t, base, c.Now())

	c.Advance(90 * time.Second)
	assert.Equal(t, base.Add(90*time.Second), c.Now())
	assert.Equal(t, 90*time.Second, c.Since(base))

	c.Sleep(20 * time.Millisecond)
	c.Sleep(40 * time.Millisecond)
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 40 * time.Millisecond}, c.Sleeps())
	assert.Equal(t, base.Add(90*time.Second+60*time.Millisecond), c.Now())

	c.Set(base)
	assert.Equal(t, base, c.Now())
}

func TestMockClock_SleepsIsACopy(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	c.Sleep(time.Second)
	s := c.Sleeps()
	s[0] = time.Hour
	assert.Equal(t, []time.Duration{time.Second}, c.Sleeps())
}
