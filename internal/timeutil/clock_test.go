package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}

	start := c.Now()
	assert.False(t, start.IsZero())
	assert.GreaterOrEqual(t, c.Since(start), time.Duration(0))
}

func TestMockClock(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	assert.Equal(t, base, c.Now())
	assert.Equal(t, base, c.Now(), "no auto step by default")

	c.Advance(90 * time.Second)
	assert.Equal(t, 90*time.Second, c.Since(base))

	later := base.Add(time.Hour)
	c.Set(later)
	assert.Equal(t, later, c.Now())
}

func TestMockClock_AutoStep(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()
	c := NewMockClock(base)
	c.AutoStep(time.Second)

	first := c.Now()
	second := c.Now()

	assert.Equal(t, base, first)
	assert.Equal(t, base.Add(time.Second), second)
	assert.Equal(t, 2*time.Second, c.Since(base))
}
