package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(capacity int, refill float64) (*Limiter, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(capacity, refill)
	l.now = c.now
	return l, c
}

func TestLimiter_BurstThenRefill(t *testing.T) {
	l, c := newTestLimiter(2, 1)

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))

	c.t = c.t.Add(time.Second)
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, 1)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestLimiter_RefillCapsAtCapacity(t *testing.T) {
	l, c := newTestLimiter(2, 10)

	assert.True(t, l.Allow("a"))
	c.t = c.t.Add(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestLimiter_Sweep(t *testing.T) {
	l, c := newTestLimiter(1, 1)
	l.Allow("old")
	c.t = c.t.Add(10 * time.Minute)
	l.Allow("new")

	assert.Equal(t, 1, l.Sweep(5*time.Minute))
	assert.True(t, l.Allow("old"))
}
