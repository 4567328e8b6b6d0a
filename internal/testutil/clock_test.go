package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/kassa/internal/clock"
)

var _ clock.Clock = (*FixedClock)(nil)

func TestFixedClock_StandsStill(t *testing.T) {
	start := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	c := NewFixedClock(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now())
}

func TestFixedClock_Advance(t *testing.T) {
	start := time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC)
	c := NewFixedClock(start)

	next := c.Advance(2 * time.Minute)
	assert.Equal(t, start.Add(2*time.Minute), next)
	assert.Equal(t, next, c.Now())
	assert.Equal(t, "2026-10-16", clock.BusinessDate(c.Now(), time.UTC))
}

func TestFixedClock_Set(t *testing.T) {
	c := NewFixedClock(time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC))
	earlier := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

	c.Set(earlier)
	assert.Equal(t, earlier, c.Now())
}

func TestFixedClock_ThreadSafe(t *testing.T) {
	start := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)
	const goroutines = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
			_ = c.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, start.Add(goroutines*time.Second), c.Now())
}
