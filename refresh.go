package mapcompare

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// refreshClock fires once per interval of accumulated frame time. It is a
// linear tween from 0 to 1 over the interval, restarted each time it
// completes; overflow is carried into the next period so long frames do not
// drift.
type refreshClock struct {
	tween    *gween.Tween
	interval float32
}

func newRefreshClock(interval time.Duration) *refreshClock {
	secs := float32(interval.Seconds())
	return &refreshClock{
		tween:    gween.New(0, 1, secs, ease.Linear),
		interval: secs,
	}
}

// Update advances the clock by dt seconds and returns how many periods
// elapsed.
func (c *refreshClock) Update(dt float32) int {
	if c.interval <= 0 || dt <= 0 {
		return 0
	}
	fired := 0
	_, done := c.tween.Update(dt)
	for done {
		fired++
		over := c.tween.Overflow
		c.tween.Reset()
		if over <= 0 {
			break
		}
		_, done = c.tween.Update(over)
	}
	return fired
}

// Progress returns the fraction of the current period already elapsed.
func (c *refreshClock) Progress() float64 {
	v, _ := c.tween.Update(0)
	return float64(v)
}
