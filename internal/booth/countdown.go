package booth

import (
	"context"
	"time"
)

const (
	MinCountdown     = 1 * time.Second
	MaxCountdown     = 5 * time.Second
	DefaultCountdown = 3 * time.Second
	DefaultTick      = 100 * time.Millisecond
)

// ClampCountdown keeps d within [MinCountdown, MaxCountdown]. Zero or less means immediate.
func ClampCountdown(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return 0
	case d < MinCountdown:
		return MinCountdown
	case d > MaxCountdown:
		return MaxCountdown
	}
	return d
}

// Countdown is the only clock of a capture session. Progress is reported on
// every tick as a fraction below 1, and exactly 1 once the deadline passes.
type Countdown struct {
	Duration   time.Duration
	Tick       time.Duration
	OnProgress func(progress float64)
}

// Run blocks until the countdown expires or ctx is done.
func (c Countdown) Run(ctx context.Context) error {
	report := c.OnProgress
	if report == nil {
		report = func(float64) {}
	}
	if c.Duration <= 0 {
		report(1)
		return nil
	}
	tick := c.Tick
	if tick <= 0 {
		tick = DefaultTick
	}

	start := time.Now()
	deadline := time.NewTimer(c.Duration)
	defer deadline.Stop()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	report(0)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			report(1)
			return nil
		case <-ticker.C:
			p := float64(time.Since(start)) / float64(c.Duration)
			if p < 1 {
				report(p)
			}
		}
	}
}
