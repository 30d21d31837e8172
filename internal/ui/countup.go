package ui

import (
	"context"
	"math"
	"time"
)

const (
	// CountUpDuration is how long the gauge number takes to reach its target.
	CountUpDuration = 1200 * time.Millisecond
	// FrameInterval approximates one display frame.
	FrameInterval = 16 * time.Millisecond
)

// EaseOutCubic maps t in [0,1] to 1-(1-t)^3. Out of range t is clamped.
func EaseOutCubic(t float64) float64 {
	t = math.Max(0, math.Min(1, t))
	inv := 1 - t
	return 1 - inv*inv*inv
}

// CountUp animates a number from 0 to Target.
type CountUp struct {
	Target   int
	Duration time.Duration
}

func NewCountUp(target int) CountUp {
	return CountUp{Target: target, Duration: CountUpDuration}
}

// Value is the number to show after elapsed.
func (c CountUp) Value(elapsed time.Duration) int {
	if c.Duration <= 0 || elapsed >= c.Duration {
		return c.Target
	}
	if elapsed <= 0 {
		return 0
	}
	progress := float64(elapsed) / float64(c.Duration)
	return int(math.Round(float64(c.Target) * EaseOutCubic(progress)))
}

// Run calls fn once per tick with the current value and always finishes with
// the target, unless ctx ends first.
func (c CountUp) Run(ctx context.Context, interval time.Duration, fn func(value int)) error {
	if interval <= 0 {
		interval = FrameInterval
	}
	start := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(0)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			elapsed := time.Since(start)
			fn(c.Value(elapsed))
			if elapsed >= c.Duration {
				return nil
			}
		}
	}
}
