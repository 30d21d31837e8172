package ui

import (
	"context"
	"time"
)

// StepInterval is the delay between checklist steps lighting up.
const StepInterval = 450 * time.Millisecond

// EnhancementSteps are shown one by one on the processing panel. They are
// cosmetic and do not track backend progress.
var EnhancementSteps = []string{
	"Analyzing color balance",
	"Correcting exposure",
	"Enhancing contrast",
	"Sharpening details",
	"Finalizing image",
}

// VisibleSteps is how many steps are lit after elapsed. The first one is lit
// immediately and the count never passes len(EnhancementSteps).
func VisibleSteps(elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	n := int(elapsed/StepInterval) + 1
	if n > len(EnhancementSteps) {
		n = len(EnhancementSteps)
	}
	return n
}

// Checklist drives the processing steps for clients that animate in place.
type Checklist struct {
	Steps    []string
	Interval time.Duration
}

func NewChecklist() Checklist {
	return Checklist{Steps: EnhancementSteps, Interval: StepInterval}
}

// Run calls fn with each step index in order, Interval apart. It stops early
// when ctx is done, which is how callers cancel it once the backend answers.
func (c Checklist) Run(ctx context.Context, fn func(i int, step string)) error {
	interval := c.Interval
	if interval <= 0 {
		interval = StepInterval
	}
	for i, step := range c.Steps {
		if i > 0 {
			t := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		fn(i, step)
	}
	return nil
}
