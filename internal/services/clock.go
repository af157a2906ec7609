package services

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/nexconsult/nif-lookup/internal/config"
)

type realClock struct{}

// NewRealClock returns a Clock backed by the system timer
func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RandomDelay picks a duration uniformly in [r.Min, r.Max]
func RandomDelay(r config.DelayRange) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.N(r.Max-r.Min+1)
}

// pacer applies randomized waits through a Clock
type pacer struct {
	clock Clock
	pick  func(config.DelayRange) time.Duration
}

func newPacer(clock Clock) pacer {
	if clock == nil {
		clock = NewRealClock()
	}
	return pacer{clock: clock, pick: RandomDelay}
}

func (p pacer) wait(ctx context.Context, r config.DelayRange) error {
	return p.clock.Sleep(ctx, p.pick(r))
}
