package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff implements spec.md §4.8: delay = min(base * 2^attempt, max) +
// uniform(0, 0.3*delay). It follows the shape of pkg/llm/provider.go's
// backoff() (exponential, ctx-aware wait via time.NewTimer+select), adding
// the jitter term the spec requires that the teacher's helper omits.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{Base: 1 * time.Second, Max: 30 * time.Second}
}

// Delay computes the delay for the given zero-based attempt number.
func (b Backoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	max := b.Max
	if max <= 0 {
		max = 30 * time.Second
	}
	raw := float64(base) * math.Pow(2, float64(attempt))
	if raw > float64(max) {
		raw = float64(max)
	}
	jitter := rand.Float64() * 0.3 * raw
	return time.Duration(raw + jitter)
}

// Wait sleeps for the computed delay or returns ctx.Err() on cancellation.
func (b Backoff) Wait(ctx context.Context, attempt int) error {
	d := b.Delay(attempt)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
