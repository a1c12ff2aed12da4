package resilience

import (
	"context"
	"sync"
	"time"
)

// TokenBucket paces outbound requests to a single shared upstream (spec.md
// §4.4). It adapts the refill formula from the teacher's
// api_gateway/internal/middleware/ratelimit.go tokenBucket (elapsed-time
// proportional refill) into a *blocking* Acquire, since that call site only
// ever needed a non-blocking Allow() — this component's contract requires
// "waiting if empty" and must never return without a token (spec.md §8).
type TokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewTokenBucket builds a bucket with the given refill rate (tokens/second)
// and capacity. Defaults per spec.md §4.4: rate 2, capacity 10.
func NewTokenBucket(refillRate, capacity float64) *TokenBucket {
	return &TokenBucket{
		tokens:     capacity,
		capacity:   capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func DefaultTokenBucket() *TokenBucket {
	return NewTokenBucket(2, 10)
}

func (b *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// tryTake attempts to consume one token immediately, returning the wait
// duration until the next token would be available if it could not.
func (b *TokenBucket) tryTake() (ok bool, wait time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.refillLocked(now)
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	deficit := 1 - b.tokens
	return false, time.Duration(deficit / b.refillRate * float64(time.Second))
}

// Acquire blocks until a token is available or ctx is cancelled. It never
// returns a nil error without having consumed a token.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	for {
		ok, wait := b.tryTake()
		if ok {
			return nil
		}
		if wait <= 0 {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
