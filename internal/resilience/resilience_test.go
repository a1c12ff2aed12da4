package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreakers(nil)
	for i := 0; i < defaultFailureThreshold; i++ {
		assert.True(t, cb.CanExecute("methodA"))
		cb.RecordFailure("methodA")
	}
	assert.False(t, cb.CanExecute("methodA"), "breaker should open at the failure threshold")
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreakers(nil)
	cb.RecordFailure("methodB")
	cb.RecordFailure("methodB")
	cb.RecordSuccess("methodB")
	for i := 0; i < defaultFailureThreshold-1; i++ {
		assert.True(t, cb.CanExecute("methodB"))
		cb.RecordFailure("methodB")
	}
	assert.True(t, cb.CanExecute("methodB"), "a success should have reset the consecutive count")
}

func TestTokenBucketNeverReturnsWithoutAToken(t *testing.T) {
	b := NewTokenBucket(1000, 1) // fast refill so the test doesn't sleep long
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, b.Acquire(ctx))
	require.NoError(t, b.Acquire(ctx))
}

func TestTokenBucketAcquireRespectsCancellation(t *testing.T) {
	b := NewTokenBucket(0.001, 1) // effectively never refills within the test window
	require.NoError(t, b.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := b.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoffBoundedByMaxPlusJitter(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 5 * time.Second}
	for attempt := 0; attempt < 10; attempt++ {
		d := b.Delay(attempt)
		raw := min(time.Second<<attempt, 5*time.Second)
		assert.GreaterOrEqual(t, d, raw)
		assert.LessOrEqual(t, d, time.Duration(float64(raw)*1.3)+time.Millisecond)
	}
}

func TestHealthMonitorExportImportRoundTrip(t *testing.T) {
	hm := NewHealthMonitor(nil)
	hm.RecordAttempt("invidious", true, 120, nil)
	hm.RecordAttempt("invidious", false, 300, errors.New("429 rate limited"))

	snapshot := hm.Export()
	restored := NewHealthMonitor(nil)
	restored.Import(snapshot)

	assert.Equal(t, snapshot, restored.Export())
}

func TestHealthMonitorPriorityPenalizesRecentFailure(t *testing.T) {
	hm := NewHealthMonitor(nil)
	hm.RecordAttempt("good", true, 100, nil)
	hm.RecordAttempt("good", true, 100, nil)
	hm.RecordAttempt("recently_failed", true, 100, nil)
	hm.RecordAttempt("recently_failed", false, 100, errors.New("network error"))

	priority := hm.Priority()
	require.Len(t, priority, 2)
	assert.Equal(t, "good", priority[0])
}

func TestInstanceHealthDemotesAfterThreshold(t *testing.T) {
	ih := NewInstanceHealth()
	url := "https://invidious.example/1"
	assert.True(t, ih.IsHealthy(url))
	for i := 0; i < defaultInstanceFailureThreshold; i++ {
		ih.RecordFailure(url)
	}
	assert.False(t, ih.IsHealthy(url))
}

func TestGetHealthyInstancesOrdersHealthyFirst(t *testing.T) {
	ih := NewInstanceHealth()
	healthyURL := "https://good.example"
	badURL := "https://bad.example"
	for i := 0; i < defaultInstanceFailureThreshold; i++ {
		ih.RecordFailure(badURL)
	}
	ordered := ih.GetHealthyInstances([]string{badURL, healthyURL})
	assert.Equal(t, healthyURL, ordered[0])
	assert.Equal(t, badURL, ordered[1])
}
