package resilience

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	defaultInstanceFailureThreshold = 3
	defaultInstanceRecheckInterval  = 600 * time.Second
)

// InstanceHealth gates individual mirror instances (Invidious/Piped URLs)
// within a method, distinct from the method-level CircuitBreakers (spec.md
// §4.3). Each instance gets its own gobreaker — chosen over a second
// failsafe-go breaker because this registry is purely a
// consecutive-failure-then-cooldown counter, which is exactly gobreaker's
// default `ReadyToTrip` shape, and keeps a second pack library (gobreaker,
// used elsewhere in the example pack for the same purpose) in play rather
// than stretching failsafe-go to cover a second, differently-shaped gate.
type InstanceHealth struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

// NewInstanceHealth builds a registry using spec.md §4.3 defaults.
func NewInstanceHealth() *InstanceHealth {
	return &InstanceHealth{
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func (h *InstanceHealth) get(url string) *gobreaker.CircuitBreaker[struct{}] {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cb, ok := h.breakers[url]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        url,
		MaxRequests: 1,
		Timeout:     defaultInstanceRecheckInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= defaultInstanceFailureThreshold
		},
	})
	h.breakers[url] = cb
	return cb
}

// RecordSuccess marks a successful call to the instance, resetting its
// consecutive-failure counter.
func (h *InstanceHealth) RecordSuccess(url string) {
	cb := h.get(url)
	_, _ = cb.Execute(func() (struct{}, error) { return struct{}{}, nil })
}

// RecordFailure marks a failed call; after the configured consecutive
// failures the instance is demoted until the recheck interval elapses.
func (h *InstanceHealth) RecordFailure(url string) {
	cb := h.get(url)
	_, _ = cb.Execute(func() (struct{}, error) { return struct{}{}, errInstanceFailure })
}

// IsHealthy reports whether the instance is currently eligible for use.
func (h *InstanceHealth) IsHealthy(url string) bool {
	return h.get(url).State() != gobreaker.StateOpen
}

// GetHealthyInstances returns the given instance list reordered so healthy
// instances come first (shuffled, for load spreading) followed by unhealthy
// ones as a last resort, per spec.md §4.3.
func (h *InstanceHealth) GetHealthyInstances(urls []string) []string {
	healthy := make([]string, 0, len(urls))
	unhealthy := make([]string, 0)
	for _, u := range urls {
		if h.IsHealthy(u) {
			healthy = append(healthy, u)
		} else {
			unhealthy = append(unhealthy, u)
		}
	}
	rand.Shuffle(len(healthy), func(i, j int) { healthy[i], healthy[j] = healthy[j], healthy[i] })
	rand.Shuffle(len(unhealthy), func(i, j int) { unhealthy[i], unhealthy[j] = unhealthy[j], unhealthy[i] })
	return append(healthy, unhealthy...)
}

var errInstanceFailure = instanceFailureError{}

type instanceFailureError struct{}

func (instanceFailureError) Error() string { return "instance call failed" }
