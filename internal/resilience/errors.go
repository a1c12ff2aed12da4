package resilience

import "errors"

// ErrCircuitOpen is returned by CircuitBreakers.Guard when a method's
// breaker is OPEN and its recovery window has not elapsed.
var ErrCircuitOpen = errors.New("circuit breaker open")
