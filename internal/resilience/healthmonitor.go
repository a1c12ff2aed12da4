package resilience

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"videointel/pkg/logging"
)

// ErrorClass is the classification bucket assigned to a failed attempt by
// substring-matching its error message (spec.md §4.5).
type ErrorClass string

const (
	ErrTimeout     ErrorClass = "timeout"
	ErrRateLimit   ErrorClass = "rate_limit"
	ErrBlocked     ErrorClass = "blocked"
	ErrNotFound    ErrorClass = "not_found"
	ErrNoTranscript ErrorClass = "no_transcript"
	ErrNetwork     ErrorClass = "network"
	ErrOther       ErrorClass = "other"
)

// ClassifyError implements the substring classification rules of spec.md §4.5.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrOther
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return ErrTimeout
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate"):
		return ErrRateLimit
	case strings.Contains(msg, "403") || strings.Contains(msg, "blocked"):
		return ErrBlocked
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		return ErrNotFound
	case strings.Contains(msg, "no transcript") || strings.Contains(msg, "no_transcript"):
		return ErrNoTranscript
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network") || strings.Contains(msg, "dial"):
		return ErrNetwork
	default:
		return ErrOther
	}
}

type methodStats struct {
	success       int64
	failure       int64
	totalTimeMs   int64
	lastSuccessAt time.Time
	lastFailureAt time.Time
	errorTypes    map[ErrorClass]int64
	lastAlertAt   time.Time
}

// HealthMonitor maintains rolling MethodStats keyed by method name (spec.md
// §4.5), emits suppressed degradation alerts, and exposes a cached method
// priority ordering that the extractor consults to reorder methods within a
// phase (resolving the §9 open question in favor of wiring it in).
type HealthMonitor struct {
	mu     sync.Mutex
	stats  map[string]*methodStats
	logger *logging.Logger

	priorityCache     []string
	priorityCachedAt  time.Time
	priorityCacheTTL  time.Duration
}

func NewHealthMonitor(logger *logging.Logger) *HealthMonitor {
	return &HealthMonitor{
		stats:            make(map[string]*methodStats),
		logger:           logger,
		priorityCacheTTL: 5 * time.Minute,
	}
}

// RecordAttempt updates counters and classifies the error, emitting a
// degradation alert (suppressed for one hour per method) if a method with
// >=10 attempts has dropped below 50% success.
func (h *HealthMonitor) RecordAttempt(method string, success bool, durationMs int64, attemptErr error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.stats[method]
	if !ok {
		s = &methodStats{errorTypes: make(map[ErrorClass]int64)}
		h.stats[method] = s
	}

	now := time.Now()
	s.totalTimeMs += durationMs
	if success {
		s.success++
		s.lastSuccessAt = now
	} else {
		s.failure++
		s.lastFailureAt = now
		s.errorTypes[ClassifyError(attemptErr)]++
	}

	total := s.success + s.failure
	if total >= 10 {
		rate := float64(s.success) / float64(total)
		if rate < 0.5 && now.Sub(s.lastAlertAt) > time.Hour {
			s.lastAlertAt = now
			if h.logger != nil {
				h.logger.WithFields(logging.Fields{
					"method":       method,
					"success_rate": rate,
					"attempts":     total,
				}).Warn("extraction method degraded below 50% success rate")
			}
		}
	}

	// Priority ordering depends on this method's stats; invalidate the cache.
	h.priorityCachedAt = time.Time{}
}

// score implements spec.md §4.5's priority formula.
func (s *methodStats) score(now time.Time) float64 {
	total := s.success + s.failure
	if total == 0 {
		return 0.5 // neutral prior for an untried method
	}
	successRate := float64(s.success) / float64(total)
	avgTimeMs := float64(s.totalTimeMs) / float64(total)
	timeScore := math.Max(0, 1-avgTimeMs/10000)
	score := 0.7*successRate + 0.3*timeScore
	if !s.lastFailureAt.IsZero() && now.Sub(s.lastFailureAt) < 5*time.Minute {
		score *= 0.8
	}
	return score
}

// Priority returns method names sorted by descending priority score. The
// result is cached for the cache TTL; any RecordAttempt, Import or Reset
// clears the cache so the next call recomputes it.
func (h *HealthMonitor) Priority() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	if h.priorityCache != nil && now.Sub(h.priorityCachedAt) < h.priorityCacheTTL {
		out := make([]string, len(h.priorityCache))
		copy(out, h.priorityCache)
		return out
	}

	names := make([]string, 0, len(h.stats))
	for name := range h.stats {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return h.stats[names[i]].score(now) > h.stats[names[j]].score(now)
	})

	h.priorityCache = names
	h.priorityCachedAt = now
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Export produces a JSON-serializable snapshot of all tracked methods.
func (h *HealthMonitor) Export() map[string]ExportedStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]ExportedStats, len(h.stats))
	for name, s := range h.stats {
		errCopy := make(map[string]int64, len(s.errorTypes))
		for k, v := range s.errorTypes {
			errCopy[string(k)] = v
		}
		out[name] = ExportedStats{
			Success:       s.success,
			Failure:       s.failure,
			TotalTimeMs:   s.totalTimeMs,
			LastSuccessAt: s.lastSuccessAt,
			LastFailureAt: s.lastFailureAt,
			ErrorTypes:    errCopy,
		}
	}
	return out
}

// Import restores a previously Export()-ed snapshot, for the MethodStats
// export/import round-trip invariant (spec.md §8).
func (h *HealthMonitor) Import(snapshot map[string]ExportedStats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats = make(map[string]*methodStats, len(snapshot))
	for name, e := range snapshot {
		errCopy := make(map[ErrorClass]int64, len(e.ErrorTypes))
		for k, v := range e.ErrorTypes {
			errCopy[ErrorClass(k)] = v
		}
		h.stats[name] = &methodStats{
			success:       e.Success,
			failure:       e.Failure,
			totalTimeMs:   e.TotalTimeMs,
			lastSuccessAt: e.LastSuccessAt,
			lastFailureAt: e.LastFailureAt,
			errorTypes:    errCopy,
		}
	}
	h.priorityCachedAt = time.Time{}
}

// Reset clears all tracked statistics.
func (h *HealthMonitor) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats = make(map[string]*methodStats)
	h.priorityCachedAt = time.Time{}
}

// ExportedStats is the JSON-serializable form of a method's rolling stats.
type ExportedStats struct {
	Success       int64            `json:"success"`
	Failure       int64            `json:"failure"`
	TotalTimeMs   int64            `json:"total_time_ms"`
	LastSuccessAt time.Time        `json:"last_success_at"`
	LastFailureAt time.Time        `json:"last_failure_at"`
	ErrorTypes    map[string]int64 `json:"error_types"`
}
