// Package transcript implements the 11-method (plus one supplemented
// backup) fallback orchestrator for YouTube transcript extraction
// (spec.md §4.6): three phases — direct caption sources, local subprocess
// tools, and audio transcription — tried in order, with per-method circuit
// breakers, a shared rate limiter, and health-score-based reordering within
// each phase.
package transcript

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"videointel/internal/apperr"
	"videointel/internal/cache"
	"videointel/internal/models"
	"videointel/internal/resilience"
	"videointel/pkg/logging"
)

const cacheNamespace = "transcript"

// Extractor wires the resilience primitives (circuit breakers, instance
// health, rate limiting, backoff, health-score tracking) and the cache
// around the method implementations in phase1.go/phase2.go/phase3.go.
type Extractor struct {
	httpClient *http.Client
	config     Config

	instanceHealth     *resilience.InstanceHealth
	invidiousInstances []string
	pipedInstances     []string
	ytDlpPath          string

	breakers      *resilience.CircuitBreakers
	rateLimiter   *resilience.TokenBucket
	healthMonitor *resilience.HealthMonitor
	backoff       resilience.Backoff

	cache  *cache.Store
	logger *logging.Logger
}

// NewExtractor builds an Extractor ready to serve Extract calls.
func NewExtractor(cfg Config, store *cache.Store, logger *logging.Logger) *Extractor {
	return &Extractor{
		httpClient:         &http.Client{Timeout: 30 * time.Second},
		config:             cfg,
		instanceHealth:     resilience.NewInstanceHealth(),
		invidiousInstances: cfg.InvidiousInstances,
		pipedInstances:     cfg.PipedInstances,
		ytDlpPath:          cfg.YtDlpPath,
		breakers:           resilience.NewCircuitBreakers(logger),
		rateLimiter:        resilience.DefaultTokenBucket(),
		healthMonitor:      resilience.NewHealthMonitor(logger),
		backoff:            resilience.DefaultBackoff(),
		cache:              store,
		logger:             logger,
	}
}

type methodEntry struct {
	method models.ExtractionMethod
	run    func(ctx context.Context) (models.TranscriptResult, error)
}

// Extract runs the full fallback chain for one video, consulting the cache
// first and writing it on any successful outcome (never on total failure).
func (e *Extractor) Extract(ctx context.Context, videoURLOrID string, languages []string) (models.TranscriptResult, error) {
	start := time.Now()
	videoID, err := ExtractVideoID(videoURLOrID)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	if len(languages) == 0 {
		languages = e.config.PreferredLanguages
	}
	if len(languages) == 0 {
		languages = []string{"en"}
	}

	var cached models.TranscriptResult
	if e.cache.Get(ctx, cacheNamespace, videoID, &cached) {
		e.logger.WithField("video_id", videoID).Debug("transcript cache hit")
		return cached, nil
	}

	var attempts []string

	if result, errs, ok := e.runPhase1(ctx, videoID, languages); ok {
		result.ExtractionTimeMs = time.Since(start).Milliseconds()
		e.cache.Set(ctx, cacheNamespace, videoID, result, cache.TranscriptTTL)
		return result, nil
	} else {
		attempts = append(attempts, errs...)
	}

	if result, errs, ok := e.runPhase2(ctx, videoID, languages); ok {
		result.ExtractionTimeMs = time.Since(start).Milliseconds()
		e.cache.Set(ctx, cacheNamespace, videoID, result, cache.TranscriptTTL)
		return result, nil
	} else {
		attempts = append(attempts, errs...)
	}

	result, errs, ok := e.runPhase3(ctx, videoID, languages)
	attempts = append(attempts, errs...)
	if ok {
		result.ExtractionTimeMs = time.Since(start).Milliseconds()
		e.cache.Set(ctx, cacheNamespace, videoID, result, cache.TranscriptTTL)
		return result, nil
	}

	return models.TranscriptResult{}, apperr.New(apperr.TranscriptNotAvailable,
		fmt.Sprintf("Failed to extract transcript after %d attempts: %s", len(attempts), strings.Join(attempts, "; ")),
		"video_id", videoID)
}

// runPhase1 races the direct caption-source methods in parallel; the first
// success wins and cancels the rest (spec.md §4.6 Phase 1, §9 Design Notes).
func (e *Extractor) runPhase1(ctx context.Context, videoID string, languages []string) (models.TranscriptResult, []string, bool) {
	base := []methodEntry{
		{models.MethodCaptionAPI, func(ctx context.Context) (models.TranscriptResult, error) {
			return e.captionAPIMethod(ctx, videoID, languages)
		}},
		{models.MethodInnertube, func(ctx context.Context) (models.TranscriptResult, error) {
			return e.innertubeMethod(ctx, videoID, languages)
		}},
		{models.MethodWatchPageScrape, func(ctx context.Context) (models.TranscriptResult, error) {
			return e.watchPageScrapeMethod(ctx, videoID, languages)
		}},
		{models.MethodInvidious, func(ctx context.Context) (models.TranscriptResult, error) {
			return e.invidiousMethod(ctx, videoID, languages)
		}},
		{models.MethodPiped, func(ctx context.Context) (models.TranscriptResult, error) {
			return e.pipedMethod(ctx, videoID, languages)
		}},
	}
	methods := e.reorderByPriority(base)

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result models.TranscriptResult
		err    error
		method models.ExtractionMethod
	}
	results := make(chan outcome, len(methods))
	var wg sync.WaitGroup
	for _, m := range methods {
		m := m
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.runMethod(raceCtx, m.method, m.run)
			select {
			case results <- outcome{res, err, m.method}:
			case <-raceCtx.Done():
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []string
	for o := range results {
		if o.err == nil {
			cancel()
			return o.result, errs, true
		}
		errs = append(errs, fmt.Sprintf("%s: %v", o.method, o.err))
	}
	return models.TranscriptResult{}, errs, false
}

// runPhase2 tries the local subprocess tools sequentially (spec.md §4.6
// Phase 2); unlike Phase 1 these are not raced, since each shells out to a
// subprocess and running them concurrently would only contend for the same
// local CPU/network budget for no benefit.
func (e *Extractor) runPhase2(ctx context.Context, videoID string, languages []string) (models.TranscriptResult, []string, bool) {
	base := []methodEntry{
		{models.MethodWriteSubs, func(ctx context.Context) (models.TranscriptResult, error) {
			return e.writeSubsMethod(ctx, videoID, languages)
		}},
		{models.MethodWriteAutoSubs, func(ctx context.Context) (models.TranscriptResult, error) {
			return e.writeAutoSubsMethod(ctx, videoID, languages)
		}},
	}
	methods := e.reorderByPriority(base)

	var errs []string
	for _, m := range methods {
		result, err := e.runMethod(ctx, m.method, m.run)
		if err == nil {
			return result, errs, true
		}
		errs = append(errs, fmt.Sprintf("%s: %v", m.method, err))
	}
	return models.TranscriptResult{}, errs, false
}

// runPhase3 tries the paid text-backup API first (a supplemented step,
// cheaper than audio transcription), then downloads the source audio once
// and tries each transcription provider against it in priority order
// (spec.md §4.6 Phase 3).
func (e *Extractor) runPhase3(ctx context.Context, videoID string, languages []string) (models.TranscriptResult, []string, bool) {
	var errs []string

	if result, err := e.runMethod(ctx, models.MethodPaidTextBackup, func(ctx context.Context) (models.TranscriptResult, error) {
		return e.paidTextBackupMethod(ctx, videoID, languages)
	}); err == nil {
		return result, errs, true
	} else {
		errs = append(errs, fmt.Sprintf("%s: %v", models.MethodPaidTextBackup, err))
	}

	audioPath, cleanup, err := e.downloadAudio(ctx, videoID)
	if err != nil {
		errs = append(errs, fmt.Sprintf("audio_download: %v", err))
		return models.TranscriptResult{}, errs, false
	}
	defer cleanup()

	base := []methodEntry{
		{models.MethodLowLatencyWhisper, func(ctx context.Context) (models.TranscriptResult, error) {
			return e.lowLatencyWhisperMethod(ctx, audioPath, languages)
		}},
		{models.MethodGeneralWhisper, func(ctx context.Context) (models.TranscriptResult, error) {
			return e.generalWhisperMethod(ctx, audioPath, languages)
		}},
		{models.MethodStreamingTranscribe, func(ctx context.Context) (models.TranscriptResult, error) {
			return e.streamingTranscribeMethod(ctx, audioPath, languages)
		}},
		{models.MethodAsyncPollTranscribe, func(ctx context.Context) (models.TranscriptResult, error) {
			return e.asyncPollTranscribeMethod(ctx, audioPath, languages)
		}},
	}
	methods := e.reorderByPriority(base)

	for _, m := range methods {
		result, err := e.runMethod(ctx, m.method, m.run)
		if err == nil {
			return result, errs, true
		}
		errs = append(errs, fmt.Sprintf("%s: %v", m.method, err))
	}
	return models.TranscriptResult{}, errs, false
}

// runMethod applies the shared gating around one method invocation: circuit
// breaker check, rate-limit acquisition, a single backoff-and-retry for
// transient (network/timeout) failures, and bookkeeping into both the
// circuit breaker and the health monitor.
func (e *Extractor) runMethod(ctx context.Context, method models.ExtractionMethod, fn func(ctx context.Context) (models.TranscriptResult, error)) (models.TranscriptResult, error) {
	name := string(method)
	if !e.breakers.CanExecute(name) {
		return models.TranscriptResult{}, fmt.Errorf("%s: %w", method, resilience.ErrCircuitOpen)
	}
	if err := e.rateLimiter.Acquire(ctx); err != nil {
		return models.TranscriptResult{}, err
	}

	result, err := fn(ctx)
	if err != nil {
		class := resilience.ClassifyError(err)
		if class == resilience.ErrTimeout || class == resilience.ErrNetwork {
			if waitErr := e.backoff.Wait(ctx, 0); waitErr == nil {
				result, err = fn(ctx)
			}
		}
	}

	if err != nil {
		e.breakers.RecordFailure(name)
		e.healthMonitor.RecordAttempt(name, false, 0, err)
		return models.TranscriptResult{}, err
	}
	e.breakers.RecordSuccess(name)
	e.healthMonitor.RecordAttempt(name, true, result.ExtractionTimeMs, nil)
	return result, nil
}

// reorderByPriority sorts a phase's methods by the health monitor's score
// (spec.md §9 Design Notes: method-order optimization applies within a
// phase, never across phases). Methods with no recorded stats yet keep
// their original relative order, appended after any ranked methods.
func (e *Extractor) reorderByPriority(entries []methodEntry) []methodEntry {
	priority := e.healthMonitor.Priority()
	if len(priority) == 0 {
		return entries
	}
	rank := make(map[string]int, len(priority))
	for i, name := range priority {
		rank[name] = i
	}
	sorted := append([]methodEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, oki := rank[string(sorted[i].method)]
		rj, okj := rank[string(sorted[j].method)]
		switch {
		case oki && okj:
			return ri < rj
		case oki:
			return true
		case okj:
			return false
		default:
			return false
		}
	})
	return sorted
}
