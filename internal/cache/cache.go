// Package cache adapts the shared pkg/cache primitive into the namespaced
// content-addressed store described in spec.md §4.1 (component A): keys of
// the form "<namespace>:<id>", a default TTL per namespace, and cache
// failures that are always non-fatal (miss-on-error, never propagated).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"videointel/pkg/cache"
	"videointel/pkg/logging"
)

const (
	TranscriptTTL   = 24 * time.Hour
	TrustedScoreTTL = 24 * time.Hour
)

// Store is the key-value interface consulted by the transcript extractor and
// the quality scorer before any network work.
type Store struct {
	local  *cache.Cache
	redis  goredis.UniversalClient // nil unless a shared backend is configured
	logger *logging.Logger
}

// New builds a Store. redisClient may be nil, in which case the in-process
// map-with-TTL-and-LRU backend from pkg/cache is used exclusively.
func New(redisClient goredis.UniversalClient, logger *logging.Logger) *Store {
	return &Store{
		local: cache.New(cache.Options{
			TTL:                  TranscriptTTL,
			StaleWhileRevalidate: 0,
			MaxEntries:           100_000,
		}, cache.MetricsHooks{}),
		redis:  redisClient,
		logger: logger,
	}
}

func key(namespace, id string) string {
	return fmt.Sprintf("%s:%s", namespace, id)
}

// Get looks up namespace:id. A cache-backend error is swallowed and reported
// as a plain miss, per spec.md §4.1 ("cache failures are non-fatal").
func (s *Store) Get(ctx context.Context, namespace, id string, out any) (hit bool) {
	k := key(namespace, id)

	if s.redis != nil {
		raw, err := s.redis.Get(ctx, k).Bytes()
		if err == nil {
			if jerr := json.Unmarshal(raw, out); jerr == nil {
				return true
			}
		} else if err != goredis.Nil && s.logger != nil {
			s.logger.WithError(err).WithFields(logging.Fields{"key": k}).Warn("cache backend error, treating as miss")
		}
	}

	val, ok := s.local.Peek(k)
	if !ok {
		return false
	}
	raw, ok := val.([]byte)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

// Set writes namespace:id with the given TTL. Errors from an optional shared
// backend are logged but never returned: callers proceed as if the write
// simply didn't happen.
func (s *Store) Set(ctx context.Context, namespace, id string, val any, ttl time.Duration) {
	k := key(namespace, id)
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	s.local.Set(k, raw, ttl)
	if s.redis != nil {
		if err := s.redis.Set(ctx, k, raw, ttl).Err(); err != nil && s.logger != nil {
			s.logger.WithError(err).WithFields(logging.Fields{"key": k}).Warn("cache backend write failed")
		}
	}
}

// Invalidate explicitly evicts namespace:id. Resolves the open question in
// spec.md §9 ("a systems rewrite should expose an explicit invalidation
// API") — nothing calls this automatically; it exists for an operator path
// outside this module's scope.
func (s *Store) Invalidate(ctx context.Context, namespace, id string) {
	k := key(namespace, id)
	s.local.Delete(k)
	if s.redis != nil {
		if err := s.redis.Del(ctx, k).Err(); err != nil && s.logger != nil {
			s.logger.WithError(err).WithFields(logging.Fields{"key": k}).Warn("cache backend invalidate failed")
		}
	}
}
