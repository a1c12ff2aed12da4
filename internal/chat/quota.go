package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"videointel/internal/apperr"
	"videointel/internal/config"
	"videointel/internal/store"
)

// QuotaChecker guards the daily-then-per-video chat quota under a per-user
// lock (spec.md §5 "per-user serializability for quota counters").
type QuotaChecker struct {
	store *store.Store
	locks sync.Map // userID -> *sync.Mutex
}

func NewQuotaChecker(s *store.Store) *QuotaChecker {
	return &QuotaChecker{store: s}
}

func (q *QuotaChecker) lockFor(userID string) *sync.Mutex {
	l, _ := q.locks.LoadOrStore(userID, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// Check evaluates the daily limit before the per-video limit (supplemented
// from original_source chat/service.py per SPEC_FULL §12: a daily failure
// short-circuits before the per-video check runs).
func (q *QuotaChecker) Check(ctx context.Context, userID, summaryID string, limits config.PlanLimits) error {
	lock := q.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	if limits.ChatDailyLimit != -1 {
		used, err := q.store.DailyChatCount(ctx, userID, time.Now())
		if err != nil {
			return fmt.Errorf("check daily quota: %w", err)
		}
		if used >= limits.ChatDailyLimit {
			return apperr.New(apperr.QuotaExceeded, "daily chat limit reached",
				"reason", "daily_limit_reached", "daily_limit", limits.ChatDailyLimit, "daily_used", used)
		}
	}

	if limits.ChatPerVideoLimit != -1 {
		used, err := q.store.VideoChatCount(ctx, userID, summaryID)
		if err != nil {
			return fmt.Errorf("check per-video quota: %w", err)
		}
		if used >= limits.ChatPerVideoLimit {
			return apperr.New(apperr.QuotaExceeded, "per-video chat limit reached",
				"reason", "video_limit_reached", "video_limit", limits.ChatPerVideoLimit, "video_used", used)
		}
	}
	return nil
}

// Info reports current usage for GET /chat/{summary_id}/quota.
type Info struct {
	DailyLimit    int `json:"daily_limit"`
	DailyUsed     int `json:"daily_used"`
	VideoLimit    int `json:"video_limit"`
	VideoUsed     int `json:"video_used"`
}

func (q *QuotaChecker) Info(ctx context.Context, userID, summaryID string, limits config.PlanLimits) (Info, error) {
	dailyUsed, err := q.store.DailyChatCount(ctx, userID, time.Now())
	if err != nil {
		return Info{}, err
	}
	videoUsed, err := q.store.VideoChatCount(ctx, userID, summaryID)
	if err != nil {
		return Info{}, err
	}
	return Info{
		DailyLimit: limits.ChatDailyLimit, DailyUsed: dailyUsed,
		VideoLimit: limits.ChatPerVideoLimit, VideoUsed: videoUsed,
	}, nil
}
