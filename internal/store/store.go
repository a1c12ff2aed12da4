// Package store holds Postgres-backed access to the four core-relevant
// tables named in spec.md §6: summaries, chat_messages, chat_quotas, and
// web_search_usage. Schema version is a typed invariant (spec.md §9 Design
// Notes): Store assumes the metadata columns on chat_messages exist and
// never branches on their absence at write time.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"videointel/internal/apperr"
	"videointel/internal/models"
)

// ErrNoRows mirrors pkg/database's sentinel for a missing row.
var ErrNoRows = sql.ErrNoRows

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetSummary loads a Summary and verifies ownership in one round trip
// (spec.md §4.12 step 2).
func (s *Store) GetSummary(ctx context.Context, summaryID, userID string) (models.Summary, error) {
	const q = `
		SELECT id, user_id, video_id, video_title, summary_content, transcript_context, language
		FROM summaries WHERE id = $1`
	var sm models.Summary
	err := s.db.QueryRowContext(ctx, q, summaryID).Scan(
		&sm.ID, &sm.UserID, &sm.VideoID, &sm.VideoTitle, &sm.SummaryContent, &sm.TranscriptContext, &sm.Language,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Summary{}, apperr.New(apperr.VideoNotFound, "summary not found", "summary_id", summaryID)
	}
	if err != nil {
		return models.Summary{}, fmt.Errorf("load summary: %w", err)
	}
	if sm.UserID != userID {
		return models.Summary{}, apperr.New(apperr.PermissionDenied, "user does not own this summary", "summary_id", summaryID)
	}
	return sm, nil
}

// LastMessages returns the most recent n messages for a summary, oldest
// first, for use as chat context (spec.md §4.12 step 3).
func (s *Store) LastMessages(ctx context.Context, summaryID string, n int) ([]models.ChatMessage, error) {
	const q = `
		SELECT id, user_id, summary_id, role, content, created_at,
		       web_search_used, fact_checked, sources_json, enrichment_level
		FROM chat_messages
		WHERE summary_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := s.db.QueryContext(ctx, q, summaryID, n)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var (
			msg        models.ChatMessage
			sourcesRaw []byte
			level      sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.SummaryID, &msg.Role, &msg.Content, &msg.CreatedAt,
			&msg.WebSearchUsed, &msg.FactChecked, &sourcesRaw, &level); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		if len(sourcesRaw) > 0 {
			_ = json.Unmarshal(sourcesRaw, &msg.Sources)
		}
		msg.EnrichmentLevel = models.EnrichmentLevel(level.String)
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// reverse into chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// InsertMessage appends one chat_messages row (spec.md §4.12 step 5).
func (s *Store) InsertMessage(ctx context.Context, msg models.ChatMessage) error {
	sourcesRaw, err := json.Marshal(msg.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	const q = `
		INSERT INTO chat_messages
			(id, user_id, summary_id, role, content, created_at, web_search_used, fact_checked, sources_json, enrichment_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = s.db.ExecContext(ctx, q,
		msg.ID, msg.UserID, msg.SummaryID, msg.Role, msg.Content, msg.CreatedAt,
		msg.WebSearchUsed, msg.FactChecked, sourcesRaw, string(msg.EnrichmentLevel))
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// DailyChatCount returns how many user messages this user has sent today
// across all summaries (spec.md §4.12 step 1 daily quota).
func (s *Store) DailyChatCount(ctx context.Context, userID string, day time.Time) (int, error) {
	const q = `SELECT daily_count FROM chat_quotas WHERE user_id = $1 AND quota_date = $2`
	var count int
	err := s.db.QueryRowContext(ctx, q, userID, day.Format("2006-01-02")).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load daily chat count: %w", err)
	}
	return count, nil
}

// IncrementDailyChatCount upserts the per-day counter (spec.md §4.12 step 6).
func (s *Store) IncrementDailyChatCount(ctx context.Context, userID string, day time.Time) error {
	const q = `
		INSERT INTO chat_quotas (user_id, quota_date, daily_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, quota_date) DO UPDATE SET daily_count = chat_quotas.daily_count + 1`
	_, err := s.db.ExecContext(ctx, q, userID, day.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("increment daily chat count: %w", err)
	}
	return nil
}

// VideoChatCount returns how many user messages this user has sent against
// one summary, ever (spec.md §4.12 step 1 per-video quota).
func (s *Store) VideoChatCount(ctx context.Context, userID, summaryID string) (int, error) {
	const q = `
		SELECT COUNT(*) FROM chat_messages
		WHERE user_id = $1 AND summary_id = $2 AND role = $3`
	var count int
	err := s.db.QueryRowContext(ctx, q, userID, summaryID, models.RoleUser).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("load per-video chat count: %w", err)
	}
	return count, nil
}

// WebSearchUsage returns this month's search count for a user.
func (s *Store) WebSearchUsage(ctx context.Context, userID, monthYear string) (int, error) {
	const q = `SELECT search_count FROM web_search_usage WHERE user_id = $1 AND month_year = $2`
	var count int
	err := s.db.QueryRowContext(ctx, q, userID, monthYear).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load web search usage: %w", err)
	}
	return count, nil
}

// IncrementWebSearchUsage upserts the monthly counter, only called after an
// enrichment call actually used web search (spec.md §4.12 step 6, supplemented
// by original_source chat/service.py per SPEC_FULL §12).
func (s *Store) IncrementWebSearchUsage(ctx context.Context, userID, monthYear string, at time.Time) error {
	const q = `
		INSERT INTO web_search_usage (user_id, month_year, search_count, last_search_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id, month_year) DO UPDATE SET
			search_count = web_search_usage.search_count + 1,
			last_search_at = $3`
	_, err := s.db.ExecContext(ctx, q, userID, monthYear, at)
	if err != nil {
		return fmt.Errorf("increment web search usage: %w", err)
	}
	return nil
}
