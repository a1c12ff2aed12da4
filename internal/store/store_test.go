package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"videointel/internal/apperr"
	"videointel/internal/models"
)

func TestGetSummary_ReturnsSummaryWhenOwned(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "video_id", "video_title", "summary_content", "transcript_context", "language"}).
		AddRow("sum-1", "user-1", "vid-1", "Title", "summary text", "transcript text", "en")
	mock.ExpectQuery("SELECT id, user_id, video_id").WithArgs("sum-1").WillReturnRows(rows)

	s := NewStore(db)
	summary, err := s.GetSummary(context.Background(), "sum-1", "user-1")
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if summary.VideoTitle != "Title" {
		t.Fatalf("unexpected title: %s", summary.VideoTitle)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetSummary_RejectsNonOwner(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "video_id", "video_title", "summary_content", "transcript_context", "language"}).
		AddRow("sum-1", "owner", "vid-1", "Title", "text", "transcript", "en")
	mock.ExpectQuery("SELECT id, user_id, video_id").WithArgs("sum-1").WillReturnRows(rows)

	s := NewStore(db)
	_, err = s.GetSummary(context.Background(), "sum-1", "someone-else")
	if err == nil {
		t.Fatalf("expected permission error")
	}
	if !apperr.Is(err, apperr.PermissionDenied) {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
}

func TestGetSummary_MissingRowReturnsVideoNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, user_id, video_id").WithArgs("missing").WillReturnRows(
		sqlmock.NewRows([]string{"id", "user_id", "video_id", "video_title", "summary_content", "transcript_context", "language"}))

	s := NewStore(db)
	_, err = s.GetSummary(context.Background(), "missing", "user-1")
	if !apperr.Is(err, apperr.VideoNotFound) {
		t.Fatalf("expected VideoNotFound, got %v", err)
	}
}

func TestLastMessages_ReversesIntoChronologicalOrder(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "summary_id", "role", "content", "created_at", "web_search_used", "fact_checked", "sources_json", "enrichment_level"}).
		AddRow("m2", "user-1", "sum-1", "assistant", "second", now, false, false, []byte("[]"), "none").
		AddRow("m1", "user-1", "sum-1", "user", "first", now.Add(-time.Minute), false, false, []byte("[]"), "none")
	mock.ExpectQuery("SELECT id, user_id, summary_id").WithArgs("sum-1", 10).WillReturnRows(rows)

	s := NewStore(db)
	msgs, err := s.LastMessages(context.Background(), "sum-1", 10)
	if err != nil {
		t.Fatalf("last messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "first" || msgs[1].Content != "second" {
		t.Fatalf("unexpected order: %+v", msgs)
	}
}

func TestInsertMessage_MarshalsSources(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO chat_messages").WithArgs(
		"m1", "user-1", "sum-1", models.RoleAssistant, "hello", sqlmock.AnyArg(),
		true, true, sqlmock.AnyArg(), "full",
	).WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewStore(db)
	err = s.InsertMessage(context.Background(), models.ChatMessage{
		ID: "m1", UserID: "user-1", SummaryID: "sum-1", Role: models.RoleAssistant,
		Content: "hello", CreatedAt: time.Now(), WebSearchUsed: true, FactChecked: true,
		Sources: []models.Source{{Title: "a", URL: "https://a"}}, EnrichmentLevel: models.EnrichmentFull,
	})
	if err != nil {
		t.Fatalf("insert message: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDailyChatCount_NoRowReturnsZero(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT daily_count").WithArgs("user-1", sqlmock.AnyArg()).WillReturnRows(
		sqlmock.NewRows([]string{"daily_count"}))

	s := NewStore(db)
	count, err := s.DailyChatCount(context.Background(), "user-1", time.Now())
	if err != nil {
		t.Fatalf("daily chat count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestIncrementDailyChatCount_UpsertsCounter(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO chat_quotas").WithArgs("user-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewStore(db)
	if err := s.IncrementDailyChatCount(context.Background(), "user-1", time.Now()); err != nil {
		t.Fatalf("increment daily chat count: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVideoChatCount_FiltersByUserRole(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM chat_messages").WithArgs("user-1", "sum-1", models.RoleUser).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	s := NewStore(db)
	count, err := s.VideoChatCount(context.Background(), "user-1", "sum-1")
	if err != nil {
		t.Fatalf("video chat count: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4, got %d", count)
	}
}

func TestIncrementWebSearchUsage_UpsertsMonthlyCounter(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO web_search_usage").WithArgs("user-1", "2026-07", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewStore(db)
	if err := s.IncrementWebSearchUsage(context.Background(), "user-1", "2026-07", time.Now()); err != nil {
		t.Fatalf("increment web search usage: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
