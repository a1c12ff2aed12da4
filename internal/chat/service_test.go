package chat

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"videointel/internal/apperr"
	"videointel/internal/config"
	"videointel/internal/models"
	"videointel/internal/store"
)

func newTestPlanLimits() *config.PlanLimitsTable {
	return config.LoadPlanLimits()
}

func summaryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "video_id", "video_title", "summary_content", "transcript_context", "language"}).
		AddRow("sum-1", "user-1", "vid-1", "Title", "summary text", "transcript text", "en")
}

func TestService_Ask_HappyPathPersistsUserThenAssistantMessage(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT daily_count").WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"daily_count"}).AddRow(0))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM chat_messages").WithArgs("user-1", "sum-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT id, user_id, video_id").WithArgs("sum-1").WillReturnRows(summaryRows())
	mock.ExpectQuery("SELECT id, user_id, summary_id").WithArgs("sum-1", historyLoadCount).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "summary_id", "role", "content", "created_at", "web_search_used", "fact_checked", "sources_json", "enrichment_level"}))
	mock.ExpectExec("INSERT INTO chat_messages").WithArgs(
		sqlmock.AnyArg(), "user-1", "sum-1", models.RoleUser, "what happened?", sqlmock.AnyArg(),
		false, false, sqlmock.AnyArg(), "",
	).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO chat_messages").WithArgs(
		sqlmock.AnyArg(), "user-1", "sum-1", models.RoleAssistant, "answer text", sqlmock.AnyArg(),
		false, false, sqlmock.AnyArg(), "none",
	).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO chat_quotas").WithArgs("user-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT daily_count").WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"daily_count"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM chat_messages").WithArgs("user-1", "sum-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	s := store.NewStore(db)
	limits := newTestPlanLimits()
	enrichment := NewEnrichmentController(&stubProvider{response: "answer text"}, nil, nil, limits)
	svc := NewService(s, enrichment, limits)

	resp, err := svc.Ask(context.Background(), Request{
		UserID: "user-1", SummaryID: "sum-1", Question: "what happened?",
		UserPlan: models.PlanFree, Mode: models.ModeStandard,
	})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if resp.Response != "answer text" {
		t.Fatalf("unexpected response: %q", resp.Response)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestService_Ask_QuotaExceededStopsBeforeSummaryLoad(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT daily_count").WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"daily_count"}).AddRow(5))

	s := store.NewStore(db)
	limits := newTestPlanLimits()
	enrichment := NewEnrichmentController(&stubProvider{response: "unused"}, nil, nil, limits)
	svc := NewService(s, enrichment, limits)

	_, err = svc.Ask(context.Background(), Request{
		UserID: "user-1", SummaryID: "sum-1", Question: "what happened?",
		UserPlan: models.PlanFree, Mode: models.ModeStandard,
	})
	if !apperr.Is(err, apperr.QuotaExceeded) {
		t.Fatalf("expected QuotaExceeded, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestService_Ask_NonOwnerSummaryReturnsPermissionDenied(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT daily_count").WithArgs("user-2", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"daily_count"}).AddRow(0))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM chat_messages").WithArgs("user-2", "sum-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT id, user_id, video_id").WithArgs("sum-1").WillReturnRows(summaryRows())

	s := store.NewStore(db)
	limits := newTestPlanLimits()
	enrichment := NewEnrichmentController(&stubProvider{response: "unused"}, nil, nil, limits)
	svc := NewService(s, enrichment, limits)

	_, err = svc.Ask(context.Background(), Request{
		UserID: "user-2", SummaryID: "sum-1", Question: "what happened?",
		UserPlan: models.PlanFree, Mode: models.ModeStandard,
	})
	if !apperr.Is(err, apperr.PermissionDenied) {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
}
