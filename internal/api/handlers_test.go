package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"videointel/internal/chat"
	"videointel/internal/config"
	"videointel/internal/discovery"
	"videointel/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := store.NewStore(db)
	limits := config.LoadPlanLimits()
	enrichment := chat.NewEnrichmentController(nil, nil, nil, limits)
	chatSvc := chat.NewService(s, enrichment, limits)

	orchestrator := discovery.NewOrchestrator(
		discovery.NewReformulator(nil),
		discovery.NewSearcher("yt-dlp"),
		discovery.NewScorer("", "", nil),
		discovery.NewTrustedPicker("", ""),
	)

	h := NewHandlers(nil, orchestrator, chatSvc)
	router := gin.New()
	RegisterRoutes(router, h)
	return router, mock
}

func TestAsk_MissingUserIDReturns401(t *testing.T) {
	router, _ := newTestRouter(t)

	body, _ := json.Marshal(chatRequestBody{Question: "what happened?"})
	req := httptest.NewRequest(http.MethodPost, "/chat/sum-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAsk_QuotaExceededReturns429(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery("SELECT daily_count").WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"daily_count"}).AddRow(99))

	body, _ := json.Marshal(chatRequestBody{Question: "what happened?"})
	req := httptest.NewRequest(http.MethodPost, "/chat/sum-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAsk_MissingBodyReturns400(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/chat/sum-1", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestQuota_ReturnsUsageForAuthenticatedUser(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery("SELECT daily_count").WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"daily_count"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM chat_messages").WithArgs("user-1", "sum-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	req := httptest.NewRequest(http.MethodGet, "/chat/sum-1/quota", nil)
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var info chat.Info
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.DailyUsed != 1 {
		t.Fatalf("unexpected daily used: %d", info.DailyUsed)
	}
}

func TestHistory_MissingUserIDReturns401(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/chat/sum-1/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDiscover_MissingQueryReturns400(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/discovery", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
