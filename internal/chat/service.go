// Package chat implements the chat service (spec.md §4.12): quota-gated,
// enrichment-controlled question answering over a previously-generated
// video Summary.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"videointel/internal/config"
	"videointel/internal/models"
	"videointel/internal/store"
)

const historyLoadCount = 10

// Response is returned to the API layer for POST /chat/{summary_id}.
type Response struct {
	Response        string                 `json:"response"`
	WebSearchUsed   bool                   `json:"web_search_used"`
	FactChecked     bool                   `json:"fact_checked"`
	Sources         []models.Source        `json:"sources"`
	EnrichmentLevel models.EnrichmentLevel `json:"enrichment_level"`
	QuotaInfo       Info                   `json:"quota_info"`
}

// Service ties together quota checks, persistence, and the enrichment
// controller into the full chat flow (spec.md §4.12).
type Service struct {
	store      *store.Store
	quota      *QuotaChecker
	enrichment *EnrichmentController
	planLimits *config.PlanLimitsTable
}

func NewService(s *store.Store, enrichment *EnrichmentController, planLimits *config.PlanLimitsTable) *Service {
	return &Service{store: s, quota: NewQuotaChecker(s), enrichment: enrichment, planLimits: planLimits}
}

// Request is the input to Ask (spec.md §4.12).
type Request struct {
	UserID               string
	SummaryID            string
	Question             string
	UserPlan             models.Plan
	Mode                 models.Mode
	UserRequestedWebSearch bool
}

// Ask runs the full spec.md §4.12 flow: quota check, ownership-verified
// summary load, history load, enrichment, persistence, and quota increment.
func (s *Service) Ask(ctx context.Context, req Request) (Response, error) {
	limits := s.planLimits.For(req.UserPlan)

	// Step 1: daily-then-per-video quota, read-then-write under a per-user lock.
	if err := s.quota.Check(ctx, req.UserID, req.SummaryID, limits); err != nil {
		return Response{}, err
	}

	// Step 2: load + verify ownership.
	summary, err := s.store.GetSummary(ctx, req.SummaryID, req.UserID)
	if err != nil {
		return Response{}, err
	}

	// Step 3: last 10 messages for context.
	history, err := s.store.LastMessages(ctx, req.SummaryID, historyLoadCount)
	if err != nil {
		return Response{}, fmt.Errorf("load chat history: %w", err)
	}

	// Step 4: invoke the enrichment controller.
	result, err := s.enrichment.Generate(ctx, EnrichmentRequest{
		Question:               req.Question,
		Summary:                summary,
		History:                history,
		UserPlan:                req.UserPlan,
		Mode:                    req.Mode,
		UserRequestedWebSearch:  req.UserRequestedWebSearch,
	})
	if err != nil {
		return Response{}, err
	}

	// Step 5: persist user message, then assistant message, in that order.
	now := time.Now()
	userMsg := models.ChatMessage{
		ID: uuid.NewString(), UserID: req.UserID, SummaryID: req.SummaryID,
		Role: models.RoleUser, Content: req.Question, CreatedAt: now,
	}
	if err := s.store.InsertMessage(ctx, userMsg); err != nil {
		return Response{}, fmt.Errorf("persist user message: %w", err)
	}

	assistantMsg := models.ChatMessage{
		ID: uuid.NewString(), UserID: req.UserID, SummaryID: req.SummaryID,
		Role: models.RoleAssistant, Content: result.Response, CreatedAt: now.Add(time.Millisecond),
		WebSearchUsed: result.WebSearchUsed, FactChecked: result.FactChecked,
		Sources: result.Sources, EnrichmentLevel: result.EnrichmentLevel,
	}
	if err := s.store.InsertMessage(ctx, assistantMsg); err != nil {
		return Response{}, fmt.Errorf("persist assistant message: %w", err)
	}

	// Step 6: increment daily counter; web-search counter only on actual use
	// (supplemented from original_source chat/service.py per SPEC_FULL §12).
	if err := s.store.IncrementDailyChatCount(ctx, req.UserID, now); err != nil {
		return Response{}, fmt.Errorf("increment daily chat count: %w", err)
	}
	if result.WebSearchUsed {
		monthYear := now.Format("2006-01")
		if err := s.store.IncrementWebSearchUsage(ctx, req.UserID, monthYear, now); err != nil {
			return Response{}, fmt.Errorf("increment web search usage: %w", err)
		}
	}

	quotaInfo, err := s.quota.Info(ctx, req.UserID, req.SummaryID, limits)
	if err != nil {
		return Response{}, fmt.Errorf("load quota info: %w", err)
	}

	return Response{
		Response:        result.Response,
		WebSearchUsed:   result.WebSearchUsed,
		FactChecked:     result.FactChecked,
		Sources:         result.Sources,
		EnrichmentLevel: result.EnrichmentLevel,
		QuotaInfo:       quotaInfo,
	}, nil
}

// History returns the ordered message list for GET /chat/{summary_id}/history.
func (s *Service) History(ctx context.Context, userID, summaryID string) ([]models.ChatMessage, error) {
	if _, err := s.store.GetSummary(ctx, summaryID, userID); err != nil {
		return nil, err
	}
	return s.store.LastMessages(ctx, summaryID, 1000)
}

// Quota returns current usage for GET /chat/{summary_id}/quota.
func (s *Service) Quota(ctx context.Context, userID, summaryID string, plan models.Plan) (Info, error) {
	return s.quota.Info(ctx, userID, summaryID, s.planLimits.For(plan))
}
