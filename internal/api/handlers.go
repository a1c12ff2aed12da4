// Package api wires the §6 HTTP surface onto the discovery, transcript, and
// chat components using the teacher's gin bootstrap (pkg/server,
// pkg/middleware).
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"videointel/internal/apperr"
	"videointel/internal/chat"
	"videointel/internal/discovery"
	"videointel/internal/models"
	"videointel/internal/transcript"
)

// Handlers holds the component references consulted by each route.
type Handlers struct {
	Extractor   *transcript.Extractor
	Orchestrator *discovery.Orchestrator
	Chat        *chat.Service
}

func NewHandlers(extractor *transcript.Extractor, orchestrator *discovery.Orchestrator, chatSvc *chat.Service) *Handlers {
	return &Handlers{Extractor: extractor, Orchestrator: orchestrator, Chat: chatSvc}
}

// resolveUserID reads the caller's identity from the X-User-Id header, the
// convention the gateway in front of this service uses to forward an
// authenticated user's identity (no session/auth handling lives here).
func resolveUserID(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.GetHeader("X-User-Id"))
	return userID, userID != ""
}

func resolveUserPlan(c *gin.Context) models.Plan {
	plan := strings.TrimSpace(c.GetHeader("X-User-Plan"))
	if plan == "" {
		return models.PlanFree
	}
	return models.Plan(plan)
}

// writeError maps a typed apperr.Error to its §7 HTTP status; anything else
// is an unclassified 500.
func writeError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body := gin.H{"error": appErr.Message, "code": appErr.Code}
		for k, v := range appErr.Context {
			body[k] = v
		}
		c.JSON(appErr.HTTPStatus(), body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// extractTranscriptRequest is the body of POST /transcripts/extract (§6).
type extractTranscriptRequest struct {
	VideoURL  string   `json:"video_url" binding:"required"`
	Languages []string `json:"languages"`
}

func (h *Handlers) ExtractTranscript(c *gin.Context) {
	var req extractTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Extractor.Extract(c.Request.Context(), req.VideoURL, req.Languages)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// discoveryRequestBody is the body of POST /discovery (§6).
type discoveryRequestBody struct {
	Query        string               `json:"query" binding:"required"`
	Languages    []string             `json:"languages"`
	MaxResults   int                  `json:"max_results"`
	MinQuality   float64              `json:"min_quality"`
	DurationType models.DurationType  `json:"duration_type"`
}

func (h *Handlers) Discover(c *gin.Context) {
	var body discoveryRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.Orchestrator.Discover(c.Request.Context(), models.DiscoveryRequest{
		Query:        body.Query,
		Languages:    body.Languages,
		MaxResults:   body.MaxResults,
		MinQuality:   body.MinQuality,
		DurationType: body.DurationType,
	})
	c.JSON(http.StatusOK, result)
}

// chatRequestBody is the body of POST /chat/{summary_id} (§6).
type chatRequestBody struct {
	Question      string       `json:"question" binding:"required"`
	UseWebSearch  bool         `json:"use_web_search"`
	Mode          models.Mode  `json:"mode"`
}

func (h *Handlers) Ask(c *gin.Context) {
	userID, ok := resolveUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-Id"})
		return
	}
	summaryID := c.Param("summary_id")

	var body chatRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode := body.Mode
	if mode == "" {
		mode = models.ModeStandard
	}

	resp, err := h.Chat.Ask(c.Request.Context(), chat.Request{
		UserID: userID, SummaryID: summaryID, Question: body.Question,
		UserPlan: resolveUserPlan(c), Mode: mode, UserRequestedWebSearch: body.UseWebSearch,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) History(c *gin.Context) {
	userID, ok := resolveUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-Id"})
		return
	}
	summaryID := c.Param("summary_id")

	msgs, err := h.Chat.History(c.Request.Context(), userID, summaryID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handlers) Quota(c *gin.Context) {
	userID, ok := resolveUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-Id"})
		return
	}
	summaryID := c.Param("summary_id")

	info, err := h.Chat.Quota(c.Request.Context(), userID, summaryID, resolveUserPlan(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// RegisterRoutes attaches the §6 endpoints to router. router is typically a
// gin.Engine or a gin.RouterGroup carrying service-auth middleware.
func RegisterRoutes(router gin.IRouter, h *Handlers) {
	router.POST("/transcripts/extract", h.ExtractTranscript)
	router.POST("/discovery", h.Discover)
	router.POST("/chat/:summary_id", h.Ask)
	router.GET("/chat/:summary_id/history", h.History)
	router.GET("/chat/:summary_id/quota", h.Quota)
}
