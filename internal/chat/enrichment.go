package chat

import (
	"context"
	"io"
	"regexp"
	"strings"
	"time"

	"videointel/internal/apperr"
	"videointel/internal/config"
	"videointel/internal/models"
	"videointel/pkg/llm"
	"videointel/pkg/search"
)

const enrichmentLLMTimeout = 60 * time.Second

// errLLMUnavailable surfaces as a 5xx per spec.md §7 ("generation failed; no
// fallback response").
var errLLMUnavailable = apperr.New(apperr.LLMUnavailable, "LLM provider is not configured")

// EnrichmentRequest is the input to the controller (spec.md §4.11).
type EnrichmentRequest struct {
	Question               string
	Summary                models.Summary
	History                []models.ChatMessage
	UserPlan                models.Plan
	Mode                    models.Mode
	UserRequestedWebSearch  bool
}

// EnrichmentResult is returned to the chat service for persistence.
type EnrichmentResult struct {
	Response        string
	WebSearchUsed   bool
	FactChecked     bool
	Sources         []models.Source
	EnrichmentLevel models.EnrichmentLevel
}

// recentEventPatterns, publicFigurePatterns, and dynamicDataPatterns back the
// critical-fact-check detector (spec.md §4.11). The public-figure list is a
// hardcoded placeholder per spec.md §9 Design Notes' open question: fragile
// and locale-specific, pending a real entity-recognition replacement.
var (
	datePattern         = regexp.MustCompile(`(?i)\b(\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2}|january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	recentEventPattern  = regexp.MustCompile(`(?i)\b(recently|recent|2024|2025|elected|died|passed away|arrested|resigned|indicted|released from prison|sorti de prison)\b`)
	knownFigureNames    = []string{"president", "sarkozy", "biden", "trump", "macron", "musk", "putin"}
	factVerbPattern     = regexp.MustCompile(`(?i)\b(said|announced|claimed|confirmed|denied|stated|elected|died|arrested|released)\b`)
	dynamicDataPattern  = regexp.MustCompile(`(?i)\b(price|ranking|ranked|current (price|value|population|rate)|latest (statistic|figure|number))\b`)
)

var autoTriggerKeywords = regexp.MustCompile(`(?i)\b(verify|true|false|current|recent|today|source|evidence|compare|statistics)\b`)

var comparativePattern = regexp.MustCompile(`(?i)\b(compare|versus|vs\.?|better than|worse than|difference between)\b`)
var multiStepPattern = regexp.MustCompile(`(?i)\b(step by step|first.+then|walk me through)\b`)
var abstractReasoningPattern = regexp.MustCompile(`(?i)\b(why|implications?|philosophy|underlying|root cause|in theory)\b`)

// EnrichmentController derives the enrichment level, picks a model, decides
// whether to invoke fact-checking search, and builds the final response
// (spec.md §4.11). Grounded on api_consultant/internal/chat/orchestrator.go's
// overall shape (LLM call -> optional tool invocation -> merge), trimmed to
// this spec's fixed decision table instead of a free-form tool-calling loop.
type EnrichmentController struct {
	defaultLLM llm.Provider
	complexLLM llm.Provider // nil unless LLM_COMPLEX_PROVIDER is configured
	search     search.Provider
	planLimits *config.PlanLimitsTable
}

func NewEnrichmentController(defaultProvider, complexProvider llm.Provider, searchProvider search.Provider, planLimits *config.PlanLimitsTable) *EnrichmentController {
	return &EnrichmentController{defaultLLM: defaultProvider, complexLLM: complexProvider, search: searchProvider, planLimits: planLimits}
}

// providerFor implements §4.11's model-choice routing: pro+ plans route
// complex questions to the higher-tier model, everyone else always gets the
// default model.
func (c *EnrichmentController) providerFor(plan models.Plan, question string) llm.Provider {
	limits := c.planLimits.For(plan)
	if limits.ComplexModel != "" && c.complexLLM != nil && isComplex(question) {
		return c.complexLLM
	}
	return c.defaultLLM
}

// levelFromPlan derives §4.11's enrichment level straight from the plan-limits
// table (none/light/full/deep already seeded per plan).
func (c *EnrichmentController) levelFromPlan(plan models.Plan) models.EnrichmentLevel {
	return c.planLimits.For(plan).EnrichmentLevel
}

// isComplex flags a question as "complex" per §4.11's model-choice routing.
func isComplex(question string) bool {
	if comparativePattern.MatchString(question) || multiStepPattern.MatchString(question) || abstractReasoningPattern.MatchString(question) {
		return true
	}
	return len(strings.Fields(question)) > 20
}

// isCritical flags a question for fact-checking per §4.11.
func isCritical(question string) bool {
	if datePattern.MatchString(question) || recentEventPattern.MatchString(question) || dynamicDataPattern.MatchString(question) {
		return true
	}
	lower := strings.ToLower(question)
	if factVerbPattern.MatchString(question) {
		for _, name := range knownFigureNames {
			if strings.Contains(lower, name) {
				return true
			}
		}
	}
	return false
}

// enrichDecision is the outcome of §4.11's decision table.
type enrichDecision struct {
	enrich          bool
	level           models.EnrichmentLevel
	appendDisclaimer bool
}

// decide implements the §4.11 decision table exactly, evaluated top to
// bottom with the first matching row winning.
func decide(req EnrichmentRequest, level models.EnrichmentLevel, critical bool) enrichDecision {
	switch {
	case req.UserRequestedWebSearch && level != models.EnrichmentNone:
		return enrichDecision{enrich: true, level: level}
	case critical && (req.UserPlan == models.PlanPro || req.UserPlan == models.PlanExpert || req.UserPlan == models.PlanUnlimited):
		return enrichDecision{enrich: true, level: models.EnrichmentFull}
	case critical && req.UserPlan == models.PlanStarter:
		return enrichDecision{enrich: true, level: models.EnrichmentFull}
	case critical && req.UserPlan == models.PlanFree:
		return enrichDecision{enrich: false, appendDisclaimer: true}
	case !critical && (req.UserPlan == models.PlanPro || req.UserPlan == models.PlanExpert || req.UserPlan == models.PlanUnlimited) && autoTriggerKeywords.MatchString(req.Question):
		return enrichDecision{enrich: true, level: level}
	case !critical && len(strings.Fields(req.Question)) > 15 && (req.UserPlan == models.PlanPro || req.UserPlan == models.PlanExpert || req.UserPlan == models.PlanUnlimited):
		return enrichDecision{enrich: true, level: level}
	default:
		return enrichDecision{enrich: false}
	}
}

var localizedDisclaimers = map[string]string{
	"en": "\n\nNote: this answer is based only on the video's content and has not been independently fact-checked.",
	"fr": "\n\nRemarque : cette réponse se base uniquement sur le contenu de la vidéo et n'a pas été vérifiée de manière indépendante.",
}

func disclaimerFor(language string) string {
	if d, ok := localizedDisclaimers[language]; ok {
		return d
	}
	return localizedDisclaimers["en"]
}

var sourcesPerLevel = map[models.EnrichmentLevel]int{
	models.EnrichmentLight: 2,
	models.EnrichmentFull:  5,
	models.EnrichmentDeep:  8,
}

// Generate runs the full §4.11 flow: base generation, then an optional
// enrichment post-step.
func (c *EnrichmentController) Generate(ctx context.Context, req EnrichmentRequest) (EnrichmentResult, error) {
	level := c.levelFromPlan(req.UserPlan)
	critical := isCritical(req.Question)
	decision := decide(req, level, critical)

	response, err := c.baseGenerate(ctx, req)
	if err != nil {
		return EnrichmentResult{}, err
	}
	response = stripCannedPhrases(response)

	result := EnrichmentResult{Response: response, EnrichmentLevel: models.EnrichmentNone}

	if decision.enrich {
		enriched, sources, ok := c.enrich(ctx, req, decision.level)
		if ok {
			result.Response = stripCannedPhrases(enriched)
			result.WebSearchUsed = true
			result.Sources = sources
			result.FactChecked = len(sources) > 0
			result.EnrichmentLevel = decision.level
		}
		// fact_check_unavailable: base response already stands, degrade silently.
	} else if decision.appendDisclaimer {
		result.Response += disclaimerFor(req.Summary.Language)
	}

	return result, nil
}

func (c *EnrichmentController) baseGenerate(ctx context.Context, req EnrichmentRequest) (string, error) {
	return c.generateWithExtraContext(ctx, req, "")
}

// generateWithExtraContext runs one completion, optionally appending a fact-
// check context block to the system prompt (spec.md §4.11 Enrichment
// post-step merges search results into the response).
func (c *EnrichmentController) generateWithExtraContext(ctx context.Context, req EnrichmentRequest, extra string) (string, error) {
	provider := c.providerFor(req.UserPlan, req.Question)
	if provider == nil {
		return "", errLLMUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, enrichmentLLMTimeout)
	defer cancel()

	system := buildSystemPrompt(req.Summary, req.Mode, req.Question, req.History)
	if extra != "" {
		system += "\n\n" + extra
	}
	messages := []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: req.Question},
	}
	stream, err := provider.Complete(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		sb.WriteString(chunk.Content)
	}
	return sb.String(), nil
}

// enrich calls the fact-check search provider, merges the results into the
// response, and attaches sources (spec.md §4.11 Enrichment post-step).
func (c *EnrichmentController) enrich(ctx context.Context, req EnrichmentRequest, level models.EnrichmentLevel) (string, []models.Source, bool) {
	if c.search == nil {
		return "", nil, false
	}
	maxSources := sourcesPerLevel[level]
	if maxSources == 0 {
		maxSources = 2
	}

	query := req.Question + "\n" + compactSearchContext(req.Summary)
	results, err := c.search.Search(ctx, query, search.SearchOptions{Limit: maxSources})
	if err != nil || len(results) == 0 {
		return "", nil, false
	}

	var factInfo strings.Builder
	factInfo.WriteString("Verified web search results for this question:\n")
	sources := make([]models.Source, 0, len(results))
	for _, r := range results {
		factInfo.WriteString("- " + r.Title + ": " + truncateChars(r.Content, 300) + "\n")
		sources = append(sources, models.Source{Title: r.Title, URL: r.URL})
	}

	base, err := c.generateWithExtraContext(ctx, req, factInfo.String())
	if err != nil {
		return "", nil, false
	}
	merged := base + "\n\nSources:\n"
	for _, s := range sources {
		merged += "- " + s.Title + " (" + s.URL + ")\n"
	}
	return merged, sources, true
}
