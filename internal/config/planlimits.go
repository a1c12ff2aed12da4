// Package config seeds the plan-limits table and feature flags layered on
// top of pkg/config's GetEnv/GetEnvInt/GetEnvBool convention (SPEC_FULL §10).
package config

import (
	"strings"

	"videointel/internal/models"
	"videointel/pkg/config"
)

// PlanLimits is one row of the plan -> quota/model table (spec.md §6
// Configuration, §4.11 enrichment-level/model-choice derivation).
type PlanLimits struct {
	MonthlyAnalyses   int
	ChatDailyLimit    int // -1 means unlimited
	ChatPerVideoLimit int // -1 means unlimited
	WebSearchMonthly  int
	WebSearchEnabled  bool
	DefaultModel      string
	ComplexModel      string
	EnrichmentLevel   models.EnrichmentLevel
	MaxSources        int
}

// seedPlanLimits is the embedded default table (spec.md §4.11, §6); override
// per-field via PLAN_<PLAN>_<FIELD> environment variables at load time.
var seedPlanLimits = map[models.Plan]PlanLimits{
	models.PlanFree: {
		MonthlyAnalyses: 5, ChatDailyLimit: 5, ChatPerVideoLimit: 3,
		WebSearchMonthly: 0, WebSearchEnabled: false,
		DefaultModel: "mistral-small", EnrichmentLevel: models.EnrichmentNone, MaxSources: 0,
	},
	models.PlanStudent: {
		MonthlyAnalyses: 30, ChatDailyLimit: 20, ChatPerVideoLimit: 10,
		WebSearchMonthly: 20, WebSearchEnabled: true,
		DefaultModel: "mistral-small", EnrichmentLevel: models.EnrichmentLight, MaxSources: 2,
	},
	models.PlanStarter: {
		MonthlyAnalyses: 50, ChatDailyLimit: 30, ChatPerVideoLimit: 15,
		WebSearchMonthly: 40, WebSearchEnabled: true,
		DefaultModel: "mistral-small", EnrichmentLevel: models.EnrichmentLight, MaxSources: 2,
	},
	models.PlanPro: {
		MonthlyAnalyses: 200, ChatDailyLimit: 100, ChatPerVideoLimit: 40,
		WebSearchMonthly: 150, WebSearchEnabled: true,
		DefaultModel: "mistral-small", ComplexModel: "gpt-4-class", EnrichmentLevel: models.EnrichmentFull, MaxSources: 5,
	},
	models.PlanExpert: {
		MonthlyAnalyses: 500, ChatDailyLimit: -1, ChatPerVideoLimit: -1,
		WebSearchMonthly: 400, WebSearchEnabled: true,
		DefaultModel: "mistral-small", ComplexModel: "gpt-4-class", EnrichmentLevel: models.EnrichmentDeep, MaxSources: 8,
	},
	models.PlanTeam: {
		MonthlyAnalyses: 1000, ChatDailyLimit: -1, ChatPerVideoLimit: -1,
		WebSearchMonthly: 800, WebSearchEnabled: true,
		DefaultModel: "mistral-small", ComplexModel: "gpt-4-class", EnrichmentLevel: models.EnrichmentDeep, MaxSources: 8,
	},
	models.PlanUnlimited: {
		MonthlyAnalyses: -1, ChatDailyLimit: -1, ChatPerVideoLimit: -1,
		WebSearchMonthly: -1, WebSearchEnabled: true,
		DefaultModel: "mistral-small", ComplexModel: "gpt-4-class", EnrichmentLevel: models.EnrichmentDeep, MaxSources: 8,
	},
}

// PlanLimitsTable resolves plan -> PlanLimits, falling back to the free
// tier's limits for an unrecognized plan string rather than panicking.
type PlanLimitsTable struct {
	rows map[models.Plan]PlanLimits
}

// LoadPlanLimits returns the seed table. Per-field environment overrides use
// the PLAN_<PLAN>_<FIELD> naming convention (e.g. PLAN_PRO_CHAT_DAILY_LIMIT).
func LoadPlanLimits() *PlanLimitsTable {
	rows := make(map[models.Plan]PlanLimits, len(seedPlanLimits))
	for plan, limits := range seedPlanLimits {
		prefix := "PLAN_" + strings.ToUpper(string(plan)) + "_"
		limits.ChatDailyLimit = config.GetEnvInt(prefix+"CHAT_DAILY_LIMIT", limits.ChatDailyLimit)
		limits.ChatPerVideoLimit = config.GetEnvInt(prefix+"CHAT_PER_VIDEO_LIMIT", limits.ChatPerVideoLimit)
		limits.WebSearchMonthly = config.GetEnvInt(prefix+"WEB_SEARCH_MONTHLY", limits.WebSearchMonthly)
		limits.WebSearchEnabled = config.GetEnvBool(prefix+"WEB_SEARCH_ENABLED", limits.WebSearchEnabled)
		limits.DefaultModel = config.GetEnv(prefix+"DEFAULT_MODEL", limits.DefaultModel)
		if limits.ComplexModel != "" {
			limits.ComplexModel = config.GetEnv(prefix+"COMPLEX_MODEL", limits.ComplexModel)
		}
		rows[plan] = limits
	}
	return &PlanLimitsTable{rows: rows}
}

// For returns the limits for a plan, defaulting to the free tier for any
// plan string not in the seed table.
func (t *PlanLimitsTable) For(plan models.Plan) PlanLimits {
	if limits, ok := t.rows[plan]; ok {
		return limits
	}
	return t.rows[models.PlanFree]
}

// FeatureFlags mirrors the teacher's GetEnvBool-driven flag set.
type FeatureFlags struct {
	RateLimitEnabled bool
}

func LoadFeatureFlags() FeatureFlags {
	return FeatureFlags{
		RateLimitEnabled: config.GetEnvBool("RATE_LIMIT_ENABLED", true),
	}
}
