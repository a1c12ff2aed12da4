package config

import (
	"videointel/internal/transcript"
	"videointel/pkg/config"
	"videointel/pkg/llm"
	"videointel/pkg/search"
)

// ServiceConfig is the fully merged startup configuration (spec.md §6
// Configuration): per-service API keys/URLs, the transcript extractor's
// provider table, the LLM and web-search provider configs, the plan-limits
// table, and feature flags.
type ServiceConfig struct {
	Port             string
	DatabaseURL      string
	RedisURL         string
	ContentRatingURL string
	ContentRatingKey string

	Transcript transcript.Config
	LLM        llm.Config
	ComplexLLM llm.Config // Provider empty unless LLM_COMPLEX_PROVIDER is set
	Search     search.Config
	PlanLimits *PlanLimitsTable
	Flags      FeatureFlags
}

func Load() ServiceConfig {
	return ServiceConfig{
		Port:             config.GetEnv("PORT", "8080"),
		DatabaseURL:      config.GetEnv("DATABASE_URL", ""),
		RedisURL:         config.GetEnv("REDIS_URL", ""),
		ContentRatingURL: config.GetEnv("CONTENT_RATING_API_URL", ""),
		ContentRatingKey: config.GetEnv("CONTENT_RATING_API_KEY", ""),

		Transcript: transcript.ConfigFromEnv(),
		LLM:        llm.LoadConfig(),
		ComplexLLM: loadComplexLLMConfig(),
		Search:     search.LoadConfig(),
		PlanLimits: LoadPlanLimits(),
		Flags:      LoadFeatureFlags(),
	}
}

// loadComplexLLMConfig reads the higher-tier model used for pro+ plans'
// complex-question routing (spec.md §4.11). Unlike llm.LoadEmbeddingConfig,
// this deliberately does NOT fall back to LLM_*: an unset LLM_COMPLEX_PROVIDER
// leaves Provider empty, and main then skips building the provider and runs
// with complexLLM nil instead of silently routing every plan's complex
// questions to the same model.
func loadComplexLLMConfig() llm.Config {
	return llm.Config{
		Provider:  config.GetEnv("LLM_COMPLEX_PROVIDER", ""),
		Model:     config.GetEnv("LLM_COMPLEX_MODEL", ""),
		APIKey:    config.GetEnv("LLM_COMPLEX_API_KEY", ""),
		APIURL:    config.GetEnv("LLM_COMPLEX_API_URL", ""),
		MaxTokens: config.GetEnvInt("LLM_COMPLEX_MAX_TOKENS", 0),
	}
}
