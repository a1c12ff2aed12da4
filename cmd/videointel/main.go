// Command videointel is the service entrypoint: it wires the transcript
// extractor, discovery orchestrator, and chat service onto the shared
// database/cache/LLM/search clients and serves the §6 HTTP surface with the
// teacher's gin bootstrap (pkg/server).
package main

import (
	"context"

	"videointel/internal/api"
	"videointel/internal/cache"
	"videointel/internal/chat"
	"videointel/internal/config"
	"videointel/internal/discovery"
	"videointel/internal/store"
	"videointel/internal/transcript"
	"videointel/pkg/database"
	"videointel/pkg/llm"
	"videointel/pkg/logging"
	"videointel/pkg/middleware"
	"videointel/pkg/monitoring"
	"videointel/pkg/redis"
	"videointel/pkg/search"
	"videointel/pkg/server"
	baseconfig "videointel/pkg/config"
	"videointel/pkg/version"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	logger := logging.NewLoggerWithService("videointel")
	baseconfig.LoadEnv(logger)

	logger.Info("Starting videointel (YouTube video intelligence service)")

	cfg := config.Load()

	dbConfig := database.DefaultConfig()
	dbConfig.URL = cfg.DatabaseURL
	db := database.MustConnect(dbConfig, logger)
	defer func() { _ = db.Close() }()

	var redisClient goredis.UniversalClient
	if cfg.RedisURL != "" {
		client, err := redis.NewClientFromURL(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to Redis - falling back to in-process cache only")
		} else {
			redisClient = client
			defer func() { _ = client.Close() }()
		}
	} else {
		logger.Warn("REDIS_URL not set - using in-process cache only")
	}
	cacheStore := cache.New(redisClient, &logger)

	extractor := transcript.NewExtractor(cfg.Transcript, cacheStore, &logger)

	defaultLLM, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize default LLM provider - chat enrichment and reformulation disabled")
		defaultLLM = nil
	}

	var complexLLM llm.Provider
	if cfg.ComplexLLM.Provider != "" {
		cl, clErr := llm.NewProvider(cfg.ComplexLLM)
		if clErr != nil {
			logger.WithError(clErr).Warn("Failed to initialize complex LLM provider - pro+ plans fall back to the default model")
		} else {
			complexLLM = cl
		}
	}

	searchProvider, err := search.NewProvider(cfg.Search)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize search provider - web search and fact-checking disabled")
		searchProvider = nil
	}

	reformulator := discovery.NewReformulator(defaultLLM)
	searcher := discovery.NewSearcher(cfg.Transcript.YtDlpPath)
	scorer := discovery.NewScorer(cfg.ContentRatingURL, cfg.ContentRatingKey, cacheStore)
	trusted := discovery.NewTrustedPicker(cfg.ContentRatingURL, cfg.ContentRatingKey)
	orchestrator := discovery.NewOrchestrator(reformulator, searcher, scorer, trusted)

	dataStore := store.NewStore(db)
	enrichment := chat.NewEnrichmentController(defaultLLM, complexLLM, searchProvider, cfg.PlanLimits)
	chatService := chat.NewService(dataStore, enrichment, cfg.PlanLimits)

	handlers := api.NewHandlers(extractor, orchestrator, chatService)

	healthChecker := monitoring.NewHealthChecker("videointel", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("videointel", version.Version, version.GitCommit)
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
	}))

	router := server.SetupServiceRouter(logger, "videointel", healthChecker, metricsCollector)

	serviceToken := baseconfig.GetEnv("SERVICE_TOKEN", "")
	if serviceToken == "" {
		logger.Warn("SERVICE_TOKEN not set - API routes are unauthenticated at the service-token layer")
		api.RegisterRoutes(router, handlers)
	} else {
		apiGroup := router.Group("/")
		apiGroup.Use(middleware.ServiceAuthMiddleware(serviceToken))
		api.RegisterRoutes(apiGroup, handlers)
	}

	serverConfig := server.DefaultConfig("videointel", cfg.Port)
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
