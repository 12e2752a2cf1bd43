package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/config"
	"github.com/fintrackhq/fintrack-bff-go/internal/handler"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/appwrite"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/cache"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/gemini"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/memstore"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/observability"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/openai"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/resilience"
	"github.com/fintrackhq/fintrack-bff-go/internal/insight"
	"github.com/fintrackhq/fintrack-bff-go/internal/port"
	"github.com/fintrackhq/fintrack-bff-go/internal/report"
	"github.com/fintrackhq/fintrack-bff-go/internal/service"
)

func main() {
	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("ai_provider", cfg.AIProvider),
		zap.Bool("use_memstore", cfg.UseMemstore),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("insight_timeout", cfg.InsightTimeout),
		zap.Int("max_suggestions", cfg.MaxSuggestions),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "fintrack-bff")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	insightCache := cache.New[[]string](cfg.CacheTTL)
	defer insightCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	storeCB := resilience.NewCircuitBreaker("appwrite")
	aiCB := resilience.NewCircuitBreaker("ai")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Store + auth backend ---
	var store port.TransactionStore
	var authProvider port.AuthProvider

	if cfg.UseMemstore || cfg.AppwriteProjectID == "" {
		logger.Warn("using in-memory store: data will not survive a restart")
		mem := memstore.New()
		store = mem
		authProvider = mem
	} else {
		logger.Info("using Appwrite as data backend",
			zap.String("endpoint", cfg.AppwriteEndpoint),
			zap.String("database_id", cfg.AppwriteDatabaseID),
		)
		appwriteClient := appwrite.NewClient(
			httpClient,
			cfg.AppwriteEndpoint,
			cfg.AppwriteProjectID,
			cfg.AppwriteAPIKey,
			cfg.AppwriteDatabaseID,
			cfg.AppwriteCollectionID,
			storeCB,
			resilienceCfg,
			logger,
		)
		store = appwriteClient
		authProvider = appwriteClient
	}

	// --- Text generation backend ---
	var generator port.TextGenerator
	switch cfg.AIProvider {
	case "openai":
		logger.Info("using OpenAI for text generation", zap.String("model", cfg.OpenAIModel))
		generator = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, aiCB, resilienceCfg, logger)
	default:
		logger.Info("using Gemini for text generation", zap.String("model", cfg.GeminiModel))
		generator = gemini.NewClient(httpClient, cfg.GeminiAPIKey, cfg.GeminiModel, aiCB, resilienceCfg, logger)
	}

	// --- Services ---
	insights := insight.NewRequestor(
		generator,
		insightCache,
		bulkhead,
		metrics,
		logger,
		cfg.InsightTimeout,
		cfg.MaxSuggestions,
	)
	txSvc := service.NewTransactionService(store, insights, logger)
	reportSvc := service.NewReportService(store, report.NewEngine(logger), insights, logger)
	authSvc := service.NewAuthService(authProvider, []byte(cfg.JWTSecret), cfg.JWTAccessTTL, logger)

	// --- Router ---
	router := handler.NewRouter(txSvc, reportSvc, authSvc, insights, store, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
