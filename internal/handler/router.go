// Package handler wires the HTTP surface: routing, auth middleware and the
// JSON handlers for every endpoint.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/observability"
	"github.com/fintrackhq/fintrack-bff-go/internal/insight"
	"github.com/fintrackhq/fintrack-bff-go/internal/port"
	"github.com/fintrackhq/fintrack-bff-go/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(
	txSvc *service.TransactionService,
	reportSvc *service.ReportService,
	authSvc *service.AuthService,
	insights *insight.Requestor,
	store port.TransactionStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(store, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Auth (public)
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authSignUpHandler(authSvc, logger))
			r.Post("/signin", authSignInHandler(authSvc, logger))
			r.Get("/oauth/{provider}", authOAuthHandler(authSvc, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(authSvc, logger))
				r.Post("/signout", authSignOutHandler(authSvc, logger))
				r.Get("/me", authMeHandler(authSvc, logger))
			})
		})

		// =============================================
		// Protected application routes
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))

			// Transactions
			r.Get("/transactions", listTransactionsHandler(txSvc, logger))
			r.Post("/transactions", createTransactionHandler(txSvc, logger))
			r.Delete("/transactions/{transactionId}", deleteTransactionHandler(txSvc, logger))

			// Reports
			r.Get("/reports/summary", summaryReportHandler(reportSvc, logger))
			r.Get("/reports/daily", dailyReportHandler(reportSvc, logger))
			r.Get("/reports/monthly", monthlyReportHandler(reportSvc, logger))
			r.Get("/dashboard", dashboardHandler(reportSvc, logger))

			// Insights & chat
			r.Get("/insights", insightsHandler(txSvc, insights, logger))
			r.Post("/chat", chatHandler(insights, logger))
			r.Post("/categories/recommend", categoryHandler(insights, logger))

			// Metrics snapshot
			r.Get("/metrics/insights", insightMetricsHandler(metrics))
		})
	})

	return r
}

// ============================================================
// Health
// ============================================================

func healthzHandler(store port.TransactionStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "fintrack-bff", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		start := time.Now()
		_, err := store.List(ctx, "health-check")
		latency := time.Since(start).Milliseconds()
		status := "healthy"
		if err != nil {
			logger.Warn("health: store probe failed", zap.Error(err))
			status = "degraded"
		}
		services = append(services, domain.ServiceHealth{
			Name: "store", Status: status, LatencyMs: latency, LastChecked: now,
		})

		overall := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overall = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func insightMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetInsightSnapshot())
	}
}
