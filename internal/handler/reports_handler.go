package handler

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/service"
)

// ============================================================
// Reports — /v1/reports, /v1/dashboard
// ============================================================

func summaryReportHandler(reportSvc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/summary")
		defer span.End()

		summary, err := reportSvc.Summary(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// dailyReportHandler serves one month's per-day series. The month defaults
// to the current one and can be overridden with ?month=YYYY-MM.
func dailyReportHandler(reportSvc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/daily")
		defer span.End()

		target := time.Now().UTC()
		if monthParam := r.URL.Query().Get("month"); monthParam != "" {
			parsed, err := time.Parse("2006-01", monthParam)
			if err != nil {
				writeError(w, http.StatusBadRequest, "month must be in YYYY-MM format")
				return
			}
			target = parsed
		}
		span.SetAttributes(attribute.String("report.month", target.Format("2006-01")))

		series, err := reportSvc.Daily(ctx, UserIDFromContext(ctx), target.Year(), target.Month())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, series)
	}
}

func monthlyReportHandler(reportSvc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/monthly")
		defer span.End()

		series, err := reportSvc.Monthly(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, series)
	}
}

func dashboardHandler(reportSvc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		target := time.Now().UTC()
		if monthParam := r.URL.Query().Get("month"); monthParam != "" {
			parsed, err := time.Parse("2006-01", monthParam)
			if err != nil {
				writeError(w, http.StatusBadRequest, "month must be in YYYY-MM format")
				return
			}
			target = parsed
		}

		dash, err := reportSvc.Dashboard(ctx, UserIDFromContext(ctx), target)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}
