package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/insight"
	"github.com/fintrackhq/fintrack-bff-go/internal/port"
	"github.com/fintrackhq/fintrack-bff-go/internal/report"
)

var reportTracer = otel.Tracer("service/reports")

// ReportService computes aggregate reports over a user's full ledger.
// Every call refetches the transaction list; reports are never persisted.
type ReportService struct {
	store    port.TransactionStore
	engine   *report.Engine
	insights *insight.Requestor
	logger   *zap.Logger
}

// NewReportService creates the report service.
func NewReportService(store port.TransactionStore, engine *report.Engine, insights *insight.Requestor, logger *zap.Logger) *ReportService {
	return &ReportService{
		store:    store,
		engine:   engine,
		insights: insights,
		logger:   logger,
	}
}

// Summary returns headline totals for the user.
func (s *ReportService) Summary(ctx context.Context, userID string) (*domain.SummaryReport, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Summary")
	defer span.End()

	transactions, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return s.engine.Summary(transactions), nil
}

// Daily returns the per-day series for one calendar month.
func (s *ReportService) Daily(ctx context.Context, userID string, year int, month time.Month) (*domain.SeriesReport, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Daily")
	defer span.End()
	span.SetAttributes(
		attribute.Int("report.year", year),
		attribute.Int("report.month", int(month)),
	)

	transactions, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return s.engine.DailySeries(transactions, year, month), nil
}

// Monthly returns the per-month series over the whole ledger.
func (s *ReportService) Monthly(ctx context.Context, userID string) (*domain.SeriesReport, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Monthly")
	defer span.End()

	transactions, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return s.engine.MonthlySeries(transactions), nil
}

// Dashboard assembles the landing-page view: one store read, then the
// summary, the current month's daily series and the insight list computed
// concurrently from the same snapshot.
func (s *ReportService) Dashboard(ctx context.Context, userID string, now time.Time) (*domain.Dashboard, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Dashboard")
	defer span.End()

	transactions, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	dash := &domain.Dashboard{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dash.Summary = s.engine.Summary(transactions)
		return nil
	})
	g.Go(func() error {
		dash.Daily = s.engine.DailySeries(transactions, now.Year(), now.Month())
		return nil
	})
	g.Go(func() error {
		suggestions, fallback := s.insights.Suggestions(gCtx, userID, transactions)
		dash.Suggestions = suggestions
		dash.Fallback = fallback
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dash, nil
}
