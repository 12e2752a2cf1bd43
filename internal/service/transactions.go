// Package service contains the application services orchestrating the
// store, the report engine and the insight requestor.
package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/insight"
	"github.com/fintrackhq/fintrack-bff-go/internal/port"
)

var txTracer = otel.Tracer("service/transactions")

// TransactionService mediates all transaction reads and writes.
type TransactionService struct {
	store    port.TransactionStore
	insights *insight.Requestor
	logger   *zap.Logger
}

// NewTransactionService creates the transaction service.
func NewTransactionService(store port.TransactionStore, insights *insight.Requestor, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		store:    store,
		insights: insights,
		logger:   logger,
	}
}

// Create records a new transaction for the user. The cached insight list is
// invalidated so the next fetch reflects the new ledger.
func (s *TransactionService) Create(ctx context.Context, userID string, req *domain.CreateTransactionRequest) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	tx, err := s.store.Create(ctx, userID, req)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.insights.Invalidate(userID)
	return tx, nil
}

// List returns the user's full transaction list. There is no pagination:
// every aggregate is computed over the complete ledger, so partial reads
// would only produce partial truths.
func (s *TransactionService) List(ctx context.Context, userID string) ([]domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.List")
	defer span.End()

	transactions, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

// Delete removes a transaction and invalidates the user's cached insights.
func (s *TransactionService) Delete(ctx context.Context, userID, transactionID string) error {
	ctx, span := txTracer.Start(ctx, "TransactionService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	if err := s.store.Delete(ctx, transactionID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.insights.Invalidate(userID)
	s.logger.Info("transaction deleted",
		zap.String("user_id", userID),
		zap.String("transaction_id", transactionID),
	)
	return nil
}
