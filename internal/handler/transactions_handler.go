package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/service"
)

// ============================================================
// Transactions — /v1/transactions
// ============================================================

func listTransactionsHandler(txSvc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		transactions, err := txSvc.List(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if transactions == nil {
			transactions = []domain.Transaction{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
	}
}

func createTransactionHandler(txSvc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var req domain.CreateTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tx, err := txSvc.Create(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("transaction.id", tx.ID))
		writeJSON(w, http.StatusCreated, tx)
	}
}

func deleteTransactionHandler(txSvc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{transactionId}")
		defer span.End()

		transactionID := chi.URLParam(r, "transactionId")
		if transactionID == "" {
			writeError(w, http.StatusBadRequest, "transactionId is required")
			return
		}

		if err := txSvc.Delete(ctx, UserIDFromContext(ctx), transactionID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
