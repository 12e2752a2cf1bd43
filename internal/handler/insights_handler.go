package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/insight"
	"github.com/fintrackhq/fintrack-bff-go/internal/service"
)

// ============================================================
// Insights & chat — /v1/insights, /v1/chat, /v1/categories/recommend
// ============================================================

func insightsHandler(txSvc *service.TransactionService, insights *insight.Requestor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/insights")
		defer span.End()

		userID := UserIDFromContext(ctx)
		transactions, err := txSvc.List(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		suggestions, fallback := insights.Suggestions(ctx, userID, transactions)
		writeJSON(w, http.StatusOK, domain.InsightsResponse{
			Suggestions: suggestions,
			Fallback:    fallback,
			GeneratedAt: time.Now().Format(time.RFC3339),
		})
	}
}

func chatHandler(insights *insight.Requestor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat")
		defer span.End()

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}

		reply, fallback := insights.Chat(ctx, req.Message)
		writeJSON(w, http.StatusOK, domain.ChatResponse{
			Reply:    reply,
			Fallback: fallback,
		})
	}
}

func categoryHandler(insights *insight.Requestor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/categories/recommend")
		defer span.End()

		var req domain.CategoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Description) == "" {
			writeError(w, http.StatusBadRequest, "description is required")
			return
		}

		writeJSON(w, http.StatusOK, domain.CategoryResponse{
			Category: insights.RecommendCategory(ctx, req.Description),
		})
	}
}
