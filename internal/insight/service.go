package insight

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/observability"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/resilience"
	"github.com/fintrackhq/fintrack-bff-go/internal/port"
)

var tracer = otel.Tracer("insight")

// FallbackSuggestions is served whenever the text-generation service is
// unavailable or its output is unusable.
var FallbackSuggestions = []string{
	"Start by tracking all your expenses to understand your spending patterns",
	"Set up an emergency fund for unexpected expenses",
	"Consider automating your savings to build consistent financial habits",
}

const (
	fallbackChatReply = "I'm having trouble processing your request at the moment. " +
		"Please try again or contact our support team for assistance."
	fallbackCategory = "General"
)

// Requestor generates bounded suggestion lists from a hosted LLM.
// All failures are absorbed: callers always receive usable content and a
// fallback flag, never an error.
type Requestor struct {
	generator      port.TextGenerator
	cache          port.Cache[[]string]
	bulkhead       *resilience.Bulkhead
	metrics        *observability.Metrics
	logger         *zap.Logger
	timeout        time.Duration
	maxSuggestions int

	// Last-request-wins bookkeeping: the newest token per user wins the
	// right to write the cache; superseded completions are discarded.
	mu     sync.Mutex
	latest map[string]uint64
	next   uint64
}

// NewRequestor creates an insight requestor with all dependencies injected.
func NewRequestor(
	generator port.TextGenerator,
	cache port.Cache[[]string],
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
	timeout time.Duration,
	maxSuggestions int,
) *Requestor {
	if maxSuggestions < 1 {
		maxSuggestions = len(FallbackSuggestions)
	}
	return &Requestor{
		generator:      generator,
		cache:          cache,
		bulkhead:       bulkhead,
		metrics:        metrics,
		logger:         logger,
		timeout:        timeout,
		maxSuggestions: maxSuggestions,
		latest:         make(map[string]uint64),
	}
}

// Suggestions returns at most the configured number of suggestion strings
// for the user's transactions, plus whether fallback content was served.
func (r *Requestor) Suggestions(ctx context.Context, userID string, transactions []domain.Transaction) ([]string, bool) {
	ctx, span := tracer.Start(ctx, "Requestor.Suggestions")
	defer span.End()
	span.SetAttributes(attribute.Int("transactions.count", len(transactions)))

	cacheKey := fmt.Sprintf("insights:%s", userID)
	if cached, ok := r.cache.Get(cacheKey); ok {
		r.metrics.IncrCacheHit("insights")
		return cached, false
	}
	r.metrics.IncrCacheMiss("insights")

	token := r.begin(userID)

	prompt := BuildInsightPrompt(transactions, r.maxSuggestions)
	text, ok := r.generate(ctx, "insights", prompt)
	if !ok {
		r.metrics.IncrInsight("fallback")
		return r.fallback(), true
	}

	suggestions := ParseSuggestions(text, r.maxSuggestions)
	if len(suggestions) == 0 {
		r.logger.Warn("insight response parsed to nothing",
			zap.String("user_id", userID),
			zap.Int("raw_len", len(text)),
		)
		r.metrics.IncrInsight("fallback")
		return r.fallback(), true
	}

	r.metrics.IncrInsight("generated")

	if r.isLatest(userID, token) {
		r.cache.Set(cacheKey, suggestions)
	} else {
		// A newer request finished first; this result still answers its own
		// caller but must not overwrite the fresher cached value.
		r.metrics.IncrStaleDiscard()
		r.logger.Debug("discarding superseded insight result",
			zap.String("user_id", userID),
		)
	}

	return suggestions, false
}

// Invalidate drops the cached suggestions for a user. Called after any
// transaction mutation so the next fetch regenerates.
func (r *Requestor) Invalidate(userID string) {
	r.cache.Delete(fmt.Sprintf("insights:%s", userID))
}

// Chat answers a free-form personal-finance question.
func (r *Requestor) Chat(ctx context.Context, message string) (string, bool) {
	ctx, span := tracer.Start(ctx, "Requestor.Chat")
	defer span.End()

	text, ok := r.generate(ctx, "chat", BuildChatPrompt(message))
	if !ok {
		return fallbackChatReply, true
	}
	reply := strings.TrimSpace(text)
	if reply == "" {
		return fallbackChatReply, true
	}
	return reply, false
}

// RecommendCategory suggests a budgeting category for a description.
func (r *Requestor) RecommendCategory(ctx context.Context, description string) string {
	ctx, span := tracer.Start(ctx, "Requestor.RecommendCategory")
	defer span.End()

	text, ok := r.generate(ctx, "category", BuildCategoryPrompt(description))
	if !ok {
		return fallbackCategory
	}

	// Models occasionally wrap the answer in bullets or extra lines; take
	// the first usable one.
	for _, line := range strings.Split(text, "\n") {
		if cleaned := CleanSuggestion(line); cleaned != "" {
			return cleaned
		}
	}
	return fallbackCategory
}

// generate runs one bounded text-generation call. It returns the raw text
// and false on any failure: bulkhead rejection, timeout, transport error or
// empty response. Errors are logged here and never propagate.
func (r *Requestor) generate(ctx context.Context, operation, prompt string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.bulkhead.Acquire(ctx); err != nil {
		r.logger.Warn("text generation rejected by bulkhead",
			zap.String("operation", operation),
			zap.Error(err),
		)
		r.metrics.IncrExternalError("ai")
		return "", false
	}
	defer r.bulkhead.Release()

	start := time.Now()
	gen, err := r.generator.Generate(ctx, prompt)
	r.metrics.RecordRequestDuration("ai_"+operation, time.Since(start))

	if err != nil {
		r.logger.Warn("text generation failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
		r.metrics.IncrExternalError("ai")
		return "", false
	}

	r.metrics.RecordTokens(gen.Tokens.PromptTokens, gen.Tokens.CompletionTokens)
	return gen.Text, true
}

func (r *Requestor) fallback() []string {
	if r.maxSuggestions < len(FallbackSuggestions) {
		return FallbackSuggestions[:r.maxSuggestions]
	}
	return FallbackSuggestions
}

func (r *Requestor) begin(userID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.latest[userID] = r.next
	return r.next
}

func (r *Requestor) isLatest(userID string, token uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest[userID] == token
}
