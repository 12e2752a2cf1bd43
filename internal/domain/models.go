// Package domain defines the core business entities for the finance tracker.
// These models are independent of external services and represent the
// canonical data structures used throughout the BFF.
package domain

import "time"

// ============================================================
// Transactions
// ============================================================

// Transaction kinds. Amounts are always positive magnitudes; direction is
// derived solely from Kind.
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// Transaction represents a single income or expense record, persisted in the
// hosted document store and owned by a user.
type Transaction struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Kind        string    `json:"kind"` // income, expense
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateTransactionRequest is the payload to record a new transaction.
type CreateTransactionRequest struct {
	Kind        string  `json:"kind"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
}

// ============================================================
// Auth / Users
// ============================================================

// User represents an authenticated user as reported by the hosted auth
// service.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is an authenticated session created by the hosted auth service.
// Secret is the opaque token the store accepts for user-scoped calls.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Secret    string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignUpRequest is the payload for POST /v1/auth/signup.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// SignInRequest is the payload for POST /v1/auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup/signin: the BFF access token plus the
// authenticated user.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}

// ============================================================
// Insights & Chat
// ============================================================

// InsightsResponse carries the bounded suggestion list for a user.
type InsightsResponse struct {
	Suggestions []string `json:"suggestions"`
	Fallback    bool     `json:"fallback"`
	GeneratedAt string   `json:"generated_at"`
}

// ChatRequest is the payload for POST /v1/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the assistant's reply to a chat message.
type ChatResponse struct {
	Reply    string `json:"reply"`
	Fallback bool   `json:"fallback"`
}

// CategoryRequest is the payload for POST /v1/categories/recommend.
type CategoryRequest struct {
	Description string `json:"description"`
}

// CategoryResponse carries a single recommended category.
type CategoryResponse struct {
	Category string `json:"category"`
}

// TokenUsage reports LLM token consumption for a generation call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Generation is the raw result of a text-generation call.
type Generation struct {
	Text   string
	Tokens TokenUsage
}

// InsightMetrics is the snapshot returned by GET /v1/metrics/insights.
type InsightMetrics struct {
	TotalRequests       int64   `json:"total_requests"`
	FallbackRate        float64 `json:"fallback_rate"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
	AvgTokensPerRequest float64 `json:"avg_tokens_per_request"`
	Period              string  `json:"period"`
}

// ============================================================
// Health
// ============================================================

// ServiceHealth describes one dependency's health.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latency_ms"`
	LastChecked string `json:"last_checked"`
}

// HealthStatus is the aggregate health report.
type HealthStatus struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
}
