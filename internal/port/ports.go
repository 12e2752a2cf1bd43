// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations, so tests can substitute fakes
// without process-wide state.
package port

import (
	"context"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
)

// TransactionStore is the thin CRUD façade over the hosted document store.
// List order is store-defined; callers requiring chronological order must
// sort explicitly. No operation retries on behalf of the caller beyond the
// store client's own bounded internal backoff.
type TransactionStore interface {
	Create(ctx context.Context, ownerID string, req *domain.CreateTransactionRequest) (*domain.Transaction, error)
	List(ctx context.Context, ownerID string) ([]domain.Transaction, error)
	Delete(ctx context.Context, transactionID string) error
}

// AuthProvider wraps the hosted auth service's session operations.
// CurrentUser returns (nil, nil) when the session is no longer valid.
type AuthProvider interface {
	SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.User, error)
	SignIn(ctx context.Context, req *domain.SignInRequest) (*domain.Session, *domain.User, error)
	SignOut(ctx context.Context, sessionSecret string) error
	CurrentUser(ctx context.Context, sessionSecret string) (*domain.User, error)
	OAuthRedirectURL(provider, successURL, failureURL string) (string, error)
}

// TextGenerator produces free-form text from a prompt via a hosted LLM API.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (*domain.Generation, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
