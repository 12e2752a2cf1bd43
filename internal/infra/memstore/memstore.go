// Package memstore is an in-memory implementation of the transaction store
// and auth provider ports. It backs local development and integration
// tests so the service runs without hosted credentials.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
)

const sessionTTL = 24 * time.Hour

type account struct {
	user         domain.User
	passwordHash []byte
}

// Store holds users, sessions and transactions behind a single mutex.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*account // keyed by lowercase email
	sessions     map[string]domain.Session
	transactions map[string]domain.Transaction
	now          func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:     make(map[string]*account),
		sessions:     make(map[string]domain.Session),
		transactions: make(map[string]domain.Transaction),
		now:          time.Now,
	}
}

// ----- TransactionStore -----

// Create validates and stores a new transaction.
func (s *Store) Create(_ context.Context, ownerID string, req *domain.CreateTransactionRequest) (*domain.Transaction, error) {
	if err := validateCreate(ownerID, req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := domain.Transaction{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Kind:        req.Kind,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		CreatedAt:   s.now().UTC(),
	}
	s.transactions[tx.ID] = tx
	return &tx, nil
}

// List returns the owner's transactions, newest first.
func (s *Store) List(_ context.Context, ownerID string) ([]domain.Transaction, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, &domain.ErrValidation{Field: "owner_id", Message: "must not be empty"}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.OwnerID == ownerID {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes a transaction by id.
func (s *Store) Delete(_ context.Context, transactionID string) error {
	if strings.TrimSpace(transactionID) == "" {
		return &domain.ErrValidation{Field: "transaction_id", Message: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[transactionID]; !ok {
		return &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	delete(s.transactions, transactionID)
	return nil
}

// ----- AuthProvider -----

// SignUp registers a user, storing only a bcrypt hash of the password.
func (s *Store) SignUp(_ context.Context, req *domain.SignUpRequest) (*domain.User, error) {
	if err := validateSignUp(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(req.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[key]; exists {
		return nil, &domain.ErrConflict{Message: "a user with this email already exists"}
	}

	user := domain.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: s.now().UTC(),
	}
	s.accounts[key] = &account{user: user, passwordHash: hash}
	return &user, nil
}

// SignIn verifies credentials and mints a session.
func (s *Store) SignIn(_ context.Context, req *domain.SignInRequest) (*domain.Session, *domain.User, error) {
	if err := validateSignIn(req); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[strings.ToLower(req.Email)]
	if !ok {
		return nil, nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)); err != nil {
		return nil, nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    acct.user.ID,
		Secret:    uuid.NewString(),
		ExpiresAt: s.now().Add(sessionTTL),
	}
	s.sessions[session.Secret] = session

	user := acct.user
	return &session, &user, nil
}

// CurrentUser resolves a session secret. Unknown or expired sessions
// yield (nil, nil).
func (s *Store) CurrentUser(_ context.Context, sessionSecret string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionSecret]
	if !ok || s.now().After(session.ExpiresAt) {
		return nil, nil
	}
	for _, acct := range s.accounts {
		if acct.user.ID == session.UserID {
			user := acct.user
			return &user, nil
		}
	}
	return nil, nil
}

// SignOut drops the session. Unknown secrets are already signed out.
func (s *Store) SignOut(_ context.Context, sessionSecret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionSecret)
	return nil
}

// OAuthRedirectURL is not available without a hosted provider.
func (s *Store) OAuthRedirectURL(provider, _, _ string) (string, error) {
	return "", &domain.ErrValidation{Field: "provider", Message: "oauth is not available in memory mode"}
}

// ----- validation -----

func validateCreate(ownerID string, req *domain.CreateTransactionRequest) error {
	if strings.TrimSpace(ownerID) == "" {
		return &domain.ErrValidation{Field: "owner_id", Message: "must not be empty"}
	}
	if req == nil {
		return &domain.ErrValidation{Field: "body", Message: "must not be empty"}
	}
	if req.Kind != domain.KindIncome && req.Kind != domain.KindExpense {
		return &domain.ErrValidation{Field: "kind", Message: "must be income or expense"}
	}
	if req.Amount <= 0 {
		return &domain.ErrValidation{Field: "amount", Message: "must be greater than zero"}
	}
	if strings.TrimSpace(req.Description) == "" {
		return &domain.ErrValidation{Field: "description", Message: "must not be empty"}
	}
	return nil
}

func validateSignUp(req *domain.SignUpRequest) error {
	if req == nil {
		return &domain.ErrValidation{Field: "body", Message: "must not be empty"}
	}
	if !strings.Contains(req.Email, "@") {
		return &domain.ErrValidation{Field: "email", Message: "must be a valid email address"}
	}
	if len(req.Password) < 8 {
		return &domain.ErrValidation{Field: "password", Message: "must be at least 8 characters"}
	}
	return nil
}

func validateSignIn(req *domain.SignInRequest) error {
	if req == nil {
		return &domain.ErrValidation{Field: "body", Message: "must not be empty"}
	}
	if req.Email == "" || req.Password == "" {
		return &domain.ErrValidation{Field: "credentials", Message: "email and password are required"}
	}
	return nil
}
