package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/cache"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/observability"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/resilience"
	"github.com/fintrackhq/fintrack-bff-go/internal/insight"
	"github.com/fintrackhq/fintrack-bff-go/internal/service"
)

// --- Mocks ---

type mockStore struct {
	mu           sync.Mutex
	transactions []domain.Transaction
	createErr    error
	listErr      error
	deleteErr    error
	deleted      []string
	listCalls    int
}

func (m *mockStore) Create(_ context.Context, ownerID string, req *domain.CreateTransactionRequest) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	tx := domain.Transaction{
		ID:          "tx-new",
		OwnerID:     ownerID,
		Kind:        req.Kind,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		CreatedAt:   time.Now(),
	}
	m.transactions = append(m.transactions, tx)
	return &tx, nil
}

func (m *mockStore) List(_ context.Context, _ string) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.transactions, nil
}

func (m *mockStore) Delete(_ context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, transactionID)
	return nil
}

type stubGenerator struct {
	text string
	err  error
}

func (g *stubGenerator) Generate(context.Context, string) (*domain.Generation, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &domain.Generation{Text: g.text}, nil
}

func newInsights(t *testing.T, gen *stubGenerator) (*insight.Requestor, *cache.InMemory[[]string]) {
	t.Helper()
	c := cache.New[[]string](time.Minute)
	t.Cleanup(c.Close)
	r := insight.NewRequestor(
		gen, c, resilience.NewBulkhead(4), observability.NewMetrics(),
		zap.NewNop(), time.Second, 3,
	)
	return r, c
}

// --- Tests ---

func TestTransactionCreate_InvalidatesInsights(t *testing.T) {
	store := &mockStore{}
	insights, c := newInsights(t, &stubGenerator{text: "- old tip"})
	svc := service.NewTransactionService(store, insights, zap.NewNop())

	// Prime the insight cache for the user.
	insights.Suggestions(context.Background(), "user-1", nil)
	if _, ok := c.Get("insights:user-1"); !ok {
		t.Fatal("expected primed insight cache")
	}

	_, err := svc.Create(context.Background(), "user-1", &domain.CreateTransactionRequest{
		Kind: domain.KindExpense, Amount: 12, Description: "lunch",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := c.Get("insights:user-1"); ok {
		t.Error("expected insight cache invalidated after create")
	}
}

func TestTransactionCreate_StoreErrorPropagates(t *testing.T) {
	wantErr := &domain.ErrValidation{Field: "amount", Message: "must be greater than zero"}
	store := &mockStore{createErr: wantErr}
	insights, _ := newInsights(t, &stubGenerator{text: "- tip"})
	svc := service.NewTransactionService(store, insights, zap.NewNop())

	_, err := svc.Create(context.Background(), "user-1", &domain.CreateTransactionRequest{})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error through the service, got %v", err)
	}
}

func TestTransactionDelete_InvalidatesInsights(t *testing.T) {
	store := &mockStore{}
	insights, c := newInsights(t, &stubGenerator{text: "- tip"})
	svc := service.NewTransactionService(store, insights, zap.NewNop())

	insights.Suggestions(context.Background(), "user-1", nil)

	if err := svc.Delete(context.Background(), "user-1", "tx-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "tx-1" {
		t.Errorf("expected delete forwarded to store, got %v", store.deleted)
	}
	if _, ok := c.Get("insights:user-1"); ok {
		t.Error("expected insight cache invalidated after delete")
	}
}

func TestTransactionDelete_NotFoundPropagates(t *testing.T) {
	store := &mockStore{deleteErr: &domain.ErrNotFound{Resource: "transaction", ID: "gone"}}
	insights, _ := newInsights(t, &stubGenerator{text: "- tip"})
	svc := service.NewTransactionService(store, insights, zap.NewNop())

	err := svc.Delete(context.Background(), "user-1", "gone")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestTransactionList(t *testing.T) {
	store := &mockStore{transactions: []domain.Transaction{
		{ID: "tx-1", Kind: domain.KindIncome, Amount: 100},
	}}
	insights, _ := newInsights(t, &stubGenerator{text: "- tip"})
	svc := service.NewTransactionService(store, insights, zap.NewNop())

	txs, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "tx-1" {
		t.Errorf("unexpected transactions: %+v", txs)
	}
}
