package appwrite

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
)

// transactionDocument is the wire shape of a transaction row. Appwrite
// returns system fields prefixed with '$' alongside the collection
// attributes.
type transactionDocument struct {
	ID          string  `json:"$id"`
	CreatedAt   string  `json:"$createdAt"`
	OwnerID     string  `json:"owner_id"`
	Kind        string  `json:"kind"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

type documentList struct {
	Total     int                   `json:"total"`
	Documents []transactionDocument `json:"documents"`
}

func (c *Client) documentsPath() string {
	return fmt.Sprintf("/databases/%s/collections/%s/documents", c.databaseID, c.collectionID)
}

// Create validates the request and persists a new transaction document.
// Validation failures return before any network traffic.
func (c *Client) Create(ctx context.Context, ownerID string, req *domain.CreateTransactionRequest) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "appwrite.CreateTransaction")
	defer span.End()

	if err := validateCreate(ownerID, req); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"documentId": "unique()",
		"data": map[string]any{
			"owner_id":    ownerID,
			"kind":        req.Kind,
			"amount":      req.Amount,
			"description": strings.TrimSpace(req.Description),
			"category":    strings.TrimSpace(req.Category),
		},
	}

	var doc transactionDocument
	err := c.execute(ctx, "appwrite", func() error {
		body, err := c.doRequest(ctx, http.MethodPost, c.documentsPath(), payload, "")
		if err != nil {
			return err
		}
		return decodeJSON(body, &doc, "transaction document")
	})
	if err != nil {
		return nil, err
	}

	tx, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("transaction.id", tx.ID))
	c.logger.Info("transaction created",
		zap.String("transaction_id", tx.ID),
		zap.String("kind", tx.Kind),
	)
	return tx, nil
}

// List returns all of a user's transactions, newest first.
func (c *Client) List(ctx context.Context, ownerID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "appwrite.ListTransactions")
	defer span.End()

	if strings.TrimSpace(ownerID) == "" {
		return nil, &domain.ErrValidation{Field: "owner_id", Message: "must not be empty"}
	}

	query := url.Values{}
	query.Add("queries[]", fmt.Sprintf(`equal("owner_id", ["%s"])`, ownerID))
	query.Add("queries[]", `orderDesc("$createdAt")`)
	path := c.documentsPath() + "?" + query.Encode()

	var list documentList
	err := c.execute(ctx, "appwrite", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
		if err != nil {
			return err
		}
		return decodeJSON(body, &list, "transaction list")
	})
	if err != nil {
		return nil, err
	}

	transactions := make([]domain.Transaction, 0, len(list.Documents))
	for _, doc := range list.Documents {
		tx, err := doc.toDomain()
		if err != nil {
			// One malformed row fails the whole read. Serving a silently
			// incomplete ledger would corrupt every aggregate built on it.
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	span.SetAttributes(attribute.Int("transactions.count", len(transactions)))
	return transactions, nil
}

// Delete removes a transaction by id. Deleting an id that does not exist
// returns a not-found error the caller can choose to ignore.
func (c *Client) Delete(ctx context.Context, transactionID string) error {
	ctx, span := tracer.Start(ctx, "appwrite.DeleteTransaction")
	defer span.End()

	if strings.TrimSpace(transactionID) == "" {
		return &domain.ErrValidation{Field: "transaction_id", Message: "must not be empty"}
	}

	path := fmt.Sprintf("%s/%s", c.documentsPath(), transactionID)
	err := c.execute(ctx, "appwrite", func() error {
		_, err := c.doRequest(ctx, http.MethodDelete, path, nil, "")
		return err
	})
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
		}
		return err
	}

	c.logger.Info("transaction deleted", zap.String("transaction_id", transactionID))
	return nil
}

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
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return &domain.ErrValidation{Field: "amount", Message: "must be a finite number"}
	}
	if req.Amount <= 0 {
		return &domain.ErrValidation{Field: "amount", Message: "must be greater than zero"}
	}
	if strings.TrimSpace(req.Description) == "" {
		return &domain.ErrValidation{Field: "description", Message: "must not be empty"}
	}
	return nil
}

// toDomain converts a wire document into a domain transaction, rejecting
// rows that do not hold together as a transaction.
func (d transactionDocument) toDomain() (*domain.Transaction, error) {
	if d.ID == "" {
		return nil, &domain.ErrMalformedPayload{Service: "appwrite", Reason: "document missing $id"}
	}
	if d.OwnerID == "" {
		return nil, &domain.ErrMalformedPayload{Service: "appwrite", Reason: "document missing owner_id"}
	}
	if math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) || d.Amount < 0 {
		return nil, &domain.ErrMalformedPayload{Service: "appwrite", Reason: "document amount out of range"}
	}
	createdAt, err := time.Parse(time.RFC3339, d.CreatedAt)
	if err != nil {
		return nil, &domain.ErrMalformedPayload{Service: "appwrite", Reason: "document $createdAt not RFC3339"}
	}
	return &domain.Transaction{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Kind:        d.Kind,
		Amount:      d.Amount,
		Description: d.Description,
		Category:    d.Category,
		CreatedAt:   createdAt,
	}, nil
}
