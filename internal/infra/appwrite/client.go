// Package appwrite provides a client for the hosted Appwrite BaaS
// (document database + account sessions). It is the real data backend for
// transactions and the delegated authentication provider.
//
// Every payload crossing this boundary is decoded into a wire struct and
// validated before it becomes a domain value; a shape mismatch surfaces as
// a typed error instead of a silently wrong cast.
package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/resilience"
)

var tracer = otel.Tracer("appwrite")

// Client wraps HTTP calls to the Appwrite REST API.
type Client struct {
	httpClient   *http.Client
	endpoint     string
	projectID    string
	apiKey       string
	databaseID   string
	collectionID string
	cb           *gobreaker.CircuitBreaker
	cfg          resilience.Config
	logger       *zap.Logger
}

// NewClient creates an Appwrite client. apiKey is the server key used for
// document operations; per-user auth calls pass a session secret instead.
func NewClient(httpClient *http.Client, endpoint, projectID, apiKey, databaseID, collectionID string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:   httpClient,
		endpoint:     endpoint,
		projectID:    projectID,
		apiKey:       apiKey,
		databaseID:   databaseID,
		collectionID: collectionID,
		cb:           cb,
		cfg:          cfg,
		logger:       logger,
	}
}

// apiError is Appwrite's error envelope.
type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

// doRequest executes one request against the Appwrite API. sessionSecret is
// optional; when empty the server API key authenticates the call. The raw
// body is returned for 2xx responses; other statuses map to typed domain
// errors.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any, sessionSecret string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	url := fmt.Sprintf("%s%s", c.endpoint, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		c.logger.Error("appwrite: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	req.Header.Set("X-Appwrite-Project", c.projectID)
	req.Header.Set("Content-Type", "application/json")
	if sessionSecret != "" {
		req.Header.Set("X-Appwrite-Session", sessionSecret)
	} else {
		req.Header.Set("X-Appwrite-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("appwrite: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("appwrite: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Debug("appwrite: request OK",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return body, nil
	}

	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}

	c.logger.Warn("appwrite: non-2xx response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("type", apiErr.Type),
	)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, &domain.ErrNotFound{Resource: apiErr.Type, ID: path}
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &domain.ErrUnauthorized{Message: apiErr.Message}
	case http.StatusConflict:
		return nil, &domain.ErrConflict{Message: apiErr.Message}
	case http.StatusBadRequest:
		return nil, &domain.ErrValidation{Field: apiErr.Type, Message: apiErr.Message}
	default:
		return nil, fmt.Errorf("appwrite returned status %d: %s", resp.StatusCode, apiErr.Message)
	}
}

// execute runs fn under the circuit breaker with bounded retries. Typed
// domain errors are permanent: they are returned unchanged and never
// retried. A blown deadline surfaces as ErrTimeout; everything else is
// wrapped as an external-service error.
func (c *Client) execute(ctx context.Context, service string, fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			if err := fn(); err != nil {
				if isPermanent(err) {
					return resilience.Permanent(err)
				}
				return err
			}
			return nil
		})
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: service}
	}
	if isPermanent(err) {
		return err
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

// decodeJSON unmarshals an API response body, reporting a malformed
// payload when the shape does not parse.
func decodeJSON(body []byte, v any, what string) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &domain.ErrMalformedPayload{
			Service: "appwrite",
			Reason:  fmt.Sprintf("%s did not parse: %v", what, err),
		}
	}
	return nil
}

// isPermanent reports whether err is a typed domain error that retrying
// cannot fix.
func isPermanent(err error) bool {
	var (
		notFound     *domain.ErrNotFound
		unauthorized *domain.ErrUnauthorized
		validation   *domain.ErrValidation
		conflict     *domain.ErrConflict
		malformed    *domain.ErrMalformedPayload
	)
	return errors.As(err, &notFound) ||
		errors.As(err, &unauthorized) ||
		errors.As(err, &validation) ||
		errors.As(err, &conflict) ||
		errors.As(err, &malformed)
}
