// Package gemini implements text generation against Google's Gemini REST
// API (generateContent).
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/resilience"
)

var tracer = otel.Tracer("gemini")

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client calls the Gemini generateContent endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient creates a Gemini client for the given model.
func NewClient(httpClient *http.Client, apiKey, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      model,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// WithBaseURL overrides the API host. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Generate sends one prompt and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, prompt string) (*domain.Generation, error) {
	ctx, span := tracer.Start(ctx, "gemini.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", c.model))

	var wire generateResponse

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(generateRequest{
				Contents: []content{{Parts: []part{{Text: prompt}}}},
			})
			if err != nil {
				return resilience.Permanent(err)
			}

			url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return resilience.Permanent(err)
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("gemini API returned status %d", resp.StatusCode)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return resilience.Permanent(err)
				}
				return err
			}
			return json.Unmarshal(respBody, &wire)
		})
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "gemini", Err: err}
	}

	if len(wire.Candidates) == 0 || len(wire.Candidates[0].Content.Parts) == 0 {
		return nil, &domain.ErrMalformedPayload{Service: "gemini", Reason: "response has no candidates"}
	}

	var text string
	for _, p := range wire.Candidates[0].Content.Parts {
		text += p.Text
	}

	c.logger.Debug("gemini generation complete",
		zap.Int("total_tokens", wire.UsageMetadata.TotalTokenCount),
	)
	return &domain.Generation{
		Text: text,
		Tokens: domain.TokenUsage{
			PromptTokens:     wire.UsageMetadata.PromptTokenCount,
			CompletionTokens: wire.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      wire.UsageMetadata.TotalTokenCount,
		},
	}, nil
}
