// Package openai implements text generation through the OpenAI chat
// completion API. It is the alternate AI backend, selected by
// configuration.
package openai

import (
	"context"
	"errors"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/resilience"
)

var tracer = otel.Tracer("openai")

// Client adapts the OpenAI SDK to the text-generator port.
type Client struct {
	api    *goopenai.Client
	model  string
	cb     *gobreaker.CircuitBreaker
	cfg    resilience.Config
	logger *zap.Logger
}

// NewClient creates an OpenAI-backed text generator.
func NewClient(apiKey, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		api:    goopenai.NewClient(apiKey),
		model:  model,
		cb:     cb,
		cfg:    cfg,
		logger: logger,
	}
}

// Generate sends one prompt as a single user message.
func (c *Client) Generate(ctx context.Context, prompt string) (*domain.Generation, error) {
	ctx, span := tracer.Start(ctx, "openai.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("openai.model", c.model))

	var resp goopenai.ChatCompletionResponse

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			var innerErr error
			resp, innerErr = c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
				Model: c.model,
				Messages: []goopenai.ChatCompletionMessage{
					{Role: goopenai.ChatMessageRoleUser, Content: prompt},
				},
			})
			if innerErr != nil {
				var apiErr *goopenai.APIError
				if errors.As(innerErr, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != 429 {
					return resilience.Permanent(innerErr)
				}
				return innerErr
			}
			return nil
		})
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "openai", Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &domain.ErrMalformedPayload{Service: "openai", Reason: "response has no choices"}
	}

	c.logger.Debug("openai generation complete",
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return &domain.Generation{
		Text: resp.Choices[0].Message.Content,
		Tokens: domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
