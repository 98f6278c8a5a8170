package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/metrics"
)

var _ domain.Generator = (*Generator)(nil)

// Generator answers prompts through the /chat/completions endpoint.
type Generator struct {
	client *openai.Client
	model  string
	user   string
	logger *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat completion client.
func NewGenerator(cfg *Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client: newClient(cfg),
		model:  cfg.Model,
		user:   cfg.User,
		logger: logger,
	}
}

// Complete sends a system and a user message and returns the first choice, trimmed.
func (g *Generator) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		User:        g.user,
	})
	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", parseAPIError("completion", err)
	}
	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", fmt.Errorf("completion returned no choices: %w", domain.ErrAdapterUnavailable)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())
	metrics.CompletionTokensTotal.WithLabelValues(g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.CompletionTokensTotal.WithLabelValues(g.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	g.logger.Debug("completion done",
		zap.String("model", g.model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", duration),
	)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return parseAPIError("models", err)
	}
	return nil
}
