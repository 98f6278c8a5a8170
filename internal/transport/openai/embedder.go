package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/metrics"
)

var (
	_ domain.Embedder      = (*Embedder)(nil)
	_ domain.HealthChecker = (*Embedder)(nil)
)

// Embedder produces vectors through the /embeddings endpoint.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client:     newClient(cfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     logger,
	}
}

// Embed implements domain.Embedder with one request per text.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	model := string(e.model)
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError("embedding", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrAdapterUnavailable)
	}

	vec := resp.Data[0].Embedding
	if e.dimensions > 0 && len(vec) != e.dimensions {
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, "dimension_mismatch").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("model %s returned %d dimensions, configured %d: %w",
			model, len(vec), e.dimensions, domain.ErrConfiguration)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return parseAPIError("models", err)
	}
	return nil
}
