// Package embedding holds the outermost embedder decorator used by the pipelines.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/logger"
)

// InstrumentedEmbedder wraps an Embedder with logging and batch embedding.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, log *zap.Logger) *InstrumentedEmbedder {
	if log == nil {
		log = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   log,
	}
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)

	if err != nil {
		p.log(ctx).Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.log(ctx).Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// BatchEmbed embeds texts one request at a time and keeps input order.
// All vectors share one dimension or the call fails.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	res, err := domain.BatchFallback(ctx, p, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}

	p.log(ctx).Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// HealthCheck delegates to the wrapped embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through
	}
	return nil
}

// log prefers the request-scoped logger so run ids show up on embedding lines.
func (p *InstrumentedEmbedder) log(ctx context.Context) *zap.Logger {
	if l := logger.FromContext(ctx); l.Core().Enabled(zap.ErrorLevel) {
		return l
	}
	return p.logger
}
