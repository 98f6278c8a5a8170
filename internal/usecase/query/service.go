// Package query answers questions from retrieved chunks.
package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/logger"
	"github.com/kailas-cloud/pdfrag/internal/metrics"
	"github.com/kailas-cloud/pdfrag/internal/workflow"
)

// Step names.
const (
	StepEmbedAndSearch = "embed-and-search"
	StepLLMAnswer      = "llm-answer"
)

// DefaultTopK is used when a request leaves top_k unset.
const DefaultTopK = 5

// Request is a validated query event.
type Request struct {
	RunID    string
	Question string
	TopK     int
	// SourceID restricts retrieval to one source when non-empty.
	SourceID string
}

// Result is the query output.
type Result struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	NumContext int      `json:"num_context"`
}

// SearchResult is the embed-and-search output.
type SearchResult struct {
	Contexts []string `json:"contexts"`
	Sources  []string `json:"sources"`
}

// GenerationConfig holds answer generation parameters.
type GenerationConfig struct {
	MaxTokens   int
	Temperature float32
}

// Service runs the query pipeline.
type Service struct {
	embedder  Embedder
	searcher  Searcher
	generator Generator
	runner    *workflow.Runner
	gen       GenerationConfig
}

// New creates a query service.
func New(embedder Embedder, searcher Searcher, generator Generator, runner *workflow.Runner, gen GenerationConfig) *Service {
	return &Service{
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
		runner:    runner,
		gen:       gen,
	}
}

// Query retrieves context for the question and asks the generator.
// With no context the generator is not called and the answer is empty.
func (s *Service) Query(ctx context.Context, req Request) (Result, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	run := s.runner.Start(ctx, req.RunID)

	found, err := workflow.Step(ctx, run, StepEmbedAndSearch, func(ctx context.Context) (SearchResult, error) {
		return s.embedAndSearch(ctx, req.Question, topK, req.SourceID)
	})
	if err != nil {
		return Result{}, err //nolint:wrapcheck // already a StageError
	}
	metrics.QueryContexts.Observe(float64(len(found.Contexts)))

	res := Result{Sources: found.Sources, NumContext: len(found.Contexts)}
	if res.Sources == nil {
		res.Sources = []string{}
	}
	if len(found.Contexts) == 0 {
		logger.FromContext(ctx).Info("No context found, skipping generation", zap.String("run_id", run.ID))
		return res, nil
	}

	answer, err := workflow.Step(ctx, run, StepLLMAnswer, func(ctx context.Context) (string, error) {
		return s.answer(ctx, req.Question, found.Contexts)
	})
	if err != nil {
		return Result{}, err //nolint:wrapcheck // already a StageError
	}
	res.Answer = answer
	return res, nil
}

func (s *Service) embedAndSearch(ctx context.Context, question string, topK int, sourceID string) (SearchResult, error) {
	emb, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return SearchResult{}, fmt.Errorf("embed question: %w", err)
	}

	hits, err := s.searcher.Search(ctx, emb.Embedding, topK, domain.SearchOptions{SourceID: sourceID})
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	return Collect(hits), nil
}

// Collect keeps hit texts in result order and lists distinct sources in first-seen order.
func Collect(hits []domain.Hit) SearchResult {
	res := SearchResult{
		Contexts: make([]string, 0, len(hits)),
		Sources:  []string{},
	}
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		res.Contexts = append(res.Contexts, h.Payload.Text)
		if _, ok := seen[h.Payload.Source]; ok {
			continue
		}
		seen[h.Payload.Source] = struct{}{}
		res.Sources = append(res.Sources, h.Payload.Source)
	}
	return res
}

func (s *Service) answer(ctx context.Context, question string, contexts []string) (string, error) {
	answer, err := s.generator.Complete(ctx, domain.CompletionRequest{
		System:      SystemPrompt,
		User:        UserPrompt(question, contexts),
		MaxTokens:   s.gen.MaxTokens,
		Temperature: s.gen.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}
