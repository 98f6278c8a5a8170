// Package ingest turns a document into embedded, idempotently stored chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/chunker"
	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/identity"
	"github.com/kailas-cloud/pdfrag/internal/logger"
	"github.com/kailas-cloud/pdfrag/internal/metrics"
	"github.com/kailas-cloud/pdfrag/internal/workflow"
)

// Step names.
const (
	StepLoadAndChunk   = "load-and-chunk"
	StepEmbedAndUpsert = "embed-and-upsert"
)

// DefaultBatchSize is how many chunks one embed-and-upsert batch carries.
const DefaultBatchSize = 64

// Request is a validated ingest-pdf event.
type Request struct {
	RunID    string
	PDFPath  string
	SourceID string
}

// Result is the ingest-pdf output.
type Result struct {
	Ingested int `json:"ingested"`
	Pruned   int `json:"pruned,omitempty"`
}

// chunkSet is the load-and-chunk output.
type chunkSet struct {
	SourceID string         `json:"source_id"`
	Chunks   []domain.Chunk `json:"chunks"`
}

// Service runs the ingestion pipeline.
type Service struct {
	loader     Loader
	splitter   *chunker.Splitter
	embedder   Embedder
	store      Store
	runner     *workflow.Runner
	pruneStale bool
	batchSize  int
}

// New creates an ingestion service.
func New(loader Loader, splitter *chunker.Splitter, embedder Embedder, store Store, runner *workflow.Runner) *Service {
	return &Service{
		loader:    loader,
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		runner:    runner,
		batchSize: DefaultBatchSize,
	}
}

// WithPruneStale enables deleting chunks of a source that a re-ingest no longer produces.
func (s *Service) WithPruneStale(enabled bool) *Service {
	s.pruneStale = enabled
	return s
}

// WithBatchSize sets how many chunks are embedded and stored per batch.
// Each batch is its own memoized step with its own attempt timeout, so a
// redelivered run resumes after the last stored batch. Non-positive n keeps
// DefaultBatchSize.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Ingest loads, chunks, embeds and upserts a document.
func (s *Service) Ingest(ctx context.Context, req Request) (Result, error) {
	sourceID := req.SourceID
	if sourceID == "" {
		sourceID = req.PDFPath
	}

	run := s.runner.Start(ctx, req.RunID)
	ctx = logger.With(ctx, zap.String("source_id", sourceID))

	set, err := workflow.Step(ctx, run, StepLoadAndChunk, func(ctx context.Context) (chunkSet, error) {
		return s.loadAndChunk(ctx, req.PDFPath, sourceID)
	})
	if err != nil {
		return Result{}, err //nolint:wrapcheck // already a StageError
	}

	upserted := 0
	for i, batch := range batches(set.Chunks, s.batchSize) {
		n, err := workflow.Step(ctx, run, batchStep(i), func(ctx context.Context) (int, error) {
			return s.embedAndUpsert(ctx, set.SourceID, batch)
		})
		if err != nil {
			return Result{}, restage(err)
		}
		upserted += n
	}

	res, err := workflow.Step(ctx, run, StepEmbedAndUpsert, func(ctx context.Context) (Result, error) {
		return s.finish(ctx, set, upserted)
	})
	if err != nil {
		return Result{}, err //nolint:wrapcheck // already a StageError
	}
	return res, nil
}

func batchStep(i int) string {
	return fmt.Sprintf("%s#%d", StepEmbedAndUpsert, i)
}

// restage reports a failed batch under the embed-and-upsert stage.
func restage(err error) error {
	var se *domain.StageError
	if errors.As(err, &se) {
		return &domain.StageError{Stage: StepEmbedAndUpsert, Err: se.Err}
	}
	return domain.NewStageError(StepEmbedAndUpsert, err)
}

func batches(chunks []domain.Chunk, size int) [][]domain.Chunk {
	var out [][]domain.Chunk
	for size < len(chunks) {
		chunks, out = chunks[size:], append(out, chunks[:size:size])
	}
	if len(chunks) > 0 {
		out = append(out, chunks)
	}
	return out
}

func (s *Service) loadAndChunk(ctx context.Context, path, sourceID string) (chunkSet, error) {
	doc, err := s.loader.Load(ctx, path)
	if err != nil {
		return chunkSet{}, fmt.Errorf("load %s: %w", path, err)
	}
	return chunkSet{SourceID: sourceID, Chunks: Chunk(s.splitter, sourceID, doc)}, nil
}

// Chunk splits every page separately and numbers the non-empty spans 0..n-1
// across the document. Offsets count runes from the start of the first page.
func Chunk(splitter *chunker.Splitter, sourceID string, doc domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	base := 0
	for _, page := range doc.Pages {
		for _, span := range splitter.Split(page.Text) {
			if strings.TrimSpace(span.Text) == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				SourceID: sourceID,
				Position: len(chunks),
				Page:     page.Number,
				Offset:   base + span.Offset,
				Text:     span.Text,
			})
		}
		base += utf8.RuneCountInString(page.Text)
	}
	return chunks
}

func (s *Service) embedAndUpsert(ctx context.Context, sourceID string, chunks []domain.Chunk) (int, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	emb, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(emb.Embeddings) != len(chunks) {
		return 0, fmt.Errorf(
			"embedder returned %d vectors for %d chunks: %w",
			len(emb.Embeddings), len(chunks), domain.ErrAdapterUnavailable,
		)
	}

	records := make([]domain.Record, len(chunks))
	for i, c := range chunks {
		records[i] = domain.Record{
			ID:      identity.DeriveString(sourceID, c.Position),
			Vector:  emb.Embeddings[i],
			Payload: domain.Payload{Source: sourceID, Text: c.Text},
		}
	}

	n, err := s.store.Upsert(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}
	metrics.ChunksTotal.WithLabelValues("upserted").Add(float64(n))
	logger.FromContext(ctx).Debug("Chunk batch stored",
		zap.Int("first_position", chunks[0].Position), zap.Int("upserted", n))
	return n, nil
}

// finish prunes stale chunks when enabled and reports the totals.
func (s *Service) finish(ctx context.Context, set chunkSet, upserted int) (Result, error) {
	res := Result{Ingested: upserted}
	if s.pruneStale {
		pruned, err := s.prune(ctx, set.SourceID, len(set.Chunks))
		if err != nil {
			return Result{}, err
		}
		res.Pruned = pruned
	}

	logger.FromContext(ctx).Info("Document ingested", zap.Int("ingested", res.Ingested), zap.Int("pruned", res.Pruned))
	return res, nil
}

// prune deletes ids of the source outside positions 0..kept-1.
func (s *Service) prune(ctx context.Context, sourceID string, kept int) (int, error) {
	existing, err := s.store.ScanBySource(ctx, sourceID)
	if err != nil {
		return 0, fmt.Errorf("scan for stale chunks: %w", err)
	}

	current := make(map[string]struct{}, kept)
	for _, id := range identity.DeriveAll(sourceID, kept) {
		current[id] = struct{}{}
	}
	var stale []string
	for _, id := range existing {
		if _, ok := current[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := s.store.Delete(ctx, stale); err != nil {
		return 0, fmt.Errorf("delete stale chunks: %w", err)
	}
	metrics.ChunksTotal.WithLabelValues("pruned").Add(float64(len(stale)))
	return len(stale), nil
}
