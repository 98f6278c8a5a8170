// Package deletion removes every chunk of a source.
package deletion

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
	StepScanChunks   = "scan-chunks"
	StepDeleteChunks = "delete-chunks"
)

// Request is a validated delete event.
type Request struct {
	RunID    string
	SourceID string
}

// Result is the delete output.
type Result struct {
	DeleteCount int `json:"delete_count"`
}

type idSet struct {
	IDs []string `json:"ids"`
}

// Service runs the deletion pipeline.
type Service struct {
	store  Store
	runner *workflow.Runner
}

// New creates a deletion service.
func New(store Store, runner *workflow.Runner) *Service {
	return &Service{store: store, runner: runner}
}

// Delete removes all chunks of req.SourceID. The id set is computed by the
// scan-chunks step and memoized, so a redelivered run deletes exactly that set.
func (s *Service) Delete(ctx context.Context, req Request) (Result, error) {
	if req.SourceID == "" {
		return Result{}, fmt.Errorf("source_id is required: %w", domain.ErrInvalidRequest)
	}

	run := s.runner.Start(ctx, req.RunID)
	ctx = logger.With(ctx, zap.String("source_id", req.SourceID))

	set, err := workflow.Step(ctx, run, StepScanChunks, func(ctx context.Context) (idSet, error) {
		ids, err := s.store.ScanBySource(ctx, req.SourceID)
		if err != nil {
			return idSet{}, fmt.Errorf("scan chunks: %w", err)
		}
		return idSet{IDs: ids}, nil
	})
	if err != nil {
		return Result{}, err //nolint:wrapcheck // already a StageError
	}

	res, err := workflow.Step(ctx, run, StepDeleteChunks, func(ctx context.Context) (Result, error) {
		if err := s.store.Delete(ctx, set.IDs); err != nil {
			return Result{}, fmt.Errorf("delete chunks: %w", err)
		}
		return Result{DeleteCount: len(set.IDs)}, nil
	})
	if err != nil {
		return Result{}, err //nolint:wrapcheck // already a StageError
	}

	metrics.ChunksTotal.WithLabelValues("deleted").Add(float64(res.DeleteCount))
	logger.FromContext(ctx).Info("Source deleted", zap.Int("delete_count", res.DeleteCount))
	return res, nil
}
