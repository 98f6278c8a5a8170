package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.calls = append(s.calls, text)
	if s.err != nil {
		return EmbeddingResult{}, s.err
	}
	return EmbeddingResult{Embedding: s.vectors[text], PromptTokens: 2, TotalTokens: 3}, nil
}

func TestBatchFallback_KeepsOrder(t *testing.T) {
	inner := &stubEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
	}}

	res, err := BatchFallback(context.Background(), inner, []string{"b", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
	if res.Embeddings[0][1] != 1 || res.Embeddings[1][0] != 1 {
		t.Errorf("order not preserved: %v", res.Embeddings)
	}
	if res.TotalTokens != 6 || res.PromptTokens != 4 {
		t.Errorf("unexpected usage: prompt=%d total=%d", res.PromptTokens, res.TotalTokens)
	}
	if len(inner.calls) != 2 {
		t.Errorf("expected one call per text, got %d", len(inner.calls))
	}
}

func TestBatchFallback_ErrorPropagation(t *testing.T) {
	inner := &stubEmbedder{err: ErrAdapterUnavailable}

	_, err := BatchFallback(context.Background(), inner, []string{"a"})
	if !errors.Is(err, ErrAdapterUnavailable) {
		t.Fatalf("expected ErrAdapterUnavailable, got %v", err)
	}
}

func TestBatchFallback_DimensionDrift(t *testing.T) {
	inner := &stubEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {1, 0, 0},
	}}

	_, err := BatchFallback(context.Background(), inner, []string{"a", "b"})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestBatchFallback_EmptyVector(t *testing.T) {
	inner := &stubEmbedder{vectors: map[string][]float32{}}

	_, err := BatchFallback(context.Background(), inner, []string{"missing"})
	if !errors.Is(err, ErrAdapterUnavailable) {
		t.Fatalf("expected ErrAdapterUnavailable, got %v", err)
	}
}

func TestStageError(t *testing.T) {
	err := NewStageError("embed-and-upsert", ErrStoreUnavailable)

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StageError, got %T", err)
	}
	if se.Stage != "embed-and-upsert" {
		t.Errorf("unexpected stage %q", se.Stage)
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Error("expected StageError to unwrap to its cause")
	}
	if NewStageError("x", nil) != nil {
		t.Error("nil error must stay nil")
	}
	if again := NewStageError("embed-and-upsert", err); again != err {
		t.Error("same-stage rewrap should be a no-op")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrStoreUnavailable, true},
		{NewStageError("s", ErrAdapterUnavailable), true},
		{ErrConfiguration, false},
		{errors.New("boom"), false},
	}
	for _, tc := range tests {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
