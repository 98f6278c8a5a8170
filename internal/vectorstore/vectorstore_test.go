package vectorstore

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/pdfrag/internal/domain"
)

func TestSortHits(t *testing.T) {
	hits := []domain.Hit{
		{ID: "b", Score: 0.5},
		{ID: "c", Score: 0.9},
		{ID: "a", Score: 0.5},
	}
	SortHits(hits)
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if hits[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, hits[i].ID, id)
		}
	}
}

func TestValidateRecords(t *testing.T) {
	tests := []struct {
		name    string
		records []domain.Record
		dim     int
		wantDim int
		wantErr error
	}{
		{"infers dim", []domain.Record{{ID: "a", Vector: []float32{1, 2}}}, 0, 2, nil},
		{"matches dim", []domain.Record{{ID: "a", Vector: []float32{1, 2}}}, 2, 2, nil},
		{"empty id", []domain.Record{{Vector: []float32{1}}}, 0, 0, domain.ErrInvalidRequest},
		{"empty vector", []domain.Record{{ID: "a"}}, 0, 0, domain.ErrInvalidRequest},
		{"wrong dim", []domain.Record{{ID: "a", Vector: []float32{1}}}, 2, 0, domain.ErrConfiguration},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dim, err := ValidateRecords(tc.records, tc.dim)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dim != tc.wantDim {
				t.Errorf("got dim %d, want %d", dim, tc.wantDim)
			}
		})
	}
}
