package deletion

import "context"

// Store is the vector store subset deletion needs.
type Store interface {
	ScanBySource(ctx context.Context, sourceID string) ([]string, error)
	Delete(ctx context.Context, ids []string) error
}
