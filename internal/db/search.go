package db

import "github.com/kailas-cloud/pdfrag/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // query alias of the vector field, "vector" when empty
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// TagQuery lists every key of an index whose TAG field equals Value.
type TagQuery struct {
	IndexName string
	Prefix    string // key prefix of the index, used by engines that list via SCAN
	Field     string
	Value     string
	PageSize  int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Score is a similarity in [0, 1] for cosine indexes.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
