package domain

// KeyPrefix namespaces every key the service writes.
const KeyPrefix = "pdfrag:"

// Chunk is a bounded span of a document's text.
// Position is 0-based and contiguous within a source.
type Chunk struct {
	SourceID string `json:"source_id"`
	Position int    `json:"position"`
	Page     int    `json:"page"`
	Offset   int    `json:"offset"`
	Text     string `json:"text"`
}

// Payload is the metadata persisted next to each vector.
type Payload struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Record is the unit written to the vector store.
type Record struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Hit is a single similarity search result.
type Hit struct {
	ID      string
	Score   float64
	Payload Payload
}

// SearchOptions narrows a similarity search.
type SearchOptions struct {
	// SourceID restricts hits to one source when non-empty.
	SourceID string
}
