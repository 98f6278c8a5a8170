// Package event validates trigger payloads into typed pipeline requests.
package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kailas-cloud/pdfrag/internal/domain"
)

// Canonical event names.
const (
	NameIngestPDF = "ingest-pdf"
	NameQuery     = "query"
	NameDelete    = "delete"
)

var aliases = map[string]string{
	NameIngestPDF:      NameIngestPDF,
	NameQuery:          NameQuery,
	NameDelete:         NameDelete,
	"rag/ingest_pdf":   NameIngestPDF,
	"rag/query_pdf_ai": NameQuery,
	"rag/delete_pdf":   NameDelete,
}

// Envelope is an event as delivered by a trigger.
type Envelope struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// IngestPDF is a validated ingest-pdf payload. SourceID defaults to PDFPath.
type IngestPDF struct {
	PDFPath  string `json:"pdf_path"`
	SourceID string `json:"source_id"`
}

// Query is a validated query payload.
type Query struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
	SourceID string `json:"source_id"`
}

// Delete is a validated delete payload.
type Delete struct {
	SourceID string `json:"source_id"`
}

// Request is a decoded event. Exactly one payload field is set, matching Name.
type Request struct {
	ID     string
	Name   string
	Ingest *IngestPDF
	Query  *Query
	Delete *Delete
}

// Decoder applies defaults and limits that come from configuration.
type Decoder struct {
	DefaultTopK int
	MaxTopK     int
}

// NewDecoder returns a decoder with the given query limits.
// Zero values fall back to top_k 5 and a cap of 100.
func NewDecoder(defaultTopK, maxTopK int) *Decoder {
	if maxTopK <= 0 || maxTopK > 100 {
		maxTopK = 100
	}
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Decoder{DefaultTopK: min(defaultTopK, maxTopK), MaxTopK: maxTopK}
}

// Canonical resolves an event name or alias. ok is false for unknown names.
func Canonical(name string) (string, bool) {
	c, ok := aliases[name]
	return c, ok
}

// DecodeEnvelope parses and validates a raw event body.
func (d *Decoder) DecodeEnvelope(body []byte) (Request, error) {
	if err := validate(envelope, body); err != nil {
		return Request{}, fmt.Errorf("event: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Request{}, fmt.Errorf("event: %v: %w", err, domain.ErrInvalidRequest)
	}
	return d.Decode(env)
}

// Decode validates env.Data against the schema of env.Name.
func (d *Decoder) Decode(env Envelope) (Request, error) {
	name, ok := Canonical(env.Name)
	if !ok {
		return Request{}, fmt.Errorf("unknown event %q: %w", env.Name, domain.ErrInvalidRequest)
	}
	data := env.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := validate(schemas[name], data); err != nil {
		return Request{}, fmt.Errorf("%s: %w", name, err)
	}

	req := Request{ID: env.ID, Name: name}
	switch name {
	case NameIngestPDF:
		var p IngestPDF
		if err := json.Unmarshal(data, &p); err != nil {
			return Request{}, fmt.Errorf("%s: %v: %w", name, err, domain.ErrInvalidRequest)
		}
		if p.SourceID == "" {
			p.SourceID = p.PDFPath
		}
		req.Ingest = &p
	case NameQuery:
		var p Query
		if err := json.Unmarshal(data, &p); err != nil {
			return Request{}, fmt.Errorf("%s: %v: %w", name, err, domain.ErrInvalidRequest)
		}
		if p.TopK == 0 {
			p.TopK = d.DefaultTopK
		}
		if p.TopK > d.MaxTopK {
			return Request{}, fmt.Errorf("%s: top_k must be at most %d: %w", name, d.MaxTopK, domain.ErrInvalidRequest)
		}
		req.Query = &p
	case NameDelete:
		var p Delete
		if err := json.Unmarshal(data, &p); err != nil {
			return Request{}, fmt.Errorf("%s: %v: %w", name, err, domain.ErrInvalidRequest)
		}
		req.Delete = &p
	}
	return req, nil
}

func validate(schema *gojsonschema.Schema, doc []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("malformed JSON: %v: %w", err, domain.ErrInvalidRequest)
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("%s: %w", strings.Join(details, "; "), domain.ErrInvalidRequest)
}
