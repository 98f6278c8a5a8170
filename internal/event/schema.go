package event

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const ingestSchema = `{
  "type": "object",
  "required": ["pdf_path"],
  "properties": {
    "pdf_path":  {"type": "string", "minLength": 1, "pattern": "\\S"},
    "source_id": {"type": "string", "minLength": 1, "pattern": "\\S"}
  }
}`

const querySchema = `{
  "type": "object",
  "required": ["question"],
  "properties": {
    "question":  {"type": "string", "minLength": 1, "pattern": "\\S"},
    "top_k":     {"type": "integer", "minimum": 1, "maximum": 100},
    "source_id": {"type": "string", "minLength": 1, "pattern": "\\S"}
  }
}`

const deleteSchema = `{
  "type": "object",
  "required": ["source_id"],
  "properties": {
    "source_id": {"type": "string", "minLength": 1, "pattern": "\\S"}
  }
}`

const envelopeSchema = `{
  "type": "object",
  "required": ["name", "data"],
  "properties": {
    "id":   {"type": "string"},
    "name": {"type": "string", "minLength": 1},
    "data": {"type": "object"}
  }
}`

var schemas = map[string]*gojsonschema.Schema{
	NameIngestPDF: mustSchema(ingestSchema),
	NameQuery:     mustSchema(querySchema),
	NameDelete:    mustSchema(deleteSchema),
}

var envelope = mustSchema(envelopeSchema)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("event: invalid schema: %v", err))
	}
	return s
}
