package db

import (
	"errors"
	"fmt"
)

// DistanceMetric used by vector fields.
type DistanceMetric string

// Supported metrics.
const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm selects the vector index type.
type VectorAlgorithm string

// Supported algorithms.
const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// IndexFieldType enumerates schema field kinds.
type IndexFieldType int

// Field kinds.
const (
	IndexFieldTag IndexFieldType = iota
	IndexFieldText
	IndexFieldVector
)

// IndexField is one SCHEMA entry of FT.CREATE.
type IndexField struct {
	Name  string
	Alias string
	Type  IndexFieldType

	TagCaseSensitive bool

	VectorAlgo        VectorAlgorithm
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorM           int
	VectorEFConstruct int
}

// IndexDefinition describes a HASH index over keys with the given prefixes.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks that the definition can be sent to FT.CREATE.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		key := f.Name
		if f.Alias != "" {
			key = f.Alias
		}
		if seen[key] {
			return fmt.Errorf("duplicate field name: %s", key)
		}
		seen[key] = true

		if f.Type == IndexFieldVector && f.VectorDim <= 0 {
			return fmt.Errorf("vector field %s requires positive DIM", f.Name)
		}
	}
	return nil
}

// IsValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ':', r == '-':
		default:
			return false
		}
	}
	return true
}
