package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/kailas-cloud/pdfrag/internal/db"
)

// CreateIndex runs FT.CREATE for def.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if IsRedisErr(err, "already exists") {
			return db.ErrIndexExists
		}
		return wrapErr(db.OpCreateIndex, err)
	}
	return nil
}

// IndexExists probes the index via FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isMissingIndex(err) {
			return false, nil
		}
		return false, wrapErr(db.OpIndexInfo, err)
	}
	return true, nil
}

// SupportsTextSearch is true: the Redis 8 query engine indexes TEXT fields.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return true
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	args := []string{idx.Name, "ON", "HASH"}
	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i])
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}
	return args, nil
}

func buildFieldArgs(f *db.IndexField) ([]string, error) {
	args := []string{f.Name}
	if f.Alias != "" {
		args = append(args, "AS", f.Alias)
	}

	switch f.Type {
	case db.IndexFieldText:
		args = append(args, "TEXT")
	case db.IndexFieldTag:
		args = append(args, "TAG")
		if f.TagCaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
	case db.IndexFieldVector:
		args = append(args, buildVectorArgs(f)...)
	default:
		return nil, errors.New("unknown field type")
	}
	return args, nil
}

func buildVectorArgs(f *db.IndexField) []string {
	algo := f.VectorAlgo
	if algo == "" {
		algo = db.VectorHNSW
	}
	distance := f.VectorDistance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}
	if algo == db.VectorHNSW {
		if f.VectorM > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
		}
		if f.VectorEFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
		}
	}

	out := make([]string, 0, 3+len(attrs))
	out = append(out, "VECTOR", string(algo), strconv.Itoa(len(attrs)))
	return append(out, attrs...)
}
