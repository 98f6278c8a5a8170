package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/pdfrag/internal/db"
	"github.com/kailas-cloud/pdfrag/internal/domain/search/filter"
)

// ScoreField is the distance column FT.SEARCH adds to KNN replies.
const ScoreField = "__vector_score"

const defaultPageSize = 500

// SearchKNN runs a KNN query. An unknown index returns db.ErrIndexNotFound.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	args, err := BuildKNNArgs(q)
	if err != nil {
		return nil, err
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isMissingIndex(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, wrapErr(db.OpSearch, err)
	}
	return ParseKNNResult(raw)
}

// BuildKNNArgs renders FT.SEARCH arguments for q.
func BuildKNNArgs(q *db.KNNQuery) ([]string, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = "vector"
	}
	knn := fmt.Sprintf("[KNN %d @%s $BLOB]", q.K, field)

	query := "*=>" + knn
	if f := BuildFilter(q.Filters); f != "" {
		query = fmt.Sprintf("(%s)=>%s", f, knn)
	}

	args := []string{q.IndexName, query}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	args = append(args,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", VectorToBytes(q.Vector),
		"DIALECT", "2",
	)
	return args, nil
}

// SearchTagKeys pages through FT.SEARCH NOCONTENT until every matching key is read.
func (s *Store) SearchTagKeys(ctx context.Context, q *db.TagQuery) ([]string, error) {
	page := q.PageSize
	if page <= 0 {
		page = defaultPageSize
	}
	query := buildTagFilter(q.Field, q.Value)

	var keys []string
	for offset := 0; ; offset += page {
		cmd := s.b().Arbitrary("FT.SEARCH").Args(
			q.IndexName, query, "NOCONTENT",
			"LIMIT", strconv.Itoa(offset), strconv.Itoa(page),
			"DIALECT", "2",
		).Build()
		raw, err := s.do(ctx, cmd).ToArray()
		if err != nil {
			if isMissingIndex(err) {
				return nil, db.ErrIndexNotFound
			}
			return nil, wrapErr(db.OpSearch, err)
		}

		total, batch, err := parseKeyList(raw)
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if len(batch) == 0 || offset+page >= total {
			return keys, nil
		}
	}
}

// SearchCount returns the number of documents matching query.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, query, "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isMissingIndex(err) {
			return 0, db.ErrIndexNotFound
		}
		return 0, wrapErr(db.OpSearch, err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// ParseKNNResult converts a RESP2 reply [total, key, [field, value...], ...]
// and turns cosine distance into similarity clamped to [0, 1].
func ParseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{Key: key, Fields: parseFieldPairs(fields)}
		if scoreStr, ok := entry.Fields[ScoreField]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				entry.Score = min(1, max(0, 1.0-d))
			}
			delete(entry.Fields, ScoreField)
		}
		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// parseKeyList reads a NOCONTENT reply [total, key1, key2, ...].
func parseKeyList(raw []rueidis.RedisMessage) (int, []string, error) {
	if len(raw) == 0 {
		return 0, nil, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, nil, fmt.Errorf("parse total: %w", err)
	}
	keys := make([]string, 0, len(raw)-1)
	for _, m := range raw[1:] {
		key, err := m.ToString()
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return int(total), keys, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// BuildFilter renders an expression as an FT.SEARCH pre-filter.
func BuildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, len(expr.Must())+len(expr.MustNot()))
	for _, cond := range expr.Must() {
		parts = append(parts, buildTagFilter(cond.Key(), cond.Match()))
	}
	for _, cond := range expr.MustNot() {
		parts = append(parts, "-"+buildTagFilter(cond.Key(), cond.Match()))
	}
	return strings.Join(parts, " ")
}

func buildTagFilter(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, tagEscaper.Replace(value))
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", `\,`,
	".", `\.`,
	"/", `\/`,
	"<", `\<`,
	">", `\>`,
	"{", `\{`,
	"}", `\}`,
	"[", `\[`,
	"]", `\]`,
	`"`, `\"`,
	"'", `\'`,
	":", `\:`,
	";", `\;`,
	"!", `\!`,
	"@", `\@`,
	"#", `\#`,
	"$", `\$`,
	"%", `\%`,
	"^", `\^`,
	"&", `\&`,
	"*", `\*`,
	"(", `\(`,
	")", `\)`,
	"-", `\-`,
	"+", `\+`,
	"=", `\=`,
	"~", `\~`,
	"|", `\|`,
	" ", `\ `,
)

// VectorToBytes encodes v as little-endian FLOAT32, the layout of a vector field.
func VectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
