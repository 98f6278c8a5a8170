package redisearch

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/pdfrag/internal/db"
	"github.com/kailas-cloud/pdfrag/internal/db/redis"
	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/vectorstore"
)

// collectionMeta is the hash stored under metaKey.
type collectionMeta struct {
	Name      string
	Dim       int
	Distance  string
	CreatedAt int64
}

func metaToHash(m collectionMeta) map[string]string {
	return map[string]string{
		"name":       m.Name,
		"dim":        strconv.Itoa(m.Dim),
		"distance":   m.Distance,
		"created_at": strconv.FormatInt(m.CreatedAt, 10),
	}
}

func metaFromHash(m map[string]string) (collectionMeta, error) {
	dim, err := strconv.Atoi(m["dim"])
	if err != nil {
		return collectionMeta{}, fmt.Errorf("invalid dim %q: %w", m["dim"], err)
	}
	createdAt, _ := strconv.ParseInt(m["created_at"], 10, 64)
	return collectionMeta{
		Name:      m["name"],
		Dim:       dim,
		Distance:  m["distance"],
		CreatedAt: createdAt,
	}, nil
}

func newMeta(name string, dim int) collectionMeta {
	return collectionMeta{
		Name:      name,
		Dim:       dim,
		Distance:  string(db.DistanceCosine),
		CreatedAt: time.Now().UnixMilli(),
	}
}

// recordToHash lays a record out as a full set of hash fields, so HSET
// replaces every field of a previous version.
func recordToHash(r domain.Record) map[string]string {
	return map[string]string{
		vectorstore.SourceField: r.Payload.Source,
		vectorstore.TextField:   r.Payload.Text,
		vectorField:             redis.VectorToBytes(r.Vector),
	}
}

func hitFromEntry(prefix string, e db.SearchEntry) domain.Hit {
	return domain.Hit{
		ID:    strings.TrimPrefix(e.Key, prefix),
		Score: e.Score,
		Payload: domain.Payload{
			Source: e.Fields[vectorstore.SourceField],
			Text:   e.Fields[vectorstore.TextField],
		},
	}
}
