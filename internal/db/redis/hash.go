package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/pdfrag/internal/db"
)

// HSet sets hash fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if err := s.do(ctx, s.hset(key, fields)).Error(); err != nil {
		return wrapErr(db.OpHSet, err)
	}
	return nil
}

// HSetMulti stores several hashes in one DoMulti round-trip.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make(rueidis.Commands, len(items))
	for i, item := range items {
		cmds[i] = s.hset(item.Key, item.Fields)
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return wrapErr(db.OpHSet, fmt.Errorf("key %s: %w", items[i].Key, err))
		}
	}
	return nil
}

func (s *Store) hset(key string, fields map[string]string) rueidis.Completed {
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	return cmd.Build()
}

// HGetAll returns all fields of a hash; an absent key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, wrapErr(db.OpHGetAll, err)
	}
	return m, nil
}

// HMGetMulti reads one field from each key. Missing keys or fields yield "".
func (s *Store) HMGetMulti(ctx context.Context, keys []string, field string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make(rueidis.Commands, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hmget().Key(key).Field(field).Build()
	}

	out := make([]string, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		arr, err := res.ToArray()
		if err != nil {
			return nil, wrapErr(db.OpHMGet, fmt.Errorf("key %s: %w", keys[i], err))
		}
		if len(arr) == 0 || arr[0].IsNil() {
			continue
		}
		v, err := arr[0].ToString()
		if err != nil {
			return nil, wrapErr(db.OpHMGet, fmt.Errorf("key %s: %w", keys[i], err))
		}
		out[i] = v
	}
	return out, nil
}

// Del removes keys and returns how many existed.
func (s *Store) Del(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.do(ctx, s.b().Del().Key(keys...).Build()).AsInt64()
	if err != nil {
		return 0, wrapErr(db.OpDel, err)
	}
	return int(n), nil
}

// Scan iterates every key matching pattern.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, wrapErr(db.OpScan, err)
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			return keys, nil
		}
	}
}
