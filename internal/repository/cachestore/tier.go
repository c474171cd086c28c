package cachestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/cache"
	"github.com/kailas-cloud/geogrub/internal/db"
)

// store is the consumer interface for the shared cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// JSONTier is a cache.Tier persisted as JSON values in a key-value store.
// Store failures are logged and treated as misses or dropped writes, so a
// flaky cache never fails a search.
type JSONTier[V any] struct {
	store  store
	prefix string
	logger *zap.Logger
}

var _ cache.Tier[string, int] = (*JSONTier[int])(nil)

// New creates a tier whose keys are prefix + sha256(key).
func New[V any](s store, prefix string, logger *zap.Logger) *JSONTier[V] {
	return &JSONTier[V]{store: s, prefix: prefix, logger: logger}
}

// Get decodes the value stored under key.
func (t *JSONTier[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	k := t.storeKey(key)

	data, err := t.store.Get(ctx, k)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			t.logger.Warn("Failed to read shared cache", zap.String("key", k), zap.Error(err))
		}
		return zero, false
	}
	if len(data) == 0 {
		return zero, false
	}

	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		t.logger.Warn("Failed to decode shared cache entry", zap.String("key", k), zap.Error(err))
		return zero, false
	}
	return v, true
}

// Put encodes and stores value under key.
func (t *JSONTier[V]) Put(ctx context.Context, key string, value V) {
	k := t.storeKey(key)

	data, err := json.Marshal(value)
	if err != nil {
		t.logger.Warn("Failed to encode shared cache entry", zap.String("key", k), zap.Error(err))
		return
	}
	if err := t.store.Set(ctx, k, data); err != nil {
		t.logger.Warn("Failed to write shared cache", zap.String("key", k), zap.Error(err))
	}
}

// storeKey hashes the raw key: location queries are free text and may hold
// characters that are awkward in key patterns.
func (t *JSONTier[V]) storeKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return t.prefix + hex.EncodeToString(h[:])
}
