package cachestore

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/db"
	"github.com/kailas-cloud/geogrub/internal/domain"
)

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func newTestTier(t *testing.T) (*JSONTier[domain.Coordinate], *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	return New[domain.Coordinate](ms, "geogrub:coord:", zap.NewNop()), ms
}
