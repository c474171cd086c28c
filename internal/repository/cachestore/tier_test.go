package cachestore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/cache"
	"github.com/kailas-cloud/geogrub/internal/db"
	"github.com/kailas-cloud/geogrub/internal/db/valkey"
	"github.com/kailas-cloud/geogrub/internal/domain"
)

func TestGet_Miss(t *testing.T) {
	tier, ms := newTestTier(t)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	if _, ok := tier.Get(context.Background(), "90210"); ok {
		t.Fatal("expected miss")
	}
}

func TestGet_StoreErrorIsMiss(t *testing.T) {
	tier, ms := newTestTier(t)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("connection refused")
	}

	if _, ok := tier.Get(context.Background(), "90210"); ok {
		t.Fatal("expected store error to degrade to a miss")
	}
}

func TestGet_CorruptEntryIsMiss(t *testing.T) {
	tier, ms := newTestTier(t)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte("{not json"), nil
	}

	if _, ok := tier.Get(context.Background(), "90210"); ok {
		t.Fatal("expected corrupt entry to degrade to a miss")
	}
}

func TestPutThenGet(t *testing.T) {
	tier, ms := newTestTier(t)
	stored := map[string][]byte{}
	ms.setFn = func(_ context.Context, key string, value []byte) error {
		stored[key] = value
		return nil
	}
	ms.getFn = func(_ context.Context, key string) ([]byte, error) {
		v, ok := stored[key]
		if !ok {
			return nil, db.ErrKeyNotFound
		}
		return v, nil
	}

	ctx := context.Background()
	tier.Put(ctx, "Beverly Hills", domain.Coordinate{Lat: 34.07, Lng: -118.4})

	if len(stored) != 1 {
		t.Fatalf("expected 1 stored key, got %d", len(stored))
	}
	for k := range stored {
		if !strings.HasPrefix(k, "geogrub:coord:") || strings.Contains(k, " ") {
			t.Errorf("unexpected store key %q", k)
		}
	}

	c, ok := tier.Get(ctx, "Beverly Hills")
	if !ok || c.Lat != 34.07 || c.Lng != -118.4 {
		t.Fatalf("unexpected round trip: %+v, %v", c, ok)
	}
}

func TestPut_StoreErrorIsSwallowed(t *testing.T) {
	tier, ms := newTestTier(t)
	ms.setFn = func(_ context.Context, _ string, _ []byte) error {
		return errors.New("readonly replica")
	}
	tier.Put(context.Background(), "q", domain.Coordinate{}) // must not panic
}

func TestResultTier_WithValkeyStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	store := valkey.NewStoreForTest(c)

	tier := New[[]domain.PlaceSummary](store, "geogrub:results:", zap.NewNop())

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return len(cmd) == 3 && cmd[0] == "SET" &&
				strings.HasPrefix(cmd[1], "geogrub:results:") &&
				strings.Contains(cmd[2], `"place_id":"p1"`)
		})).
		Return(mock.Result(mock.RedisString("OK")))

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return len(cmd) == 2 && cmd[0] == "GET" && strings.HasPrefix(cmd[1], "geogrub:results:")
		})).
		Return(mock.Result(mock.RedisBlobString(`[{"place_id":"p1","name":"Spago","vicinity":"Canon Dr"}]`)))

	ctx := context.Background()
	tier.Put(ctx, "90210", []domain.PlaceSummary{{PlaceID: "p1", Name: "Spago", Vicinity: "Canon Dr"}})

	layer := cache.New(0, cache.WithResultTier(tier))
	got, ok := layer.ResultsOf(ctx, "90210")
	if !ok || len(got) != 1 || got[0].Name != "Spago" {
		t.Fatalf("unexpected results from valkey tier: %+v, %v", got, ok)
	}
}
