package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/cache"
	"github.com/kailas-cloud/geogrub/internal/domain"
)

// fakeProvider serves scripted pages in order and records every request.
type fakeProvider struct {
	pages    []domain.NearbyPage
	err      error
	requests []domain.NearbyRequest
	at       []time.Time
	clock    *fakeClock
}

func (f *fakeProvider) NearbySearch(_ context.Context, req domain.NearbyRequest) (domain.NearbyPage, error) {
	f.requests = append(f.requests, req)
	if f.clock != nil {
		f.at = append(f.at, f.clock.now)
	}
	if f.err != nil {
		return domain.NearbyPage{}, f.err
	}
	i := len(f.requests) - 1
	if i >= len(f.pages) {
		return domain.NearbyPage{}, fmt.Errorf("unexpected request %d", i+1)
	}
	return f.pages[i], nil
}

// fakeClock advances on sleep instead of blocking.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func places(ids ...string) []domain.PlaceSummary {
	out := make([]domain.PlaceSummary, len(ids))
	for i, id := range ids {
		out[i] = domain.PlaceSummary{PlaceID: id, Name: "Place " + id}
	}
	return out
}

func newTestService(p *fakeProvider, cfg Config) (*Service, *fakeClock) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	p.clock = clock
	svc := New(p, cache.New(0), cfg, zap.NewNop())
	svc.sleep = clock.sleep
	return svc, clock
}
