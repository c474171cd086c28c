package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/cache"
	"github.com/kailas-cloud/geogrub/internal/domain"
	"github.com/kailas-cloud/geogrub/internal/metrics"
	"github.com/kailas-cloud/geogrub/internal/usecase/location"
	"github.com/kailas-cloud/geogrub/internal/usecase/search"
)

// --- Fakes ---

type fakeGeocoder struct {
	mu      sync.Mutex
	queries []string
	coord   domain.Coordinate
}

func (f *fakeGeocoder) Geocode(_ context.Context, q string) (domain.Coordinate, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.coord, true, nil
}

type fakeNearby struct {
	mu    sync.Mutex
	calls int
	page  domain.NearbyPage
}

func (f *fakeNearby) NearbySearch(_ context.Context, _ domain.NearbyRequest) (domain.NearbyPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.page, nil
}

// blockingSearcher waits for release or cancellation per query.
type blockingSearcher struct {
	release map[string]chan struct{}
	started chan string
}

func (b *blockingSearcher) Search(
	ctx context.Context, query string, _ domain.Coordinate, _ domain.SearchOptions,
) ([]domain.PlaceSummary, error) {
	b.started <- query
	select {
	case <-b.release[query]:
		return []domain.PlaceSummary{{PlaceID: query}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type staticResolver struct{ err error }

func (r staticResolver) Resolve(_ context.Context, _ string) (domain.Coordinate, error) {
	return domain.Coordinate{Lat: 1, Lng: 2}, r.err
}

type recordingSearcher struct {
	called bool
	opts   domain.SearchOptions
}

func (r *recordingSearcher) Search(
	_ context.Context, _ string, _ domain.Coordinate, opts domain.SearchOptions,
) ([]domain.PlaceSummary, error) {
	r.called = true
	r.opts = opts
	return nil, nil
}

// --- Tests ---

func TestSearch_EndToEnd90210(t *testing.T) {
	layer := cache.New(0)
	geo := &fakeGeocoder{coord: domain.Coordinate{Lat: 34.0901, Lng: -118.4065}}
	nearby := &fakeNearby{page: domain.NearbyPage{
		Status: "OK",
		Results: []domain.PlaceSummary{
			{PlaceID: "p1", Name: "Spago"},
			{PlaceID: "p2", Name: "Nate 'n Al"},
		},
	}}

	resolver := location.New(layer, geo, nil, location.DefaultCountrySuffix, zap.NewNop())
	searcher := search.New(nearby, layer, search.Config{}, zap.NewNop())
	svc := New(resolver, searcher, domain.SearchOptions{MaxPages: 1}, zap.NewNop())
	ctx := context.Background()

	first, err := svc.Search(ctx, Request{Query: "90210"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(geo.queries) != 1 || geo.queries[0] != "90210, USA" {
		t.Fatalf("unexpected geocoder queries %v", geo.queries)
	}
	if first.Center != geo.coord {
		t.Errorf("unexpected center %+v", first.Center)
	}
	if len(first.Places) != 2 || first.Places[0].PlaceID != "p1" || first.Places[1].PlaceID != "p2" {
		t.Fatalf("unexpected places %+v", first.Places)
	}

	second, err := svc.Search(ctx, Request{Query: "90210"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if nearby.calls != 1 || len(geo.queries) != 1 {
		t.Fatalf("second search hit the network: nearby=%d geocode=%d", nearby.calls, len(geo.queries))
	}
	if len(second.Places) != 2 || second.Places[0].PlaceID != "p1" {
		t.Errorf("unexpected cached places %+v", second.Places)
	}
	if second.Seq <= first.Seq {
		t.Errorf("sequence must increase: %d then %d", first.Seq, second.Seq)
	}
}

func TestSearch_ResolutionPrecedesSearch(t *testing.T) {
	rec := &recordingSearcher{}
	svc := New(staticResolver{err: &domain.ResolutionError{Kind: domain.ResolutionNotFound}}, rec,
		domain.SearchOptions{}, zap.NewNop())

	_, err := svc.Search(context.Background(), Request{Query: "Atlantis"})
	if !errors.Is(err, domain.ErrLocationNotFound) {
		t.Fatalf("expected resolution error verbatim, got %v", err)
	}
	if rec.called {
		t.Error("search must not run after a failed resolution")
	}
}

func TestSearch_Options(t *testing.T) {
	defaults := domain.SearchOptions{RadiusMeters: 5000, MaxPages: 1}
	tests := []struct {
		name string
		req  Request
		want domain.SearchOptions
	}{
		{"defaults", Request{}, defaults},
		{"overrides", Request{RadiusMeters: 800, MaxPages: 3}, domain.SearchOptions{RadiusMeters: 800, MaxPages: 3}},
		{"unlimited pages", Request{MaxPages: -1}, domain.SearchOptions{RadiusMeters: 5000, MaxPages: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingSearcher{}
			svc := New(staticResolver{}, rec, defaults, zap.NewNop())
			if _, err := svc.Search(context.Background(), tt.req); err != nil {
				t.Fatal(err)
			}
			if rec.opts != tt.want {
				t.Errorf("got %+v, want %+v", rec.opts, tt.want)
			}
		})
	}
}

func TestStart_DeliversResult(t *testing.T) {
	bs := &blockingSearcher{
		release: map[string]chan struct{}{"a": make(chan struct{})},
		started: make(chan string, 1),
	}
	svc := New(staticResolver{}, bs, domain.SearchOptions{}, zap.NewNop())
	defer svc.Close()

	got := make(chan Result, 1)
	seq := svc.Start(context.Background(), Request{Query: "a"}, func(r Result, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		got <- r
	})
	if svc.Latest() != seq {
		t.Fatalf("Latest = %d, want %d", svc.Latest(), seq)
	}

	<-bs.started
	close(bs.release["a"])

	select {
	case r := <-got:
		if r.Seq != seq || len(r.Places) != 1 || r.Places[0].PlaceID != "a" {
			t.Errorf("unexpected result %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("result not delivered")
	}
}

func TestStart_StaleResultDropped(t *testing.T) {
	bs := &blockingSearcher{
		release: map[string]chan struct{}{"old": make(chan struct{}), "new": make(chan struct{})},
		started: make(chan string, 2),
	}
	svc := New(staticResolver{}, bs, domain.SearchOptions{}, zap.NewNop())
	defer svc.Close()

	droppedBefore := testutil.ToFloat64(metrics.SessionsDroppedTotal)

	var mu sync.Mutex
	var delivered []Result
	var errs []error
	deliver := func(r Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, r)
		errs = append(errs, err)
	}

	oldSeq := svc.Start(context.Background(), Request{Query: "old"}, deliver)
	<-bs.started
	newSeq := svc.Start(context.Background(), Request{Query: "new"}, deliver)
	<-bs.started
	if newSeq <= oldSeq {
		t.Fatalf("sequence must increase: %d then %d", oldSeq, newSeq)
	}

	close(bs.release["new"])

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(delivered)
		mu.Unlock()
		dropped := testutil.ToFloat64(metrics.SessionsDroppedTotal) - droppedBefore
		if n == 1 && dropped == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out: delivered=%d dropped=%v", n, dropped)
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if delivered[0].Seq != newSeq || errs[0] != nil {
		t.Errorf("expected only the newest result, got %+v (%v)", delivered[0], errs[0])
	}
}

func TestClose_CancelsInFlight(t *testing.T) {
	bs := &blockingSearcher{
		release: map[string]chan struct{}{"a": make(chan struct{})},
		started: make(chan string, 1),
	}
	svc := New(staticResolver{}, bs, domain.SearchOptions{}, zap.NewNop())

	delivered := make(chan struct{}, 1)
	svc.Start(context.Background(), Request{Query: "a"}, func(Result, error) { delivered <- struct{}{} })
	<-bs.started

	done := make(chan struct{})
	go func() {
		svc.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the worker")
	}
	select {
	case <-delivered:
		t.Error("nothing may be delivered after Close")
	default:
	}
}
