package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/domain"
	healthuc "github.com/kailas-cloud/geogrub/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/geogrub/internal/usecase/session"
)

type mockSessions struct {
	searchFn func(ctx context.Context, req sessionuc.Request) (sessionuc.Result, error)
	startFn  func(ctx context.Context, req sessionuc.Request, deliver func(sessionuc.Result, error)) uint64
	latest   uint64
}

func (m *mockSessions) Search(ctx context.Context, req sessionuc.Request) (sessionuc.Result, error) {
	return m.searchFn(ctx, req)
}

func (m *mockSessions) Start(ctx context.Context, req sessionuc.Request, deliver func(sessionuc.Result, error)) uint64 {
	return m.startFn(ctx, req, deliver)
}

func (m *mockSessions) Latest() uint64 { return m.latest }

type mockResults struct {
	cachedFn func(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.PlaceSummary, error)
}

func (m *mockResults) Cached(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.PlaceSummary, error) {
	return m.cachedFn(ctx, query, opts)
}

type mockLocator struct {
	nearMeFn func(ctx context.Context) (string, domain.Coordinate, error)
}

func (m *mockLocator) NearMe(ctx context.Context) (string, domain.Coordinate, error) {
	return m.nearMeFn(ctx)
}

type mockDetails struct {
	fetchFn     func(ctx context.Context, placeID string) (domain.PlaceDetail, error)
	summarizeFn func(ctx context.Context, placeID string) (string, error)
	summaries   bool
}

func (m *mockDetails) Fetch(ctx context.Context, placeID string) (domain.PlaceDetail, error) {
	return m.fetchFn(ctx, placeID)
}

func (m *mockDetails) SummaryEnabled() bool { return m.summaries }

func (m *mockDetails) Summarize(ctx context.Context, placeID string) (string, error) {
	return m.summarizeFn(ctx, placeID)
}

type mockPhotos struct {
	fetchFn func(ctx context.Context, ref string, maxWidth int) (domain.ImageBlob, bool)
}

func (m *mockPhotos) Fetch(ctx context.Context, ref string, maxWidth int) (domain.ImageBlob, bool) {
	return m.fetchFn(ctx, ref, maxWidth)
}

// memFavorites is an in-memory Favorites with an optional write error.
type memFavorites struct {
	items   []domain.PlaceDetail
	saveErr error
}

func (m *memFavorites) Add(_ context.Context, d domain.PlaceDetail) error {
	if m.Contains(d.PlaceID) {
		return nil
	}
	m.items = append(m.items, d)
	return m.saveErr
}

func (m *memFavorites) Remove(_ context.Context, placeID string) error {
	for i, d := range m.items {
		if d.PlaceID == placeID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return m.saveErr
		}
	}
	return nil
}

func (m *memFavorites) Toggle(ctx context.Context, d domain.PlaceDetail) (bool, error) {
	if m.Contains(d.PlaceID) {
		return false, m.Remove(ctx, d.PlaceID)
	}
	return true, m.Add(ctx, d)
}

func (m *memFavorites) Contains(placeID string) bool {
	for _, d := range m.items {
		if d.PlaceID == placeID {
			return true
		}
	}
	return false
}

func (m *memFavorites) List() []domain.PlaceDetail {
	out := make([]domain.PlaceDetail, len(m.items))
	copy(out, m.items)
	return out
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// testDeps holds every server dependency; tests override what they need.
type testDeps struct {
	sessions  *mockSessions
	results   *mockResults
	locator   *mockLocator
	details   *mockDetails
	photos    *mockPhotos
	favorites *memFavorites
	health    *mockHealth
}

func newTestDeps() *testDeps {
	return &testDeps{
		sessions: &mockSessions{
			searchFn: func(context.Context, sessionuc.Request) (sessionuc.Result, error) {
				return sessionuc.Result{}, nil
			},
			startFn: func(context.Context, sessionuc.Request, func(sessionuc.Result, error)) uint64 { return 1 },
		},
		results: &mockResults{
			cachedFn: func(context.Context, string, domain.SearchOptions) ([]domain.PlaceSummary, error) {
				return nil, domain.ErrNotCached
			},
		},
		locator: &mockLocator{
			nearMeFn: func(context.Context) (string, domain.Coordinate, error) {
				return "", domain.Coordinate{}, &domain.ResolutionError{Kind: domain.ResolutionProviderUnavailable}
			},
		},
		details: &mockDetails{
			fetchFn: func(_ context.Context, placeID string) (domain.PlaceDetail, error) {
				return domain.PlaceDetail{PlaceSummary: domain.PlaceSummary{PlaceID: placeID, Name: "Place " + placeID}}, nil
			},
			summarizeFn: func(context.Context, string) (string, error) {
				return "", domain.ErrSummaryDisabled
			},
		},
		photos: &mockPhotos{
			fetchFn: func(context.Context, string, int) (domain.ImageBlob, bool) { return domain.ImageBlob{}, false },
		},
		favorites: &memFavorites{},
		health:    &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}},
	}
}

func (d *testDeps) server() *Server {
	return NewServer(d.sessions, d.results, d.locator, d.details, d.photos, d.favorites, d.health, 400, zap.NewNop())
}

func (d *testDeps) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	d.server().Routes(nil).ServeHTTP(rr, req)
	return rr
}
