package favorites

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/domain"
	repo "github.com/kailas-cloud/geogrub/internal/repository/favorites"
)

// --- Mocks ---

type mockBackend struct {
	loadFn func(ctx context.Context) ([]domain.PlaceDetail, error)
	saveFn func(ctx context.Context, items []domain.PlaceDetail) error
	saves  [][]domain.PlaceDetail
}

func (m *mockBackend) Load(ctx context.Context) ([]domain.PlaceDetail, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) Save(ctx context.Context, items []domain.PlaceDetail) error {
	m.saves = append(m.saves, items)
	if m.saveFn != nil {
		return m.saveFn(ctx, items)
	}
	return nil
}

func (m *mockBackend) Location() string { return "mock://favorites" }

func detail(id string) domain.PlaceDetail {
	phone := "(555) 010-" + id
	return domain.PlaceDetail{
		PlaceSummary: domain.PlaceSummary{PlaceID: id, Name: "Place " + id},
		Address:      id + " Main St",
		Phone:        &phone,
		Reviews:      []domain.Review{{Author: "A", Rating: 4, Text: "ok"}},
	}
}

func fullDetail(id string) domain.PlaceDetail {
	price, open, rating, dist := 0, true, 4.5, 120.0
	photo, phone, site := "ref-"+id, "", "https://example.com/"+id
	return domain.PlaceDetail{
		PlaceSummary: domain.PlaceSummary{
			PlaceID:         id,
			Name:            "Place " + id,
			Vicinity:        id + " Main St",
			PriceLevel:      &price,
			OpenNow:         &open,
			Types:           []string{},
			PrimaryPhotoRef: &photo,
			Rating:          &rating,
			Location:        &domain.Coordinate{Lat: 34.09, Lng: -118.41},
			DistanceMeters:  &dist,
		},
		Address:   id + " Main St, Beverly Hills, CA 90210",
		Phone:     &phone,
		Website:   &site,
		PhotoRefs: []string{},
		Reviews:   []domain.Review{},
	}
}

// --- Tests ---

func TestRoundTrip_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.json")
	ctx := context.Background()

	svc := New(repo.NewJSONFile(path), zap.NewNop())
	svc.Load(ctx)
	d := fullDetail("p1")
	if err := svc.Add(ctx, d); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := svc.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fresh := New(repo.NewJSONFile(path), zap.NewNop())
	got := fresh.Load(ctx)
	if len(got) != 1 || !reflect.DeepEqual(got[0], d) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !fresh.Contains("p1") {
		t.Error("expected p1 after reload")
	}
}

func TestRoundTrip_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.db")
	ctx := context.Background()

	store, err := repo.NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	svc := New(store, zap.NewNop())
	svc.Load(ctx)
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := svc.Add(ctx, detail(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.Remove(ctx, "p2"); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store2, err := repo.NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store2.Close()
	got := New(store2, zap.NewNop()).Load(ctx)
	if len(got) != 2 || got[0].PlaceID != "p1" || got[1].PlaceID != "p3" {
		t.Fatalf("unexpected favorites %+v", got)
	}
}

func TestRoundTrip_SQLiteEveryField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.db")
	ctx := context.Background()

	store, err := repo.NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	svc := New(store, zap.NewNop())
	svc.Load(ctx)
	d := fullDetail("p1")
	if err := svc.Add(ctx, d); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store2, err := repo.NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store2.Close()
	got := New(store2, zap.NewNop()).Load(ctx)
	if len(got) != 1 || !reflect.DeepEqual(got[0], d) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, d)
	}
}

func TestAddRemove(t *testing.T) {
	b := &mockBackend{}
	svc := New(b, zap.NewNop())
	ctx := context.Background()

	if err := svc.Add(ctx, detail("p1")); err != nil {
		t.Fatal(err)
	}
	if !svc.Contains("p1") {
		t.Fatal("expected p1")
	}
	if err := svc.Remove(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if svc.Contains("p1") {
		t.Fatal("p1 should be gone")
	}
	if len(b.saves) != 2 {
		t.Errorf("expected a full rewrite per mutation, got %d saves", len(b.saves))
	}
	if len(b.saves[1]) != 0 {
		t.Errorf("expected empty set saved, got %+v", b.saves[1])
	}
}

func TestAdd_ExistingIsNoop(t *testing.T) {
	b := &mockBackend{}
	svc := New(b, zap.NewNop())
	ctx := context.Background()

	_ = svc.Add(ctx, detail("p1"))
	changed := detail("p1")
	changed.Name = "Renamed"
	if err := svc.Add(ctx, changed); err != nil {
		t.Fatal(err)
	}
	if len(b.saves) != 1 {
		t.Errorf("duplicate add must not rewrite, got %d saves", len(b.saves))
	}
	if got := svc.List(); len(got) != 1 || got[0].Name != "Place p1" {
		t.Errorf("unexpected list %+v", got)
	}
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	b := &mockBackend{}
	svc := New(b, zap.NewNop())
	if err := svc.Remove(context.Background(), "nope"); err != nil {
		t.Fatal(err)
	}
	if len(b.saves) != 0 {
		t.Errorf("expected no save, got %d", len(b.saves))
	}
}

func TestToggle(t *testing.T) {
	svc := New(&mockBackend{}, zap.NewNop())
	ctx := context.Background()

	on, err := svc.Toggle(ctx, detail("p1"))
	if err != nil || !on || !svc.Contains("p1") {
		t.Fatalf("expected favorited: %v %v", on, err)
	}
	on, err = svc.Toggle(ctx, detail("p1"))
	if err != nil || on || svc.Contains("p1") {
		t.Fatalf("expected unfavorited: %v %v", on, err)
	}
}

func TestLoad_FailsSoft(t *testing.T) {
	b := &mockBackend{loadFn: func(context.Context) ([]domain.PlaceDetail, error) {
		return nil, errors.New("parse favorites: unexpected EOF")
	}}
	svc := New(b, zap.NewNop())

	got := svc.Load(context.Background())
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %+v", got)
	}
	if list := svc.List(); list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", list)
	}
}

func TestLoad_DropsDuplicates(t *testing.T) {
	b := &mockBackend{loadFn: func(context.Context) ([]domain.PlaceDetail, error) {
		return []domain.PlaceDetail{detail("p1"), detail("p2"), detail("p1")}, nil
	}}
	got := New(b, zap.NewNop()).Load(context.Background())
	if len(got) != 2 || got[0].PlaceID != "p1" || got[1].PlaceID != "p2" {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestSave_FailureSurfaces(t *testing.T) {
	cause := errors.New("disk full")
	b := &mockBackend{saveFn: func(context.Context, []domain.PlaceDetail) error { return cause }}
	svc := New(b, zap.NewNop())

	err := svc.Add(context.Background(), detail("p1"))
	var pe *domain.PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistError, got %v", err)
	}
	if pe.Op != domain.PersistWrite || pe.Path != "mock://favorites" {
		t.Errorf("unexpected %+v", pe)
	}
	if !errors.Is(err, domain.ErrPersist) || !errors.Is(err, cause) {
		t.Errorf("expected sentinel and cause in chain: %v", err)
	}
	// The in-memory set keeps the favorite so a later save can retry.
	if !svc.Contains("p1") {
		t.Error("expected p1 to stay in memory")
	}
}

func TestAdd_EmptyID(t *testing.T) {
	svc := New(&mockBackend{}, zap.NewNop())
	if err := svc.Add(context.Background(), domain.PlaceDetail{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestList_ReturnsCopy(t *testing.T) {
	svc := New(&mockBackend{}, zap.NewNop())
	_ = svc.Add(context.Background(), detail("p1"))
	l := svc.List()
	l[0].Name = "mutated"
	if svc.List()[0].Name != "Place p1" {
		t.Error("List must not expose internal state")
	}
}
