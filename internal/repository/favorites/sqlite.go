package favorites

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// SQLite stores favorites as JSON rows ordered by position.
type SQLite struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLite opens (or creates) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db, path: path}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS favorites (
		position INTEGER NOT NULL,
		place_id TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_favorites_position ON favorites(position);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Location returns the database path.
func (s *SQLite) Location() string { return s.path }

// Load returns every favorite in position order. Rows that no longer decode
// are skipped.
func (s *SQLite) Load(ctx context.Context) ([]domain.PlaceDetail, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM favorites ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	var out []domain.PlaceDetail
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		var d domain.PlaceDetail
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return out, nil
}

// Save replaces every row in one transaction.
func (s *SQLite) Save(ctx context.Context, items []domain.PlaceDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM favorites"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clearing favorites: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO favorites (position, place_id, data) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	for i, d := range items {
		data, err := json.Marshal(d)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode favorite %q: %w", d.PlaceID, err)
		}
		if _, err := stmt.ExecContext(ctx, i, d.PlaceID, string(data)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert favorite %q: %w", d.PlaceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
