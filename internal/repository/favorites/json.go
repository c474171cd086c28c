// Package favorites persists the favorites set as a whole. Every Save
// replaces the stored set; there is no incremental format.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// JSONFile stores favorites as a JSON array of place details.
type JSONFile struct {
	path string
}

// NewJSONFile creates a file-backed store. The file is not touched until
// Load or Save.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Location returns the file path.
func (f *JSONFile) Location() string { return f.path }

// Load reads the whole file. A missing file is an empty set.
func (f *JSONFile) Load(_ context.Context) ([]domain.PlaceDetail, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read favorites: %w", err)
	}

	var out []domain.PlaceDetail
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse favorites %s: %w", f.path, err)
	}
	return out, nil
}

// Save writes the full set to a temp file in the same directory and renames
// it over the old file, so readers never see a partial write.
func (f *JSONFile) Save(_ context.Context, items []domain.PlaceDetail) error {
	if items == nil {
		items = []domain.PlaceDetail{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create favorites dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".favorites-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace favorites: %w", err)
	}
	return nil
}
