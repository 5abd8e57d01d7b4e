// Package store persists finalized graphs as JSON documents or SQLite databases.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.GraphRepository = (*JSONRepository)(nil)

// JSONRepository stores a snapshot as one indented JSON document.
type JSONRepository struct {
	mu sync.RWMutex
}

// NewJSONRepository creates a JSONRepository.
func NewJSONRepository() *JSONRepository {
	return &JSONRepository{}
}

// Load reads the snapshot at location.
func (r *JSONRepository) Load(ctx context.Context, location string) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	//nolint:gosec // Path is provided by trusted caller
	data, err := os.ReadFile(filepath.Clean(location))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrGraphNotFound, "no graph stored"), "path", location)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read graph"), "path", location)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrGraphNotFound, "graph file is empty"), "path", location)
	}

	var s domain.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to unmarshal graph"), "path", location)
	}
	return &s, nil
}

// Save writes the snapshot to location, creating parent directories. The file is
// replaced atomically.
func (r *JSONRepository) Save(ctx context.Context, location string, snapshot *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal graph")
	}
	data = append(data, '\n')

	path := filepath.Clean(location)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory for graph"), "path", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return zerr.Wrap(err, "failed to create temporary graph file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(err, "failed to write graph")
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, "failed to write graph")
	}
	//nolint:gosec // Graph documents are not secret
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return zerr.Wrap(err, "failed to set graph permissions")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to replace graph"), "path", path)
	}
	return nil
}
