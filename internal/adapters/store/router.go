package store

import (
	"context"
	"path/filepath"
	"strings"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
)

var _ ports.GraphRepository = (*Router)(nil)

// Router picks a repository by file extension. Locations ending in .db, .sqlite or
// .sqlite3 use SQLite; everything else is JSON.
type Router struct {
	json   ports.GraphRepository
	sqlite ports.GraphRepository
}

// NewRouter creates a Router over the two repositories.
func NewRouter(json, sqlite ports.GraphRepository) *Router {
	return &Router{json: json, sqlite: sqlite}
}

// IsSQLite reports whether location is stored in SQLite.
func IsSQLite(location string) bool {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	default:
		return false
	}
}

func (r *Router) pick(location string) ports.GraphRepository {
	if IsSQLite(location) {
		return r.sqlite
	}
	return r.json
}

// Load implements ports.GraphRepository.
func (r *Router) Load(ctx context.Context, location string) (*domain.Snapshot, error) {
	return r.pick(location).Load(ctx, location)
}

// Save implements ports.GraphRepository.
func (r *Router) Save(ctx context.Context, location string, snapshot *domain.Snapshot) error {
	return r.pick(location).Save(ctx, location, snapshot)
}
