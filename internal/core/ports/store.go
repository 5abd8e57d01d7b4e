package ports

import (
	"context"

	"go.trai.ch/bom/internal/core/domain"
)

// GraphRepository persists finalized graphs so later runs can merge into them.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type GraphRepository interface {
	// Load reads the graph stored at location.
	// It returns domain.ErrGraphNotFound if nothing is stored there.
	Load(ctx context.Context, location string) (*domain.Snapshot, error)

	// Save writes the snapshot to location, replacing anything stored there.
	Save(ctx context.Context, location string, snapshot *domain.Snapshot) error
}
