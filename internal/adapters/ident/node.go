package ident

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bom/internal/core/domain"
)

// NodeID is the unique identifier for the ID generator Graft node.
const NodeID graft.ID = "adapter.ident"

func init() {
	graft.Register(graft.Node[domain.IDGenerator]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (domain.IDGenerator, error) {
			return NewUUIDGenerator(), nil
		},
	})
}
