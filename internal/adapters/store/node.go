package store

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bom/internal/core/ports"
)

// NodeID is the unique identifier for the graph repository Graft node.
const NodeID graft.ID = "adapter.graph_repository"

func init() {
	graft.Register(graft.Node[ports.GraphRepository]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.GraphRepository, error) {
			return NewRouter(NewJSONRepository(), NewSQLiteRepository()), nil
		},
	})
}
