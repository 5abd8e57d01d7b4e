package infer

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bom/internal/adapters/logger" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/bom/internal/core/ports"
)

// NodeID is the unique identifier for the inferencer Graft node.
const NodeID graft.ID = "engine.inferencer"

func init() {
	graft.Register(graft.Node[*Inferencer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (*Inferencer, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(log), nil
		},
	})
}
