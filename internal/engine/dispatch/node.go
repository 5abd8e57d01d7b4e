package dispatch

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bom/internal/adapters/classify" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/bom/internal/adapters/extract"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/bom/internal/adapters/logger"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/bom/internal/core/ports"
)

// NodeID is the unique identifier for the dispatcher Graft node.
const NodeID graft.ID = "engine.dispatcher"

func init() {
	graft.Register(graft.Node[*Dispatcher]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{classify.NodeID, extract.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Dispatcher, error) {
			classifier, err := graft.Dep[ports.Classifier](ctx)
			if err != nil {
				return nil, err
			}
			caps, err := graft.Dep[[]ports.Capability](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			registry, err := NewRegistry(caps...)
			if err != nil {
				return nil, err
			}
			return NewDispatcher(classifier, registry, log), nil
		},
	})
}
