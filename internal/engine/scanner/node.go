package scanner

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bom/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/bom/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/bom/internal/engine/dispatch"
	"go.trai.ch/bom/internal/engine/infer"
)

// NodeID is the unique identifier for the scanner Graft node.
const NodeID graft.ID = "engine.scanner"

func init() {
	graft.Register(graft.Node[*Scanner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			dispatch.NodeID,
			infer.NodeID,
			logger.NodeID,
			telemetry.NodeID,
		},
		Run: func(ctx context.Context) (*Scanner, error) {
			dispatcher, err := graft.Dep[*dispatch.Dispatcher](ctx)
			if err != nil {
				return nil, err
			}
			inferencer, err := graft.Dep[*infer.Inferencer](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}
			return New(dispatcher, inferencer, log, tracer), nil
		},
	})
}
