package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bom/internal/adapters/logger" //nolint:depguard // Tracer logs through the logger adapter
	"go.trai.ch/bom/internal/core/ports"
)

const (
	// NodeID is the unique identifier for the tracer Graft node.
	NodeID graft.ID = "adapter.telemetry"
	// ProgressNodeID provides the *ProgressWriter the CLI points at the terminal.
	ProgressNodeID graft.ID = "adapter.telemetry.progress"
)

func init() {
	graft.Register(graft.Node[*ProgressWriter]{
		ID:        ProgressNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*ProgressWriter, error) {
			return NewProgressWriter(), nil
		},
	})

	graft.Register(graft.Node[ports.Tracer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, ProgressNodeID},
		Run: func(ctx context.Context) (ports.Tracer, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			progress, err := graft.Dep[*ProgressWriter](ctx)
			if err != nil {
				return nil, err
			}
			return NewFanout(NewLogTracer(log), NewProgrockTracer(progress)), nil
		},
	})
}
