package logger

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bom/internal/core/ports"
)

const (
	// NodeID provides ports.Logger.
	NodeID graft.ID = "adapter.logger"
	// SlogNodeID provides the concrete *Logger so the CLI can adjust verbosity.
	SlogNodeID graft.ID = "adapter.logger.slog"
)

func init() {
	graft.Register(graft.Node[*Logger]{
		ID:        SlogNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Logger, error) {
			return New(), nil
		},
	})

	graft.Register(graft.Node[ports.Logger]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{SlogNodeID},
		Run: func(ctx context.Context) (ports.Logger, error) {
			return graft.Dep[*Logger](ctx)
		},
	})
}
