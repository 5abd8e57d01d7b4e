package extract

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bom/internal/adapters/fs"
	"go.trai.ch/bom/internal/core/ports"
)

// NodeID provides the built-in capability set.
const NodeID graft.ID = "adapter.extract.capabilities"

func init() {
	graft.Register(graft.Node[[]ports.Capability]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.HasherNodeID},
		Run: func(ctx context.Context) ([]ports.Capability, error) {
			hasher, err := graft.Dep[*fs.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			return Builtin(hasher), nil
		},
	})
}

// Builtin returns every built-in capability.
func Builtin(hasher *fs.Hasher) []ports.Capability {
	return []ports.Capability{
		NewHashCapability(hasher),
		NewELFCapability(),
		NewPECapability(),
		NewJavaClassCapability(),
	}
}
