package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bom/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/bom/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/bom/internal/adapters/ident"     //nolint:depguard // Wired in app layer
	"go.trai.ch/bom/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/bom/internal/adapters/store"     //nolint:depguard // Wired in app layer
	"go.trai.ch/bom/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/bom/internal/engine/infer"
	"go.trai.ch/bom/internal/engine/scanner"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			fs.SourceNodeID,
			scanner.NodeID,
			infer.NodeID,
			store.NodeID,
			ident.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			logger.SlogNodeID,
			telemetry.ProgressNodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			levels, err := graft.Dep[*logger.Logger](ctx)
			if err != nil {
				return nil, err
			}
			progress, err := graft.Dep[*telemetry.ProgressWriter](ctx)
			if err != nil {
				return nil, err
			}
			return NewComponents(a, log, levels, progress), nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	source, err := graft.Dep[ports.FileSource](ctx)
	if err != nil {
		return nil, err
	}
	scan, err := graft.Dep[*scanner.Scanner](ctx)
	if err != nil {
		return nil, err
	}
	inferencer, err := graft.Dep[*infer.Inferencer](ctx)
	if err != nil {
		return nil, err
	}
	repository, err := graft.Dep[ports.GraphRepository](ctx)
	if err != nil {
		return nil, err
	}
	newID, err := graft.Dep[domain.IDGenerator](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	return New(loader, source, scan, inferencer, repository, newID, log), nil
}
