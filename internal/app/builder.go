package app

import (
	"context"
	"io"

	"github.com/grindlemire/graft"
	"go.trai.ch/bom/internal/core/ports"
)

// Verbosity adjusts how much the logger prints.
type Verbosity interface {
	SetVerbose(verbose bool)
}

// Progress receives a line per finished scan stage once an output is set.
type Progress interface {
	SetOutput(w io.Writer)
}

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App       *App
	Logger    ports.Logger
	Verbosity Verbosity
	Progress  Progress
}

// NewComponents creates a new Components struct from dependencies.
func NewComponents(app *App, logger ports.Logger, verbosity Verbosity, progress Progress) *Components {
	return &Components{
		App:       app,
		Logger:    logger,
		Verbosity: verbosity,
		Progress:  progress,
	}
}

// NewApp resolves the dependency graph and returns the initialized Components.
// The wiring package must be imported for the nodes to be registered.
func NewApp(ctx context.Context) (*Components, error) {
	components, _, err := graft.ExecuteFor[*Components](ctx)
	if err != nil {
		return nil, err
	}
	return components, nil
}
