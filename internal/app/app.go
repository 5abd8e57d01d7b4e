// Package app implements the application layer for bom.
package app

import (
	"context"
	"errors"
	"time"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/bom/internal/engine/infer"
	"go.trai.ch/bom/internal/engine/scanner"
	"go.trai.ch/zerr"
)

// deterministicPrefix names entries in deterministic runs.
const deterministicPrefix = "SW-"

// deterministicTime is the capture time stamped in deterministic runs.
var deterministicTime = time.Unix(0, 0).UTC()

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	source       ports.FileSource
	scanner      *scanner.Scanner
	inferencer   *infer.Inferencer
	repository   ports.GraphRepository
	newID        domain.IDGenerator
	logger       ports.Logger
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	source ports.FileSource,
	scan *scanner.Scanner,
	inferencer *infer.Inferencer,
	repository ports.GraphRepository,
	newID domain.IDGenerator,
	logger ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		source:       source,
		scanner:      scan,
		inferencer:   inferencer,
		repository:   repository,
		newID:        newID,
		logger:       logger,
	}
}

// GenerateOptions configure a scan.
type GenerateOptions struct {
	// ConfigPath is the bom.yaml describing the specimens.
	ConfigPath string
	// InputGraph is an earlier graph to merge the scan into. Optional.
	InputGraph string
	// Output is where the finalized graph is written.
	Output string
	// Workers overrides the configured worker count when positive.
	Workers int
	// Deterministic uses sequential identifiers and a fixed capture time.
	Deterministic bool
	// OmitUnrecognized leaves files of unknown type out of the graph. The
	// configuration can switch it on as well.
	OmitUnrecognized bool
}

// Generate scans the configured specimens and writes the resulting graph.
func (a *App) Generate(ctx context.Context, opts GenerateOptions) (*scanner.Result, error) {
	cfg, err := a.configLoader.Load(opts.ConfigPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	files, err := a.source.Files(ctx, cfg)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to enumerate files")
	}
	a.logger.Debug("files enumerated", "count", len(files))

	newID, now := a.newID, time.Now
	if opts.Deterministic {
		newID = domain.NewSequentialIDGenerator(deterministicPrefix)
		now = func() time.Time { return deterministicTime }
	}

	var prior *domain.Graph
	if opts.InputGraph != "" {
		prior, err = a.loadGraph(ctx, opts.InputGraph, newID)
		switch {
		case errors.Is(err, domain.ErrGraphNotFound):
			a.logger.Warn("input graph not found, starting from scratch", "path", opts.InputGraph)
			prior = nil
		case err != nil:
			return nil, err
		}
	}

	workers := cfg.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	res, err := a.scanner.Run(ctx, files, prior, scanner.Options{
		Workers:          workers,
		NewID:            newID,
		Now:              now,
		OmitUnrecognized: opts.OmitUnrecognized || cfg.OmitUnrecognized,
	})
	if err != nil {
		return nil, zerr.Wrap(err, "scan failed")
	}

	snapshot := res.Graph.Snapshot()
	snapshot.Diagnostics = res.Diagnostics
	if err := a.repository.Save(ctx, opts.Output, snapshot); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to save graph"), "path", opts.Output)
	}
	a.logger.Info("graph written", "path", opts.Output, "entries", res.Stats.Entries)
	return res, nil
}

// Find returns the entries of the graph at location matching q.
func (a *App) Find(ctx context.Context, location string, q domain.Query) ([]*domain.SoftwareEntry, error) {
	g, err := a.loadGraph(ctx, location, a.newID)
	if err != nil {
		return nil, err
	}
	entries, err := g.Find(q)
	if err != nil {
		return nil, zerr.Wrap(err, "invalid query")
	}
	return entries, nil
}

// Merge combines the graphs at inputs into one graph written to output.
// Relationships are re-inferred over the combined entry set.
func (a *App) Merge(ctx context.Context, inputs []string, output string) (*domain.Snapshot, error) {
	if len(inputs) == 0 {
		return nil, domain.ErrNoInputs
	}

	var merged *domain.Graph
	var diags []domain.Diagnostic
	for _, in := range inputs {
		snapshot, err := a.loadSnapshot(ctx, in)
		if err != nil {
			return nil, err
		}
		g, err := domain.RestoreGraph(snapshot, a.newID)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to restore graph"), "path", in)
		}
		diags = append(diags, snapshot.Diagnostics...)
		if merged == nil {
			merged = g
			continue
		}
		if err := merged.Merge(g); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to merge graph"), "path", in)
		}
	}

	inferDiags, err := a.inferencer.Infer(merged)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to infer relationships")
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	snapshot := merged.Snapshot()
	snapshot.Diagnostics = append(dedupDiagnostics(diags), inferDiags...)
	if err := a.repository.Save(ctx, output, snapshot); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to save graph"), "path", output)
	}
	a.logger.Info("graphs merged", "inputs", len(inputs), "entries", merged.Len(), "path", output)
	return snapshot, nil
}

func (a *App) loadSnapshot(ctx context.Context, location string) (*domain.Snapshot, error) {
	snapshot, err := a.repository.Load(ctx, location)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to load graph"), "path", location)
	}
	return snapshot, nil
}

func (a *App) loadGraph(ctx context.Context, location string, newID domain.IDGenerator) (*domain.Graph, error) {
	snapshot, err := a.loadSnapshot(ctx, location)
	if err != nil {
		return nil, err
	}
	g, err := domain.RestoreGraph(snapshot, newID)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to restore graph"), "path", location)
	}
	return g, nil
}

// dedupDiagnostics drops relationship diagnostics from the inputs, which inference
// reports afresh, and exact repeats of the rest.
func dedupDiagnostics(diags []domain.Diagnostic) []domain.Diagnostic {
	seen := make(map[domain.Diagnostic]struct{}, len(diags))
	var out []domain.Diagnostic
	for _, d := range diags {
		switch d.Kind {
		case domain.DiagAmbiguousDependency, domain.DiagUnresolvedDependency, domain.DiagUnresolvedContainer:
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
