// Package scanner runs a complete scan: dispatch, synthesis, merge and inference.
package scanner

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/bom/internal/engine/dispatch"
	"go.trai.ch/bom/internal/engine/infer"
	"go.trai.ch/bom/internal/engine/merge"
	"go.trai.ch/bom/internal/engine/synthesize"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Options tune a single run.
type Options struct {
	// Workers bounds concurrent dispatch. Zero uses GOMAXPROCS.
	Workers int
	// NewID names entries first seen in this run.
	NewID domain.IDGenerator
	// Now stamps capture times. Nil uses time.Now.
	Now func() time.Time
	// OmitUnrecognized leaves files whose type stays unknown out of the graph.
	// Their diagnostics are still reported.
	OmitUnrecognized bool
}

// Stats summarizes a run.
type Stats struct {
	Files         int `json:"files"`
	Inserted      int `json:"inserted"`
	Merged        int `json:"merged"`
	Omitted       int `json:"omitted"`
	Entries       int `json:"entries"`
	Relationships int `json:"relationships"`
}

// Result is the finalized graph of a run and everything reported on the way.
type Result struct {
	Graph       *domain.Graph
	Diagnostics []domain.Diagnostic
	Stats       Stats
}

// Scanner drives the scan pipeline. Files are dispatched and synthesized by a
// bounded pool of workers; candidates fan in to a single merger goroutine, and
// inference runs once every candidate is merged.
type Scanner struct {
	dispatcher *dispatch.Dispatcher
	inferencer *infer.Inferencer
	logger     ports.Logger
	tracer     ports.Tracer
}

// New creates a Scanner.
func New(dispatcher *dispatch.Dispatcher, inferencer *infer.Inferencer, logger ports.Logger, tracer ports.Tracer) *Scanner {
	return &Scanner{
		dispatcher: dispatcher,
		inferencer: inferencer,
		logger:     logger,
		tracer:     tracer,
	}
}

type candidate struct {
	index int
	entry *domain.SoftwareEntry
	diags []domain.Diagnostic
}

// Run scans files into a copy of prior, or into a fresh graph when prior is nil.
// prior itself is never modified. On cancellation or an integrity violation the
// partial graph is discarded and the error is returned.
func (s *Scanner) Run(ctx context.Context, files []domain.FileRef, prior *domain.Graph, opts Options) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "scan")
	defer span.End()
	span.SetAttribute("files", len(files))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	newID := opts.NewID
	if newID == nil {
		newID = domain.NewSequentialIDGenerator("SW-")
	}

	var g *domain.Graph
	if prior != nil {
		g = prior.Clone().WithIDGenerator(newID)
	} else {
		g = domain.NewGraph(newID)
	}

	lifecycle := domain.NewScanLifecycle(func(from, to domain.ScanState) {
		s.logger.Debug("scan state changed", "from", from.String(), "to", to.String())
	})

	merger := merge.New(g, s.logger)
	var omitted atomic.Int64
	fileDiags, err := s.collect(ctx, files, merger, synthesize.New(opts.Now), lifecycle, workers, func(e *domain.SoftwareEntry) bool {
		if opts.OmitUnrecognized && e.FileType == domain.FileTypeUnknown {
			omitted.Add(1)
			return false
		}
		return true
	})
	if err != nil {
		lifecycle.Fail(err)
		span.RecordError(err)
		return nil, err
	}

	lifecycle.ReachAtLeast(domain.StateMerging)
	if err := lifecycle.Advance(domain.StateInferring); err != nil {
		return nil, err
	}
	_, inferSpan := s.tracer.Start(ctx, "scan.infer")
	inferDiags, err := s.inferencer.Infer(g)
	if err == nil {
		err = g.Validate()
	}
	inferSpan.End()
	if err != nil {
		lifecycle.Fail(err)
		span.RecordError(err)
		return nil, err
	}
	if err := lifecycle.Advance(domain.StateFinalized); err != nil {
		return nil, err
	}

	var diags []domain.Diagnostic
	for _, d := range fileDiags {
		diags = append(diags, d...)
	}
	diags = append(diags, inferDiags...)

	ms := merger.Stats()
	stats := Stats{
		Files:         len(files),
		Inserted:      ms.Inserted,
		Merged:        ms.Merged,
		Omitted:       int(omitted.Load()),
		Entries:       g.Len(),
		Relationships: g.EdgeCount(),
	}
	span.SetAttribute("entries", stats.Entries)
	span.SetAttribute("diagnostics", len(diags))
	s.logger.Info("scan finished",
		"files", stats.Files,
		"entries", stats.Entries,
		"merged", stats.Merged,
		"omitted", stats.Omitted,
		"relationships", stats.Relationships,
		"diagnostics", len(diags),
	)
	return &Result{Graph: g, Diagnostics: diags, Stats: stats}, nil
}

// collect runs the worker pool and the merging consumer. Diagnostics are returned
// per file, in file order, regardless of completion order.
func (s *Scanner) collect(
	ctx context.Context,
	files []domain.FileRef,
	merger *merge.Merger,
	synth *synthesize.Synthesizer,
	lifecycle *domain.ScanLifecycle,
	workers int,
	keep func(*domain.SoftwareEntry) bool,
) ([][]domain.Diagnostic, error) {
	ctx, span := s.tracer.Start(ctx, "scan.collect")
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fileDiags := make([][]domain.Diagnostic, len(files))
	candidates := make(chan candidate, workers)

	var mergeErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for c := range candidates {
			fileDiags[c.index] = c.diags
			if c.entry == nil || mergeErr != nil {
				continue
			}
			lifecycle.ReachAtLeast(domain.StateMerging)
			if _, err := merger.Submit(c.entry); err != nil {
				if errors.Is(err, domain.ErrStoreIntegrityViolation) {
					mergeErr = err
					cancel()
					continue
				}
				fileDiags[c.index] = append(fileDiags[c.index], domain.NewDiagnostic(
					domain.DiagNoIdentityAvailable, err.Error(),
				).ForPath(files[c.index].Path))
			}
		}
	}()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, f := range files {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			lifecycle.ReachAtLeast(domain.StateDispatching)
			res, err := s.dispatcher.Dispatch(egCtx, f)
			if err != nil {
				return err
			}
			lifecycle.ReachAtLeast(domain.StateSynthesizing)
			entry, diags := synth.Synthesize(f, res.FileType, res.Records)
			if entry != nil && !keep(entry) {
				entry = nil
			}
			select {
			case candidates <- candidate{index: i, entry: entry, diags: append(res.Diagnostics, diags...)}:
				return nil
			case <-egCtx.Done():
				return zerr.Wrap(egCtx.Err(), "scan canceled")
			}
		})
	}
	prodErr := eg.Wait()
	close(candidates)
	wg.Wait()

	switch {
	case mergeErr != nil:
		return nil, mergeErr
	case prodErr != nil:
		return nil, prodErr
	case ctx.Err() != nil:
		return nil, zerr.Wrap(ctx.Err(), "scan canceled")
	}
	s.logger.Debug("files collected", "files", len(files), "workers", workers)
	return fileDiags, nil
}
