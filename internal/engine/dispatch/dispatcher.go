package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/zerr"
)

// Result is what the capabilities said about one file.
type Result struct {
	File        domain.FileRef
	FileType    domain.FileType
	Records     []*domain.ExtractionRecord
	Diagnostics []domain.Diagnostic
}

// Dispatcher classifies files and runs every applicable capability on them. It never
// touches the graph and is safe for concurrent use.
type Dispatcher struct {
	classifier ports.Classifier
	registry   *Registry
	logger     ports.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(classifier ports.Classifier, registry *Registry, logger ports.Logger) *Dispatcher {
	return &Dispatcher{classifier: classifier, registry: registry, logger: logger}
}

// Dispatch returns the records of file in priority order. Capability failures become
// diagnostics; the error is only set when ctx is done.
func (d *Dispatcher) Dispatch(ctx context.Context, file domain.FileRef) (*Result, error) {
	res := &Result{File: file}

	ft, err := d.classifier.Classify(ctx, file)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, zerr.Wrap(ctxErr, "dispatch canceled")
		}
		ft = domain.FileTypeUnknown
		res.Diagnostics = append(res.Diagnostics, domain.NewDiagnostic(
			domain.DiagExtractionFailure, "classification failed: "+err.Error(),
		).ForPath(file.Path))
	}
	res.FileType = ft

	for _, c := range d.registry.Capabilities() {
		if err := ctx.Err(); err != nil {
			return nil, zerr.Wrap(err, "dispatch canceled")
		}
		rec, diag := d.invoke(ctx, c, file, ft)
		if diag != nil {
			res.Diagnostics = append(res.Diagnostics, *diag)
		}
		if rec != nil {
			res.Records = append(res.Records, rec)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, zerr.Wrap(err, "dispatch canceled")
	}
	return res, nil
}

func (d *Dispatcher) invoke(
	ctx context.Context,
	c ports.Capability,
	file domain.FileRef,
	ft domain.FileType,
) (rec *domain.ExtractionRecord, diag *domain.Diagnostic) {
	name := c.Name()
	defer zerr.Defer(func(err error) {
		rec = nil
		d.logger.Warn("capability panicked", "capability", name, "path", file.Path)
		failure := domain.NewDiagnostic(domain.DiagExtractionFailure, fmt.Sprintf("capability panicked: %v", err)).
			ForPath(file.Path).ForCapability(name)
		diag = &failure
	})

	if !c.Applies(file, ft) {
		return nil, nil
	}

	out, err := c.Extract(ctx, file, ft)
	switch {
	case errors.Is(err, domain.ErrNotApplicable):
		return nil, nil
	case err != nil:
		d.logger.Debug("capability failed", "capability", name, "path", file.Path, "error", err.Error())
		failure := domain.NewDiagnostic(domain.DiagExtractionFailure, err.Error()).
			ForPath(file.Path).ForCapability(name)
		return nil, &failure
	case out == nil:
		return nil, nil
	}

	out.Capability = name
	out.Priority = c.Priority()
	return out, nil
}
