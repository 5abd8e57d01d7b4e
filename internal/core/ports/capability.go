// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/bom/internal/core/domain"
)

// Capability is a pluggable extractor that contributes metadata about files.
//
// Applies must be a pure predicate over the file and its classified type.
// Extract returns one of three outcomes: a record, domain.ErrNotApplicable (or a nil
// record) when the capability declines after looking at the content, or any other
// error when extraction failed. Capabilities are invoked concurrently for different
// files and must not share mutable state.
//
//go:generate go run go.uber.org/mock/mockgen -source=capability.go -destination=mocks/mock_capability.go -package=mocks
type Capability interface {
	// Name is the unique registry key of the capability.
	Name() string
	// Priority orders capabilities; higher values run first and win scalar conflicts.
	Priority() int
	// Applies reports whether the capability wants to look at the file.
	Applies(file domain.FileRef, fileType domain.FileType) bool
	// Extract reads the file and returns its partial metadata.
	Extract(ctx context.Context, file domain.FileRef, fileType domain.FileType) (*domain.ExtractionRecord, error)
}
