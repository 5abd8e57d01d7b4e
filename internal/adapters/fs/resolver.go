package fs

import (
	"os"
	"path/filepath"
	"sort"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/zerr"
)

// Resolver expands configured paths, which may contain shell glob patterns, into
// existing file system paths.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the sorted, unique set of paths matched by patterns.
// A pattern that matches nothing is a configuration error.
func (r *Resolver) Resolve(patterns []string) ([]string, error) {
	unique := make(map[string]struct{})

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "path", pattern)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(pattern); statErr != nil {
				return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "input not found"), "path", pattern)
			}
			matches = []string{pattern}
		}
		for _, m := range matches {
			unique[filepath.Clean(m)] = struct{}{}
		}
	}

	result := make([]string, 0, len(unique))
	for p := range unique {
		result = append(result, p)
	}
	sort.Strings(result)
	return result, nil
}
