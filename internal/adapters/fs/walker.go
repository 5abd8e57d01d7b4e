// Package fs provides file system adapters for enumerating and hashing scan inputs.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"

	"github.com/gobwas/glob"
	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/zerr"
)

// Excludes is a compiled set of exclude patterns matched against slash-separated
// paths relative to the walk root.
type Excludes []glob.Glob

// CompileExcludes compiles glob patterns such as "**/*.log" or "cache/**".
func CompileExcludes(patterns []string) (Excludes, error) {
	out := make(Excludes, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "invalid exclude pattern"), "pattern", p)
		}
		out = append(out, g)
	}
	return out, nil
}

func (e Excludes) match(rel string, isDir bool) bool {
	for _, g := range e {
		if g.Match(rel) || (isDir && g.Match(rel+"/")) {
			return true
		}
	}
	return false
}

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields every regular file under root, skipping .git directories and
// anything matched by excludes. Unreadable directories are skipped. If root is a
// file, only root is yielded.
func (w *Walker) WalkFiles(root string, excludes Excludes) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() && path != root {
					return filepath.SkipDir
				}
				return nil
			}

			if path != root {
				if d.IsDir() && d.Name() == ".git" {
					return filepath.SkipDir
				}
				if w.excluded(root, path, d, excludes) {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
			}

			if !d.Type().IsRegular() {
				return nil
			}

			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Walker) excluded(root, path string, d fs.DirEntry, excludes Excludes) bool {
	if len(excludes) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return excludes.match(filepath.ToSlash(rel), d.IsDir())
}
