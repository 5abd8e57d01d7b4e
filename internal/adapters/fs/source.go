package fs

import (
	"context"
	"path"
	"path/filepath"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FileSource = (*Source)(nil)

// Source enumerates the files of every configured specimen.
//
// Files below an extract path get install paths rooted at the specimen's install
// prefix. When the specimen names an archive, the archive itself is offered as a
// file and every extracted file records it as provenance.
type Source struct {
	walker   *Walker
	resolver *Resolver
	logger   ports.Logger
}

// NewSource creates a Source.
func NewSource(walker *Walker, resolver *Resolver, logger ports.Logger) *Source {
	return &Source{walker: walker, resolver: resolver, logger: logger}
}

// Files returns the file references in a stable order.
func (s *Source) Files(ctx context.Context, cfg *domain.ScanConfig) ([]domain.FileRef, error) {
	excludes, err := CompileExcludes(cfg.Exclude)
	if err != nil {
		return nil, err
	}

	var files []domain.FileRef
	for _, spec := range cfg.Specimens {
		var container string
		if spec.Archive != "" {
			archives, err := s.resolver.Resolve([]string{spec.Archive})
			if err != nil {
				return nil, zerr.Wrap(err, "failed to resolve specimen archive")
			}
			container = filepath.ToSlash(archives[0])
			files = append(files, domain.FileRef{Path: archives[0], InstallPath: container})
		}

		roots, err := s.resolver.Resolve(spec.ExtractPaths)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to resolve extract paths")
		}

		for _, root := range roots {
			n := 0
			for p := range s.walker.WalkFiles(root, excludes) {
				if err := ctx.Err(); err != nil {
					return nil, zerr.Wrap(err, "file enumeration canceled")
				}
				files = append(files, fileRef(root, p, spec.InstallPrefix, container))
				n++
			}
			s.logger.Debug("extract path enumerated", "root", root, "files", n)
		}
	}
	return files, nil
}

func fileRef(root, p, prefix, container string) domain.FileRef {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		rel = filepath.Base(p)
	}
	rel = filepath.ToSlash(rel)

	ref := domain.FileRef{Path: p, InstallPath: filepath.ToSlash(p)}
	if prefix != "" {
		ref.InstallPath = path.Join(prefix, rel)
	}
	if container != "" {
		ref.Provenance = []domain.Provenance{{Container: container, Member: rel}}
	}
	return ref
}
