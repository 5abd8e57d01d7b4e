package app

import (
	"context"
	"errors"
	"path"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/engine/scanner"
	"go.trai.ch/zerr"
)

// InstallPrefix maps the members of a container onto an install location.
type InstallPrefix struct {
	// Container is the install path of the archive or installer.
	Container string
	// Prefix is the directory its members are installed under.
	Prefix string
}

// AddOptions describe manual additions to an existing graph.
type AddOptions struct {
	// Input is the graph to extend. A missing graph starts empty.
	Input string
	// Output is where the result is written. Empty writes back to Input.
	Output string
	// Files are scanned and merged in like a generate run.
	Files []string
	// Entries are merged in as given.
	Entries []*domain.SoftwareEntry
	// Relationships between existing entries. Only DEPENDS_ON and CONTAINS are accepted.
	Relationships []domain.Relationship
	// InstallPrefixes add install paths to the members of the named containers.
	InstallPrefixes []InstallPrefix
}

// Add extends a graph with scanned files, literal entries, manual relationships and
// install paths, then re-infers its relationships.
//
// Manual relationships are stored on the entries themselves, as a dependency pinned
// to the target hash or as a provenance tuple naming the source container, so later
// inference passes keep them.
func (a *App) Add(ctx context.Context, opts AddOptions) (*domain.Snapshot, error) {
	output := opts.Output
	if output == "" {
		output = opts.Input
	}

	var diags []domain.Diagnostic
	var g *domain.Graph
	prior, err := a.loadSnapshot(ctx, opts.Input)
	switch {
	case errors.Is(err, domain.ErrGraphNotFound):
		a.logger.Warn("input graph not found, starting from scratch", "path", opts.Input)
		g = domain.NewGraph(a.newID)
	case err != nil:
		return nil, err
	default:
		g, err = domain.RestoreGraph(prior, a.newID)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to restore graph"), "path", opts.Input)
		}
		diags = append(diags, prior.Diagnostics...)
	}

	for _, e := range opts.Entries {
		if _, err := g.Upsert(e); err != nil {
			return nil, zerr.Wrap(err, "failed to add entry")
		}
	}

	if len(opts.Files) > 0 {
		refs := make([]domain.FileRef, len(opts.Files))
		for i, f := range opts.Files {
			refs[i] = domain.FileRef{Path: f}
		}
		res, err := a.scanner.Run(ctx, refs, g, scanner.Options{NewID: a.newID})
		if err != nil {
			return nil, zerr.Wrap(err, "scan failed")
		}
		g = res.Graph
		diags = append(diags, res.Diagnostics...)
	}

	for _, r := range opts.Relationships {
		if err := addRelationship(g, r); err != nil {
			return nil, err
		}
	}

	for _, p := range opts.InstallPrefixes {
		if err := applyInstallPrefix(g, p); err != nil {
			return nil, err
		}
	}

	inferDiags, err := a.inferencer.Infer(g)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to infer relationships")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	snapshot := g.Snapshot()
	snapshot.Diagnostics = append(dedupDiagnostics(diags), inferDiags...)
	if err := a.repository.Save(ctx, output, snapshot); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to save graph"), "path", output)
	}
	a.logger.Info("graph extended", "entries", g.Len(), "relationships", g.EdgeCount(), "path", output)
	return snapshot, nil
}

func addRelationship(g *domain.Graph, r domain.Relationship) error {
	from, ok := g.Entry(r.From)
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrUnknownEntry, "relationship source not in graph"), "entry_id", r.From.String())
	}
	to, ok := g.Entry(r.To)
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrUnknownEntry, "relationship target not in graph"), "entry_id", r.To.String())
	}

	switch r.Kind {
	case domain.DependsOn:
		ref := domain.DependencyRef{SHA256: to.Hashes.SHA256}
		if len(to.Names) > 0 {
			ref.Name = to.Names[0]
		}
		_, err := g.Upsert(&domain.SoftwareEntry{Hashes: from.Hashes, Dependencies: []domain.DependencyRef{ref}})
		return err
	case domain.Contains:
		if len(from.InstallPaths) == 0 {
			return zerr.With(zerr.Wrap(domain.ErrInvalidRelationship, "container has no install path"), "entry_id", r.From.String())
		}
		var member string
		if len(to.Names) > 0 {
			member = to.Names[0]
		}
		prov := domain.Provenance{Container: from.InstallPaths[0], Member: member}
		_, err := g.Upsert(&domain.SoftwareEntry{Hashes: to.Hashes, Provenance: []domain.Provenance{prov}})
		return err
	default:
		return zerr.With(zerr.Wrap(domain.ErrInvalidRelationship, "only DEPENDS_ON and CONTAINS can be added"), "kind", string(r.Kind))
	}
}

func applyInstallPrefix(g *domain.Graph, p InstallPrefix) error {
	var updates []*domain.SoftwareEntry
	for e := range g.Entries() {
		var paths []string
		for _, prov := range e.Provenance {
			if prov.Container == p.Container && prov.Member != "" {
				paths = append(paths, path.Join(p.Prefix, prov.Member))
			}
		}
		if len(paths) > 0 {
			updates = append(updates, &domain.SoftwareEntry{Hashes: e.Hashes, InstallPaths: paths})
		}
	}
	for _, u := range updates {
		if _, err := g.Upsert(u); err != nil {
			return zerr.Wrap(err, "failed to add install path")
		}
	}
	return nil
}
