package scanner_test

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bom/internal/adapters/telemetry"
	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports/mocks"
	"go.trai.ch/bom/internal/engine/dispatch"
	"go.trai.ch/bom/internal/engine/infer"
	"go.trai.ch/bom/internal/engine/scanner"
	"go.uber.org/mock/gomock"
)

// fixtureCapability answers from a table keyed by file path.
type fixtureCapability struct {
	records map[string]*domain.ExtractionRecord
	panicOn string
}

func (c *fixtureCapability) Name() string  { return "fixture" }
func (c *fixtureCapability) Priority() int { return 100 }

func (c *fixtureCapability) Applies(domain.FileRef, domain.FileType) bool { return true }

func (c *fixtureCapability) Extract(_ context.Context, file domain.FileRef, _ domain.FileType) (*domain.ExtractionRecord, error) {
	if file.Path == c.panicOn {
		panic("corrupt fixture")
	}
	rec, ok := c.records[file.Path]
	if !ok {
		return nil, domain.ErrNotApplicable
	}
	cp := *rec
	return &cp, nil
}

func record(hash byte, name string, deps ...string) *domain.ExtractionRecord {
	rec := &domain.ExtractionRecord{
		Hashes: domain.ContentHashes{SHA256: strings.Repeat(string(hash), 64)},
		Names:  []string{name},
	}
	for _, d := range deps {
		rec.Dependencies = append(rec.Dependencies, domain.DependencyRef{Name: d})
	}
	return rec
}

func files(paths ...string) []domain.FileRef {
	out := make([]domain.FileRef, len(paths))
	for i, p := range paths {
		out[i] = domain.FileRef{Path: p, InstallPath: p}
	}
	return out
}

var fixtures = map[string]*domain.ExtractionRecord{
	"/usr/bin/app":       record('a', "app", "libfoo.so"),
	"/opt/a/libfoo.so":   record('b', "libfoo.so"),
	"/opt/b/libfoo.so":   record('c', "libfoo.so"),
	"/usr/bin/app-copy":  record('a', "app-copy", "libfoo.so"),
	"/usr/lib/liba.so":   record('d', "liba.so", "libb.so"),
	"/usr/lib/libb.so":   record('e', "libb.so", "liba.so"),
	"/usr/share/README":  {Names: []string{"README"}},
	"/usr/lib/libc.so.6": record('f', "libc.so.6"),
}

func newScanner(t *testing.T, capability *fixtureCapability) *scanner.Scanner {
	t.Helper()
	ctrl := gomock.NewController(t)
	classifier := mocks.NewMockClassifier(ctrl)
	classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(domain.FileTypeUnknown, nil).AnyTimes()
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()

	registry, err := dispatch.NewRegistry(capability)
	require.NoError(t, err)
	return scanner.New(
		dispatch.NewDispatcher(classifier, registry, log),
		infer.New(log),
		log,
		telemetry.NewNoOpTracer(),
	)
}

func opts(workers int) scanner.Options {
	return scanner.Options{
		Workers: workers,
		NewID:   domain.NewSequentialIDGenerator("E"),
		Now:     func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func diagKinds(diags []domain.Diagnostic) []domain.DiagnosticKind {
	var out []domain.DiagnosticKind
	for _, d := range diags {
		out = append(out, d.Kind)
	}
	return out
}

func TestScanner_AmbiguousLibraries(t *testing.T) {
	s := newScanner(t, &fixtureCapability{records: fixtures})

	res, err := s.Run(context.Background(), files("/usr/bin/app", "/opt/a/libfoo.so", "/opt/b/libfoo.so"), nil, opts(4))
	require.NoError(t, err)

	app, ok := res.Graph.EntryByHash(strings.Repeat("a", 64))
	require.True(t, ok)
	deps := 0
	for _, r := range res.Graph.Relationships() {
		if r.Kind == domain.DependsOn && r.From == app.ID {
			deps++
		}
	}
	assert.Equal(t, 2, deps)
	assert.Equal(t, []domain.DiagnosticKind{domain.DiagAmbiguousDependency}, diagKinds(res.Diagnostics))
	assert.Equal(t, scanner.Stats{Files: 3, Inserted: 3, Entries: 3, Relationships: 5}, res.Stats)
}

func TestScanner_SameContentMerges(t *testing.T) {
	s := newScanner(t, &fixtureCapability{records: fixtures})

	res, err := s.Run(context.Background(), files("/usr/bin/app", "/usr/bin/app-copy", "/opt/a/libfoo.so"), nil, opts(2))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Graph.Len())
	assert.Equal(t, 1, res.Stats.Merged)
	app, _ := res.Graph.EntryByHash(strings.Repeat("a", 64))
	assert.Equal(t, []string{"app", "app-copy"}, app.Names)
	assert.Equal(t, []string{"/usr/bin/app", "/usr/bin/app-copy"}, app.InstallPaths)
}

func TestScanner_CyclesAreTolerated(t *testing.T) {
	s := newScanner(t, &fixtureCapability{records: fixtures})

	res, err := s.Run(context.Background(), files("/usr/lib/liba.so", "/usr/lib/libb.so"), nil, opts(2))
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, 4, res.Graph.EdgeCount())
}

func TestScanner_NoIdentityAndPanics(t *testing.T) {
	s := newScanner(t, &fixtureCapability{records: fixtures, panicOn: "/usr/lib/libc.so.6"})

	res, err := s.Run(context.Background(), files("/usr/share/README", "/usr/lib/libc.so.6", "/opt/a/libfoo.so"), nil, opts(3))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Graph.Len())
	assert.Equal(t, []domain.DiagnosticKind{
		domain.DiagNoIdentityAvailable,
		domain.DiagExtractionFailure,
		domain.DiagNoIdentityAvailable,
	}, diagKinds(res.Diagnostics))
	assert.Equal(t, "/usr/share/README", res.Diagnostics[0].Path)
	assert.Equal(t, "fixture", res.Diagnostics[1].Capability)
}

func TestScanner_DeterministicAcrossWorkersAndOrder(t *testing.T) {
	paths := []string{"/usr/bin/app", "/opt/a/libfoo.so", "/opt/b/libfoo.so", "/usr/lib/liba.so", "/usr/lib/libb.so", "/usr/bin/app-copy"}
	reversed := slices.Clone(paths)
	slices.Reverse(reversed)

	s := newScanner(t, &fixtureCapability{records: fixtures})
	first, err := s.Run(context.Background(), files(paths...), nil, opts(1))
	require.NoError(t, err)
	second, err := s.Run(context.Background(), files(reversed...), nil, opts(8))
	require.NoError(t, err)

	assert.Equal(t, first.Graph.Fingerprint(), second.Graph.Fingerprint())
	assert.Equal(t, first.Stats, second.Stats)
}

func TestScanner_IncrementalMergeKeepsIdentifiers(t *testing.T) {
	s := newScanner(t, &fixtureCapability{records: fixtures})
	ctx := context.Background()

	ab, err := s.Run(ctx, files("/usr/bin/app", "/opt/a/libfoo.so"), nil, opts(2))
	require.NoError(t, err)
	b, _ := ab.Graph.EntryByHash(strings.Repeat("b", 64))
	before := ab.Graph.Fingerprint()

	abc, err := s.Run(ctx, files("/opt/a/libfoo.so", "/opt/b/libfoo.so"), ab.Graph, opts(2))
	require.NoError(t, err)

	b2, ok := abc.Graph.EntryByHash(strings.Repeat("b", 64))
	require.True(t, ok)
	assert.Equal(t, b.ID, b2.ID)
	assert.Equal(t, 3, abc.Graph.Len())
	assert.Equal(t, before, ab.Graph.Fingerprint(), "prior graph must not change")

	all, err := s.Run(ctx, files("/usr/bin/app", "/opt/a/libfoo.so", "/opt/b/libfoo.so"), nil, opts(2))
	require.NoError(t, err)
	assert.Equal(t, all.Graph.Fingerprint(), abc.Graph.Fingerprint())
}

func dependsOnHashes(g *domain.Graph, from domain.EntryID) []string {
	var out []string
	for _, r := range g.Relationships() {
		if r.From == from && r.Kind == domain.DependsOn {
			to, _ := g.Entry(r.To)
			out = append(out, to.Hashes.SHA256)
		}
	}
	slices.Sort(out)
	return out
}

func TestScanner_IncrementalScanPrefersLaterBetterMatch(t *testing.T) {
	app := func(ref domain.DependencyRef) *domain.ExtractionRecord {
		rec := record('a', "app")
		rec.Dependencies = []domain.DependencyRef{ref}
		return rec
	}

	tests := []struct {
		name   string
		fixed  map[string]*domain.ExtractionRecord
		first  []string
		second []string
		want   []string
	}{
		{
			name: "exact name replaces case-insensitive match",
			fixed: map[string]*domain.ExtractionRecord{
				"/usr/bin/app":       app(domain.DependencyRef{Name: "libfoo.so"}),
				"/usr/lib/LIBFOO.so": record('b', "LIBFOO.so"),
				"/usr/lib/libfoo.so": record('c', "libfoo.so"),
			},
			first:  []string{"/usr/bin/app", "/usr/lib/LIBFOO.so"},
			second: []string{"/usr/lib/libfoo.so"},
			want:   []string{strings.Repeat("c", 64)},
		},
		{
			name: "search path replaces name match",
			fixed: map[string]*domain.ExtractionRecord{
				"/usr/bin/app":           app(domain.DependencyRef{Name: "libbar.so", SearchPaths: []string{"/opt/app/lib"}}),
				"/usr/lib/libbar.so":     record('b', "libbar.so"),
				"/opt/app/lib/libbar.so": record('c', "libbar.so"),
			},
			first:  []string{"/usr/bin/app", "/usr/lib/libbar.so"},
			second: []string{"/opt/app/lib/libbar.so"},
			want:   []string{strings.Repeat("c", 64)},
		},
		{
			name: "unresolved dependency resolves later",
			fixed: map[string]*domain.ExtractionRecord{
				"/usr/bin/app":       app(domain.DependencyRef{Name: "libqux.so"}),
				"/usr/lib/libqux.so": record('b', "libqux.so"),
			},
			first:  []string{"/usr/bin/app"},
			second: []string{"/usr/lib/libqux.so"},
			want:   []string{strings.Repeat("b", 64)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScanner(t, &fixtureCapability{records: tt.fixed})
			ctx := context.Background()

			first, err := s.Run(ctx, files(tt.first...), nil, opts(2))
			require.NoError(t, err)
			second, err := s.Run(ctx, files(tt.second...), first.Graph, opts(2))
			require.NoError(t, err)
			onePass, err := s.Run(ctx, files(append(slices.Clone(tt.first), tt.second...)...), nil, opts(2))
			require.NoError(t, err)

			appEntry, ok := second.Graph.EntryByHash(strings.Repeat("a", 64))
			require.True(t, ok)
			assert.Equal(t, tt.want, dependsOnHashes(second.Graph, appEntry.ID))
			assert.Empty(t, appEntry.Unresolved)
			assert.Equal(t, onePass.Graph.Fingerprint(), second.Graph.Fingerprint())
		})
	}
}

func TestScanner_OmitUnrecognized(t *testing.T) {
	elf := func(hash byte, name string, deps ...string) *domain.ExtractionRecord {
		rec := record(hash, name, deps...)
		rec.FileType = domain.FileTypeELF
		return rec
	}
	fixed := map[string]*domain.ExtractionRecord{
		"/usr/bin/app":       elf('a', "app", "libfoo.so"),
		"/usr/lib/libfoo.so": elf('b', "libfoo.so"),
		"/usr/share/README":  record('c', "README"),
	}
	s := newScanner(t, &fixtureCapability{records: fixed})
	paths := files("/usr/bin/app", "/usr/lib/libfoo.so", "/usr/share/README")

	all, err := s.Run(context.Background(), paths, nil, opts(2))
	require.NoError(t, err)
	assert.Equal(t, 3, all.Graph.Len())
	assert.Zero(t, all.Stats.Omitted)

	o := opts(2)
	o.OmitUnrecognized = true
	known, err := s.Run(context.Background(), paths, nil, o)
	require.NoError(t, err)
	assert.Equal(t, 2, known.Graph.Len())
	assert.Equal(t, 1, known.Stats.Omitted)
	_, ok := known.Graph.EntryByHash(strings.Repeat("c", 64))
	assert.False(t, ok)
}

func TestScanner_Canceled(t *testing.T) {
	s := newScanner(t, &fixtureCapability{records: fixtures})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Run(ctx, files("/usr/bin/app", "/opt/a/libfoo.so"), nil, opts(2))
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestScanner_EmptyInput(t *testing.T) {
	s := newScanner(t, &fixtureCapability{records: fixtures})

	res, err := s.Run(context.Background(), nil, nil, opts(0))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Graph.Len())
	assert.Empty(t, res.Diagnostics)
}
