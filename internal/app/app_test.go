package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bom/internal/adapters/telemetry"
	"go.trai.ch/bom/internal/app"
	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports/mocks"
	"go.trai.ch/bom/internal/engine/dispatch"
	"go.trai.ch/bom/internal/engine/infer"
	"go.trai.ch/bom/internal/engine/scanner"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func sha(c byte) string { return strings.Repeat(string(c), 64) }

// namedHashCapability derives a fixed hash from the first byte of the file name.
type namedHashCapability struct{}

func (namedHashCapability) Name() string  { return "named" }
func (namedHashCapability) Priority() int { return 100 }

func (namedHashCapability) Applies(domain.FileRef, domain.FileType) bool { return true }

func (namedHashCapability) Extract(_ context.Context, f domain.FileRef, _ domain.FileType) (*domain.ExtractionRecord, error) {
	rec := &domain.ExtractionRecord{Hashes: domain.ContentHashes{SHA256: sha(f.Name()[0])}}
	if f.Name() == "app" {
		rec.Dependencies = []domain.DependencyRef{{Name: "bar.so"}}
	}
	return rec, nil
}

type fixture struct {
	app    *app.App
	loader *mocks.MockConfigLoader
	source *mocks.MockFileSource
	repo   *mocks.MockGraphRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()

	classifier := mocks.NewMockClassifier(ctrl)
	classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(domain.FileTypeUnknown, nil).AnyTimes()
	registry, err := dispatch.NewRegistry(namedHashCapability{})
	require.NoError(t, err)
	inferencer := infer.New(log)
	scan := scanner.New(dispatch.NewDispatcher(classifier, registry, log), inferencer, log, telemetry.NewNoOpTracer())

	f := &fixture{
		loader: mocks.NewMockConfigLoader(ctrl),
		source: mocks.NewMockFileSource(ctrl),
		repo:   mocks.NewMockGraphRepository(ctrl),
	}
	f.app = app.New(f.loader, f.source, scan, inferencer, f.repo, domain.NewSequentialIDGenerator("R"), log)
	return f
}

func refs(paths ...string) []domain.FileRef {
	out := make([]domain.FileRef, len(paths))
	for i, p := range paths {
		out[i] = domain.FileRef{Path: p, InstallPath: p}
	}
	return out
}

func TestApp_Generate_Deterministic(t *testing.T) {
	f := newFixture(t)
	cfg := &domain.ScanConfig{Workers: 2}
	f.loader.EXPECT().Load("bom.yaml").Return(cfg, nil)
	f.source.EXPECT().Files(gomock.Any(), cfg).Return(refs("/usr/bin/app", "/usr/lib/bar.so"), nil)

	var saved *domain.Snapshot
	f.repo.EXPECT().Save(gomock.Any(), "out.json", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, s *domain.Snapshot) error {
			saved = s
			return nil
		})

	res, err := f.app.Generate(context.Background(), app.GenerateOptions{
		ConfigPath:    "bom.yaml",
		Output:        "out.json",
		Deterministic: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.Entries)

	require.NotNil(t, saved)
	require.Len(t, saved.Entries, 2)
	for _, e := range saved.Entries {
		assert.True(t, strings.HasPrefix(string(e.ID), "SW-"), e.ID)
		assert.Equal(t, time.Unix(0, 0).UTC(), e.CaptureTime)
	}
	assert.Len(t, saved.Relationships, 3)
}

func TestApp_Generate_MergesIntoInputGraph(t *testing.T) {
	f := newFixture(t)
	prior := domain.NewGraph(domain.NewSequentialIDGenerator("OLD"))
	_, err := prior.Upsert(&domain.SoftwareEntry{ID: "KEEP", Hashes: domain.ContentHashes{SHA256: sha('b')}, Names: []string{"bar.so"}})
	require.NoError(t, err)

	cfg := &domain.ScanConfig{}
	f.loader.EXPECT().Load("bom.yaml").Return(cfg, nil)
	f.source.EXPECT().Files(gomock.Any(), cfg).Return(refs("/usr/lib/bar.so", "/usr/bin/cli"), nil)
	f.repo.EXPECT().Load(gomock.Any(), "prior.json").Return(prior.Snapshot(), nil)
	f.repo.EXPECT().Save(gomock.Any(), "out.json", gomock.Any()).Return(nil)

	res, err := f.app.Generate(context.Background(), app.GenerateOptions{
		ConfigPath: "bom.yaml",
		InputGraph: "prior.json",
		Output:     "out.json",
		Workers:    1,
	})
	require.NoError(t, err)

	kept, ok := res.Graph.EntryByHash(sha('b'))
	require.True(t, ok)
	assert.Equal(t, domain.EntryID("KEEP"), kept.ID)
	assert.Equal(t, []string{"/usr/lib/bar.so"}, kept.InstallPaths)
	assert.Equal(t, 1, res.Stats.Merged)
}

func TestApp_Generate_MissingInputGraphStartsFresh(t *testing.T) {
	f := newFixture(t)
	cfg := &domain.ScanConfig{}
	f.loader.EXPECT().Load("bom.yaml").Return(cfg, nil)
	f.source.EXPECT().Files(gomock.Any(), cfg).Return(refs("/usr/bin/cli"), nil)
	f.repo.EXPECT().Load(gomock.Any(), "prior.json").Return(nil, zerr.Wrap(domain.ErrGraphNotFound, "no graph stored"))
	f.repo.EXPECT().Save(gomock.Any(), "out.json", gomock.Any()).Return(nil)

	res, err := f.app.Generate(context.Background(), app.GenerateOptions{
		ConfigPath: "bom.yaml", InputGraph: "prior.json", Output: "out.json",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Graph.Len())
}

func TestApp_Generate_ConfigError(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load("bom.yaml").Return(nil, zerr.Wrap(domain.ErrInvalidConfig, "no specimens"))

	_, err := f.app.Generate(context.Background(), app.GenerateOptions{ConfigPath: "bom.yaml", Output: "out.json"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}

func TestApp_Generate_SaveError(t *testing.T) {
	f := newFixture(t)
	cfg := &domain.ScanConfig{}
	f.loader.EXPECT().Load("bom.yaml").Return(cfg, nil)
	f.source.EXPECT().Files(gomock.Any(), cfg).Return(nil, nil)
	f.repo.EXPECT().Save(gomock.Any(), "out.json", gomock.Any()).Return(errors.New("disk full"))

	_, err := f.app.Generate(context.Background(), app.GenerateOptions{ConfigPath: "bom.yaml", Output: "out.json"})
	require.Error(t, err)

	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, "out.json", zErr.Metadata()["path"])
}

func graphOf(t *testing.T, prefix string, entries ...*domain.SoftwareEntry) *domain.Snapshot {
	t.Helper()
	g := domain.NewGraph(domain.NewSequentialIDGenerator(prefix))
	for _, e := range entries {
		_, err := g.Upsert(e)
		require.NoError(t, err)
	}
	for e := range g.Entries() {
		require.NoError(t, g.AddRelationship(domain.Relationship{From: domain.DocumentID, To: e.ID, Kind: domain.Describes}))
	}
	return g.Snapshot()
}

func TestApp_Find(t *testing.T) {
	f := newFixture(t)
	f.repo.EXPECT().Load(gomock.Any(), "graph.db").Return(graphOf(t, "E",
		&domain.SoftwareEntry{Hashes: domain.ContentHashes{SHA256: sha('a')}, Names: []string{"libssl.so.3"}},
		&domain.SoftwareEntry{Hashes: domain.ContentHashes{SHA256: sha('b')}, Names: []string{"libcrypto.so.3"}},
	), nil).Times(2)

	found, err := f.app.Find(context.Background(), "graph.db", domain.Query{Name: "libssl*"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, sha('a'), found[0].Hashes.SHA256)

	_, err = f.app.Find(context.Background(), "graph.db", domain.Query{Name: "[broken"})
	require.Error(t, err)
}

func TestApp_Merge(t *testing.T) {
	f := newFixture(t)
	archive := &domain.SoftwareEntry{
		Hashes: domain.ContentHashes{SHA256: sha('a')}, Names: []string{"pkg.zip"}, InstallPaths: []string{"/pkg.zip"},
	}
	member := &domain.SoftwareEntry{
		Hashes: domain.ContentHashes{SHA256: sha('b')}, Names: []string{"lib.so"},
		Provenance: []domain.Provenance{{Container: "/pkg.zip", Member: "lib.so"}},
	}
	left := graphOf(t, "L", member)
	left.Diagnostics = []domain.Diagnostic{
		domain.NewDiagnostic(domain.DiagUnresolvedContainer, "container /pkg.zip is not in the graph"),
		domain.NewDiagnostic(domain.DiagExtractionFailure, "truncated"),
	}
	right := graphOf(t, "R", archive)
	right.Diagnostics = []domain.Diagnostic{domain.NewDiagnostic(domain.DiagExtractionFailure, "truncated")}

	f.repo.EXPECT().Load(gomock.Any(), "left.json").Return(left, nil)
	f.repo.EXPECT().Load(gomock.Any(), "right.json").Return(right, nil)
	f.repo.EXPECT().Save(gomock.Any(), "merged.db", gomock.Any()).Return(nil)

	merged, err := f.app.Merge(context.Background(), []string{"left.json", "right.json"}, "merged.db")
	require.NoError(t, err)

	require.Len(t, merged.Entries, 2)
	ids := map[string]domain.EntryID{}
	for _, e := range merged.Entries {
		ids[e.Hashes.SHA256] = e.ID
	}
	assert.ElementsMatch(t, []domain.Relationship{
		{From: domain.DocumentID, To: ids[sha('a')], Kind: domain.Describes},
		{From: ids[sha('a')], To: ids[sha('b')], Kind: domain.Contains},
	}, merged.Relationships)
	assert.Equal(t, []domain.Diagnostic{domain.NewDiagnostic(domain.DiagExtractionFailure, "truncated")}, merged.Diagnostics)
}

func TestApp_Merge_NoInputs(t *testing.T) {
	f := newFixture(t)
	_, err := f.app.Merge(context.Background(), nil, "out.json")
	assert.True(t, errors.Is(err, domain.ErrNoInputs))
}

func TestApp_Generate_OmitUnrecognized(t *testing.T) {
	tests := []struct {
		name   string
		config bool
		flag   bool
	}{
		{name: "from configuration", config: true},
		{name: "from options", flag: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			cfg := &domain.ScanConfig{OmitUnrecognized: tt.config}
			f.loader.EXPECT().Load("bom.yaml").Return(cfg, nil)
			f.source.EXPECT().Files(gomock.Any(), cfg).Return(refs("/usr/bin/app", "/usr/lib/bar.so"), nil)
			f.repo.EXPECT().Save(gomock.Any(), "out.json", gomock.Any()).Return(nil)

			res, err := f.app.Generate(context.Background(), app.GenerateOptions{
				ConfigPath:       "bom.yaml",
				Output:           "out.json",
				OmitUnrecognized: tt.flag,
			})
			require.NoError(t, err)
			assert.Equal(t, 0, res.Stats.Entries)
			assert.Equal(t, 2, res.Stats.Omitted)
		})
	}
}

func hashIDs(s *domain.Snapshot) map[string]domain.EntryID {
	ids := make(map[string]domain.EntryID, len(s.Entries))
	for _, e := range s.Entries {
		ids[e.Hashes.SHA256] = e.ID
	}
	return ids
}

func TestApp_Add(t *testing.T) {
	f := newFixture(t)
	prior := graphOf(t, "G",
		&domain.SoftwareEntry{
			Hashes: domain.ContentHashes{SHA256: sha('a')}, Names: []string{"pkg.zip"}, InstallPaths: []string{"/pkg.zip"},
		},
		&domain.SoftwareEntry{
			Hashes: domain.ContentHashes{SHA256: sha('b')}, Names: []string{"tool"},
			Provenance: []domain.Provenance{{Container: "/pkg.zip", Member: "bin/tool"}},
		},
		&domain.SoftwareEntry{
			Hashes: domain.ContentHashes{SHA256: sha('d')}, Names: []string{"libd.so"}, InstallPaths: []string{"/usr/lib/libd.so"},
		},
	)
	prior.Diagnostics = []domain.Diagnostic{domain.NewDiagnostic(domain.DiagExtractionFailure, "truncated")}
	before := hashIDs(prior)

	f.repo.EXPECT().Load(gomock.Any(), "graph.json").Return(prior, nil)
	var saved *domain.Snapshot
	f.repo.EXPECT().Save(gomock.Any(), "graph.json", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, s *domain.Snapshot) error {
			saved = s
			return nil
		})

	out, err := f.app.Add(context.Background(), app.AddOptions{
		Input:   "graph.json",
		Files:   []string{"/opt/cli"},
		Entries: []*domain.SoftwareEntry{{Hashes: domain.ContentHashes{SHA256: sha('e')}, Names: []string{"extra"}}},
		Relationships: []domain.Relationship{
			{From: before[sha('b')], To: before[sha('d')], Kind: domain.DependsOn},
		},
		InstallPrefixes: []app.InstallPrefix{{Container: "/pkg.zip", Prefix: "/usr/local"}},
	})
	require.NoError(t, err)
	require.Same(t, out, saved)

	require.Len(t, out.Entries, 5)
	ids := hashIDs(out)
	for hash, id := range before {
		assert.Equal(t, id, ids[hash], "existing identifiers are kept")
	}
	assert.Contains(t, ids, sha('c'))
	assert.Contains(t, ids, sha('e'))

	for _, e := range out.Entries {
		if e.ID == ids[sha('b')] {
			assert.Equal(t, []string{"/usr/local/bin/tool"}, e.InstallPaths)
		}
	}
	assert.Contains(t, out.Relationships, domain.Relationship{From: ids[sha('b')], To: ids[sha('d')], Kind: domain.DependsOn})
	assert.Contains(t, out.Relationships, domain.Relationship{From: ids[sha('a')], To: ids[sha('b')], Kind: domain.Contains})
	assert.Equal(t, []domain.Diagnostic{domain.NewDiagnostic(domain.DiagExtractionFailure, "truncated")}, out.Diagnostics)
}

func TestApp_Add_ContainsRelationshipSurvivesInference(t *testing.T) {
	f := newFixture(t)
	prior := graphOf(t, "G",
		&domain.SoftwareEntry{
			Hashes: domain.ContentHashes{SHA256: sha('a')}, Names: []string{"setup.msi"}, InstallPaths: []string{"/dl/setup.msi"},
		},
		&domain.SoftwareEntry{
			Hashes: domain.ContentHashes{SHA256: sha('b')}, Names: []string{"app.exe"}, InstallPaths: []string{"/opt/app.exe"},
		},
	)
	before := hashIDs(prior)
	f.repo.EXPECT().Load(gomock.Any(), "graph.json").Return(prior, nil)
	f.repo.EXPECT().Save(gomock.Any(), "out.json", gomock.Any()).Return(nil)

	out, err := f.app.Add(context.Background(), app.AddOptions{
		Input:  "graph.json",
		Output: "out.json",
		Relationships: []domain.Relationship{
			{From: before[sha('a')], To: before[sha('b')], Kind: domain.Contains},
		},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []domain.Relationship{
		{From: domain.DocumentID, To: before[sha('a')], Kind: domain.Describes},
		{From: before[sha('a')], To: before[sha('b')], Kind: domain.Contains},
	}, out.Relationships)

	log := mocks.NewMockLogger(gomock.NewController(t))
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	g, err := domain.RestoreGraph(out, domain.NewSequentialIDGenerator("X"))
	require.NoError(t, err)
	_, err = infer.New(log).Infer(g)
	require.NoError(t, err)
	assert.True(t, g.HasRelationship(domain.Relationship{From: before[sha('a')], To: before[sha('b')], Kind: domain.Contains}))
}

func TestApp_Add_RejectsInvalidRelationships(t *testing.T) {
	prior := func(t *testing.T) *domain.Snapshot {
		return graphOf(t, "G",
			&domain.SoftwareEntry{Hashes: domain.ContentHashes{SHA256: sha('a')}, Names: []string{"a"}},
			&domain.SoftwareEntry{Hashes: domain.ContentHashes{SHA256: sha('b')}, Names: []string{"b"}},
		)
	}
	tests := []struct {
		name string
		rel  func(ids map[string]domain.EntryID) domain.Relationship
		want error
	}{
		{
			name: "unknown target",
			rel: func(ids map[string]domain.EntryID) domain.Relationship {
				return domain.Relationship{From: ids[sha('a')], To: "MISSING", Kind: domain.DependsOn}
			},
			want: domain.ErrUnknownEntry,
		},
		{
			name: "container without install path",
			rel: func(ids map[string]domain.EntryID) domain.Relationship {
				return domain.Relationship{From: ids[sha('a')], To: ids[sha('b')], Kind: domain.Contains}
			},
			want: domain.ErrInvalidRelationship,
		},
		{
			name: "describes",
			rel: func(ids map[string]domain.EntryID) domain.Relationship {
				return domain.Relationship{From: ids[sha('a')], To: ids[sha('b')], Kind: domain.Describes}
			},
			want: domain.ErrInvalidRelationship,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			snapshot := prior(t)
			f.repo.EXPECT().Load(gomock.Any(), "graph.json").Return(snapshot, nil)

			_, err := f.app.Add(context.Background(), app.AddOptions{
				Input:         "graph.json",
				Relationships: []domain.Relationship{tt.rel(hashIDs(snapshot))},
			})
			assert.True(t, errors.Is(err, tt.want), err)
		})
	}
}

func TestApp_Add_MissingGraphStartsEmpty(t *testing.T) {
	f := newFixture(t)
	f.repo.EXPECT().Load(gomock.Any(), "new.json").Return(nil, zerr.Wrap(domain.ErrGraphNotFound, "no graph stored"))
	f.repo.EXPECT().Save(gomock.Any(), "new.json", gomock.Any()).Return(nil)

	out, err := f.app.Add(context.Background(), app.AddOptions{
		Input:   "new.json",
		Entries: []*domain.SoftwareEntry{{Hashes: domain.ContentHashes{SHA256: sha('e')}, Names: []string{"extra"}}},
	})
	require.NoError(t, err)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, []string{"extra"}, out.Entries[0].Names)
}
