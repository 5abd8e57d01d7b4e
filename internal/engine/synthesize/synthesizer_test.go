package synthesize_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/engine/synthesize"
)

const (
	shaA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	shaB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newSynthesizer() *synthesize.Synthesizer {
	return synthesize.New(func() time.Time { return fixedNow })
}

func TestSynthesize_MergesRecordsByPriority(t *testing.T) {
	file := domain.FileRef{
		Path:        "/scan/lib/libfoo.so.1",
		InstallPath: "/usr/lib/libfoo.so.1",
		Provenance:  []domain.Provenance{{Container: "/pkg.tar", Member: "lib/libfoo.so.1"}},
	}
	records := []*domain.ExtractionRecord{
		{
			Capability:   "elf",
			Priority:     50,
			Names:        []string{"libfoo.so.1"},
			FileType:     domain.FileTypeELF,
			Attributes:   domain.Attributes{Architecture: "x86_64", Vendor: "elf-vendor", Capabilities: []string{"relro", "nx"}},
			Dependencies: []domain.DependencyRef{{Name: "libc.so.6"}},
		},
		{
			Capability:   "hash",
			Priority:     100,
			Hashes:       domain.ContentHashes{SHA256: " " + shaA + " ", MD5: "ABCDEF0123456789ABCDEF0123456789"},
			Names:        []string{"libfoo.so.1"},
			InstallPaths: []string{"/usr/lib/libfoo.so.1"},
			Size:         1024,
		},
		{
			Capability: "vendorinfo",
			Priority:   60,
			Attributes: domain.Attributes{Vendor: "Acme", Capabilities: []string{"nx"}},
			Size:       99,
		},
	}

	entry, diags := newSynthesizer().Synthesize(file, domain.FileTypeELF, records)
	require.NotNil(t, entry)
	assert.Empty(t, diags)

	assert.Equal(t, shaA, entry.Hashes.SHA256)
	assert.Equal(t, "abcdef0123456789abcdef0123456789", entry.Hashes.MD5)
	assert.Equal(t, []string{"libfoo.so.1"}, entry.Names)
	assert.Equal(t, []string{"/usr/lib/libfoo.so.1"}, entry.InstallPaths)
	assert.Equal(t, int64(1024), entry.Size)
	assert.Equal(t, domain.FileTypeELF, entry.FileType)
	assert.Equal(t, "Acme", entry.Attributes.Vendor)
	assert.Equal(t, "x86_64", entry.Attributes.Architecture)
	assert.Equal(t, []string{"nx", "relro"}, entry.Attributes.Capabilities)
	assert.Equal(t, []domain.DependencyRef{{Name: "libc.so.6"}}, entry.Dependencies)
	assert.Equal(t, file.Provenance, entry.Provenance)
	assert.Equal(t, fixedNow, entry.CaptureTime)
	assert.Empty(t, entry.ID)
}

func TestSynthesize_NoStrongHash(t *testing.T) {
	tests := []struct {
		name      string
		records   []*domain.ExtractionRecord
		wantDiags []domain.DiagnosticKind
	}{
		{
			name:      "zero records",
			wantDiags: []domain.DiagnosticKind{domain.DiagNoIdentityAvailable},
		},
		{
			name: "legacy hashes only",
			records: []*domain.ExtractionRecord{
				{Capability: "legacy", Hashes: domain.ContentHashes{MD5: "0123456789abcdef0123456789abcdef"}},
			},
			wantDiags: []domain.DiagnosticKind{domain.DiagNoIdentityAvailable},
		},
		{
			name: "malformed strong hash",
			records: []*domain.ExtractionRecord{
				{Capability: "hash", Hashes: domain.ContentHashes{SHA256: "xyz"}},
			},
			wantDiags: []domain.DiagnosticKind{domain.DiagExtractionFailure, domain.DiagNoIdentityAvailable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, diags := newSynthesizer().Synthesize(domain.FileRef{Path: "/scan/x"}, domain.FileTypeUnknown, tt.records)
			assert.Nil(t, entry)

			var kinds []domain.DiagnosticKind
			for _, d := range diags {
				kinds = append(kinds, d.Kind)
				assert.Equal(t, "/scan/x", d.Path)
			}
			assert.Equal(t, tt.wantDiags, kinds)
		})
	}
}

func TestSynthesize_ConflictingStrongHashes(t *testing.T) {
	records := []*domain.ExtractionRecord{
		{Capability: "rogue", Priority: 10, Hashes: domain.ContentHashes{SHA256: shaB, SHA1: "1111111111111111111111111111111111111111"}},
		{Capability: "hash", Priority: 100, Hashes: domain.ContentHashes{SHA256: shaA}},
	}

	entry, diags := newSynthesizer().Synthesize(domain.FileRef{Path: "/scan/app"}, domain.FileTypePE, records)
	require.NotNil(t, entry)
	assert.Equal(t, shaA, entry.Hashes.SHA256)
	assert.Empty(t, entry.Hashes.SHA1)

	require.Len(t, diags, 1)
	assert.Equal(t, domain.DiagExtractionFailure, diags[0].Kind)
	assert.Equal(t, "rogue", diags[0].Capability)
	assert.Contains(t, diags[0].Message, "hash")
}

func TestSynthesize_FallsBackToFileContext(t *testing.T) {
	records := []*domain.ExtractionRecord{{Capability: "hash", Priority: 100, Hashes: domain.ContentHashes{SHA256: shaA}}}

	entry, _ := newSynthesizer().Synthesize(domain.FileRef{Path: "/scan/bin/tool"}, domain.FileTypeScript, records)
	require.NotNil(t, entry)

	assert.Equal(t, []string{"tool"}, entry.Names)
	assert.Equal(t, []string{"/scan/bin/tool"}, entry.InstallPaths)
	assert.Equal(t, domain.FileTypeScript, entry.FileType)
}

func TestSynthesize_HintsFillOnlyEmptyFields(t *testing.T) {
	records := []*domain.ExtractionRecord{
		{
			Capability: "hash",
			Priority:   100,
			Hashes:     domain.ContentHashes{SHA256: shaA},
			Attributes: domain.Attributes{Version: "2.0"},
			Hints: []domain.FieldHint{
				{Field: domain.AttrProduct, Value: "first", Confidence: 0.5},
				{Field: domain.AttrVersion, Value: "9.9", Confidence: 1},
			},
		},
		{
			Capability: "guess",
			Priority:   10,
			Hints: []domain.FieldHint{
				{Field: domain.AttrProduct, Value: "tie", Confidence: 0.5},
				{Field: domain.AttrVendor, Value: "low", Confidence: 0.1},
				{Field: domain.AttrVendor, Value: "high", Confidence: 0.9},
				{Field: "pe.company", Value: "Acme Corp", Confidence: 0.2},
			},
		},
	}

	entry, diags := newSynthesizer().Synthesize(domain.FileRef{Path: "/scan/a"}, domain.FileTypeUnknown, records)
	require.NotNil(t, entry)
	assert.Empty(t, diags)

	assert.Equal(t, "2.0", entry.Attributes.Version)
	assert.Equal(t, "first", entry.Attributes.Product)
	assert.Equal(t, "high", entry.Attributes.Vendor)
	assert.Equal(t, "Acme Corp", entry.Attributes.Extensions["pe.company"])
}
