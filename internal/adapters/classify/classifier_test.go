package classify_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bom/internal/adapters/classify"
	"go.trai.ch/bom/internal/core/domain"
)

func TestSniff(t *testing.T) {
	tarHeader := make([]byte, 512)
	copy(tarHeader[257:], "ustar")

	tests := []struct {
		name   string
		header []byte
		file   string
		want   domain.FileType
	}{
		{"elf", []byte{0x7f, 'E', 'L', 'F', 2, 1}, "libfoo.so", domain.FileTypeELF},
		{"pe", []byte("MZ\x90\x00"), "app.exe", domain.FileTypePE},
		{"ole", []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}, "doc.xls", domain.FileTypeOLE},
		{"msi", []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}, "Setup.MSI", domain.FileTypeMSI},
		{"rpm", []byte{0xed, 0xab, 0xee, 0xdb, 3, 0}, "pkg.rpm", domain.FileTypeRPM},
		{"zip", []byte("PK\x03\x04rest"), "lib.jar", domain.FileTypeZIP},
		{"gzip", []byte{0x1f, 0x8b, 8}, "a.tar.gz", domain.FileTypeGZIP},
		{"tar", tarHeader, "a.tar", domain.FileTypeTAR},
		{"java class", []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 52}, "Main.class", domain.FileTypeJavaClass},
		{"mach-o fat", []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 2}, "tool", domain.FileTypeMachO},
		{"mach-o 64", []byte{0xcf, 0xfa, 0xed, 0xfe, 7, 0}, "tool", domain.FileTypeMachO},
		{"script", []byte("#!/bin/sh\n"), "run.sh", domain.FileTypeScript},
		{"text", []byte("hello world"), "README", domain.FileTypeUnknown},
		{"empty", nil, "empty", domain.FileTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify.Sniff(tt.header, tt.file))
		})
	}
}

func TestClassifier_Classify(t *testing.T) {
	c, err := classify.New(8)
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "libfoo.so")
	require.NoError(t, os.WriteFile(file, []byte{0x7f, 'E', 'L', 'F'}, 0o600))

	ft, err := c.Classify(context.Background(), domain.FileRef{Path: file})
	require.NoError(t, err)
	assert.Equal(t, domain.FileTypeELF, ft)

	// Rewriting the content changes size and mtime, so the cached result is not reused.
	require.NoError(t, os.WriteFile(file, []byte("#!/bin/sh\necho hi\n"), 0o600))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(file, later, later))

	ft, err = c.Classify(context.Background(), domain.FileRef{Path: file})
	require.NoError(t, err)
	assert.Equal(t, domain.FileTypeScript, ft)
}

func TestClassifier_Classify_Missing(t *testing.T) {
	c, err := classify.New(0)
	require.NoError(t, err)

	ft, err := c.Classify(context.Background(), domain.FileRef{Path: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.Equal(t, domain.FileTypeUnknown, ft)
}
