// Package extract contains the built-in capabilities that read metadata from files.
package extract

import (
	"context"

	"go.trai.ch/bom/internal/adapters/fs"
	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
)

// Built-in capability names.
const (
	HashName      = "hash"
	ELFName       = "elf"
	PEName        = "pe"
	JavaClassName = "javaclass"
)

var _ ports.Capability = (*HashCapability)(nil)

// HashCapability applies to every file. It supplies the content digests that give
// an entry its identity, plus the names, paths and provenance known from the scan.
type HashCapability struct {
	hasher *fs.Hasher
}

// NewHashCapability creates a HashCapability.
func NewHashCapability(hasher *fs.Hasher) *HashCapability {
	return &HashCapability{hasher: hasher}
}

// Name implements ports.Capability.
func (c *HashCapability) Name() string { return HashName }

// Priority implements ports.Capability.
func (c *HashCapability) Priority() int { return 100 }

// Applies implements ports.Capability.
func (c *HashCapability) Applies(_ domain.FileRef, _ domain.FileType) bool { return true }

// Extract implements ports.Capability.
func (c *HashCapability) Extract(ctx context.Context, file domain.FileRef, ft domain.FileType) (*domain.ExtractionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hashes, size, err := c.hasher.HashFile(file.Path)
	if err != nil {
		return nil, err
	}
	return &domain.ExtractionRecord{
		Hashes:       hashes,
		Names:        []string{file.Name()},
		InstallPaths: []string{file.Target()},
		Size:         size,
		FileType:     ft,
		Provenance:   file.Provenance,
	}, nil
}
