package extract

import (
	"context"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/zerr"
)

var peArchitectures = map[uint16]string{
	pe.IMAGE_FILE_MACHINE_I386:  "x86",
	pe.IMAGE_FILE_MACHINE_AMD64: "x86_64",
	pe.IMAGE_FILE_MACHINE_ARM64: "arm64",
	pe.IMAGE_FILE_MACHINE_ARMNT: "arm",
}

var peHardening = []struct {
	flag uint16
	name string
}{
	{pe.IMAGE_DLLCHARACTERISTICS_DYNAMIC_BASE, "aslr"},
	{pe.IMAGE_DLLCHARACTERISTICS_HIGH_ENTROPY_VA, "high-entropy-va"},
	{pe.IMAGE_DLLCHARACTERISTICS_NX_COMPAT, "nx"},
	{pe.IMAGE_DLLCHARACTERISTICS_GUARD_CF, "cfg"},
}

var _ ports.Capability = (*PECapability)(nil)

// PECapability reads COFF and optional headers and the import table of PE files.
type PECapability struct{}

// NewPECapability creates a PECapability.
func NewPECapability() *PECapability { return &PECapability{} }

// Name implements ports.Capability.
func (c *PECapability) Name() string { return PEName }

// Priority implements ports.Capability.
func (c *PECapability) Priority() int { return 50 }

// Applies implements ports.Capability.
func (c *PECapability) Applies(_ domain.FileRef, ft domain.FileType) bool {
	return ft == domain.FileTypePE
}

// Extract implements ports.Capability.
func (c *PECapability) Extract(ctx context.Context, file domain.FileRef, _ domain.FileType) (*domain.ExtractionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := pe.Open(file.Path)
	if err != nil {
		signed, sigErr := hasPESignature(file.Path)
		if sigErr == nil && !signed {
			// A bare MZ stub (DOS executable) has no PE header.
			return nil, zerr.With(zerr.Wrap(domain.ErrNotApplicable, err.Error()), "path", file.Path)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to parse PE headers"), "path", file.Path)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	rec := &domain.ExtractionRecord{FileType: domain.FileTypePE}
	arch, ok := peArchitectures[f.Machine]
	if !ok {
		arch = "unknown"
	}
	rec.Attributes.Architecture = arch

	kind := "exe"
	if f.Characteristics&pe.IMAGE_FILE_DLL != 0 {
		kind = "dll"
	}
	rec.Attributes.Extensions = map[string]string{"pe.kind": kind}

	var dllChars, subsystem uint16
	var entry uint32
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		dllChars, subsystem, entry = oh.DllCharacteristics, oh.Subsystem, oh.AddressOfEntryPoint
	case *pe.OptionalHeader64:
		dllChars, subsystem, entry = oh.DllCharacteristics, oh.Subsystem, oh.AddressOfEntryPoint
	}
	for _, h := range peHardening {
		if dllChars&h.flag != 0 {
			rec.Attributes.Capabilities = append(rec.Attributes.Capabilities, h.name)
		}
	}
	if s := peSubsystem(subsystem); s != "" {
		rec.Attributes.Extensions["pe.subsystem"] = s
	}
	if entry != 0 {
		rec.Attributes.EntryPoints = []string{fmt.Sprintf("rva:0x%08x", entry)}
	}

	if stem := strings.TrimSuffix(file.Name(), path.Ext(file.Name())); stem != "" {
		rec.Hints = append(rec.Hints, domain.FieldHint{Field: domain.AttrProduct, Value: stem, Confidence: 0.1})
	}

	libs, err := f.ImportedLibraries()
	if err != nil {
		return rec, nil
	}
	// The loader looks next to the importing module first.
	search := []string{path.Dir(file.Target())}
	for _, lib := range libs {
		rec.Dependencies = domain.AppendDependencies(rec.Dependencies, domain.DependencyRef{
			Name:         lib,
			Architecture: arch,
			SearchPaths:  search,
		})
	}
	return rec, nil
}

func peSubsystem(s uint16) string {
	switch s {
	case pe.IMAGE_SUBSYSTEM_NATIVE:
		return "native"
	case pe.IMAGE_SUBSYSTEM_WINDOWS_GUI:
		return "gui"
	case pe.IMAGE_SUBSYSTEM_WINDOWS_CUI:
		return "console"
	case pe.IMAGE_SUBSYSTEM_EFI_APPLICATION:
		return "efi"
	default:
		return ""
	}
}

// hasPESignature reports whether the DOS header points at a "PE\0\0" signature.
func hasPESignature(p string) (bool, error) {
	f, err := os.Open(p) //nolint:gosec // path comes from the scanned tree
	if err != nil {
		return false, err
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	var lfanew [4]byte
	if _, err := f.ReadAt(lfanew[:], 0x3c); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	var sig [4]byte
	if _, err := f.ReadAt(sig[:], int64(binary.LittleEndian.Uint32(lfanew[:]))); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return string(sig[:]) == "PE\x00\x00", nil
}
