package extract

import (
	"context"
	"debug/elf"
	"fmt"
	"path"
	"strings"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/zerr"
)

// defaultLibraryPaths are searched after any rpath or runpath entries.
var defaultLibraryPaths = []string{"/lib", "/usr/lib", "/lib64", "/usr/lib64", "/usr/local/lib"}

var elfArchitectures = map[elf.Machine]string{
	elf.EM_386:     "x86",
	elf.EM_X86_64:  "x86_64",
	elf.EM_ARM:     "arm",
	elf.EM_AARCH64: "arm64",
	elf.EM_RISCV:   "riscv",
	elf.EM_PPC64:   "ppc64",
	elf.EM_S390:    "s390x",
	elf.EM_MIPS:    "mips",
}

var _ ports.Capability = (*ELFCapability)(nil)

// ELFCapability reads ELF headers and the dynamic section.
type ELFCapability struct{}

// NewELFCapability creates an ELFCapability.
func NewELFCapability() *ELFCapability { return &ELFCapability{} }

// Name implements ports.Capability.
func (c *ELFCapability) Name() string { return ELFName }

// Priority implements ports.Capability.
func (c *ELFCapability) Priority() int { return 50 }

// Applies implements ports.Capability.
func (c *ELFCapability) Applies(_ domain.FileRef, ft domain.FileType) bool {
	return ft == domain.FileTypeELF
}

// Extract implements ports.Capability.
func (c *ELFCapability) Extract(ctx context.Context, file domain.FileRef, _ domain.FileType) (*domain.ExtractionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := elf.Open(file.Path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse ELF file"), "path", file.Path)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	rec := &domain.ExtractionRecord{FileType: domain.FileTypeELF}
	arch := elfArchitecture(f.Machine)
	rec.Attributes.Architecture = arch
	rec.Attributes.Extensions = map[string]string{
		"elf.class": f.Class.String(),
		"elf.type":  f.Type.String(),
	}
	rec.Attributes.Capabilities = elfHardening(f)

	if f.Type == elf.ET_EXEC || f.Type == elf.ET_DYN {
		if f.Entry != 0 {
			rec.Attributes.EntryPoints = []string{fmt.Sprintf("0x%x", f.Entry)}
		}
	}

	// Static binaries carry no dynamic section; the lookups below return nothing.
	if sonames, _ := f.DynString(elf.DT_SONAME); len(sonames) > 0 {
		rec.Names = sonames
		if product, version, ok := splitSoname(sonames[0]); ok {
			rec.Hints = append(rec.Hints,
				domain.FieldHint{Field: domain.AttrProduct, Value: product, Confidence: 0.3},
				domain.FieldHint{Field: domain.AttrVersion, Value: version, Confidence: 0.2},
			)
		}
	}

	needed, err := f.DynString(elf.DT_NEEDED)
	if err != nil {
		return rec, nil
	}
	search := elfSearchPaths(f, file.Target())
	for _, lib := range needed {
		rec.Dependencies = domain.AppendDependencies(rec.Dependencies, domain.DependencyRef{
			Name:         lib,
			Architecture: arch,
			SearchPaths:  search,
		})
	}
	return rec, nil
}

func elfArchitecture(m elf.Machine) string {
	if a, ok := elfArchitectures[m]; ok {
		return a
	}
	return strings.ToLower(strings.TrimPrefix(m.String(), "EM_"))
}

func elfHardening(f *elf.File) []string {
	var caps []string
	hasInterp := false
	for _, p := range f.Progs {
		switch p.Type {
		case elf.PT_GNU_STACK:
			if p.Flags&elf.PF_X == 0 {
				caps = append(caps, "nx")
			}
		case elf.PT_GNU_RELRO:
			caps = append(caps, "relro")
		case elf.PT_INTERP:
			hasInterp = true
		}
	}
	if f.Type == elf.ET_DYN && hasInterp {
		caps = append(caps, "pie")
	}
	return caps
}

// elfSearchPaths expands runpath, then rpath, then the default library directories.
func elfSearchPaths(f *elf.File, target string) []string {
	origin := path.Dir(target)
	var out []string
	for _, tag := range []elf.DynTag{elf.DT_RUNPATH, elf.DT_RPATH} {
		values, _ := f.DynString(tag)
		for _, v := range values {
			for _, p := range strings.Split(v, ":") {
				if p == "" {
					continue
				}
				p = strings.ReplaceAll(p, "${ORIGIN}", origin)
				p = strings.ReplaceAll(p, "$ORIGIN", origin)
				out = append(out, path.Clean(p))
			}
		}
	}
	return append(out, defaultLibraryPaths...)
}

// splitSoname turns libfoo.so.1.2 into ("libfoo", "1.2").
func splitSoname(soname string) (string, string, bool) {
	product, version, ok := strings.Cut(soname, ".so.")
	if !ok || product == "" || version == "" {
		return "", "", false
	}
	return product, version, true
}
