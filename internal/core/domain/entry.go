// Package domain contains the core model of the software graph: entries, relationships,
// extraction records, diagnostics and the graph store itself.
package domain

import (
	"slices"
	"strings"
	"time"
)

// FileType is the coarse classification tag of a file.
type FileType string

// Known file type tags.
const (
	FileTypeUnknown   FileType = "unknown"
	FileTypePE        FileType = "PE"
	FileTypeELF       FileType = "ELF"
	FileTypeMachO     FileType = "MACHO"
	FileTypeOLE       FileType = "OLE"
	FileTypeMSI       FileType = "MSI"
	FileTypeRPM       FileType = "RPM"
	FileTypeZIP       FileType = "ZIP"
	FileTypeGZIP      FileType = "GZIP"
	FileTypeTAR       FileType = "TAR"
	FileTypeJavaClass FileType = "JAVA_CLASS"
	FileTypeScript    FileType = "SCRIPT"
)

// DependencyRef is an unresolved reference from one entry to something it needs,
// as declared by the binary (an imported library, a referenced assembly).
type DependencyRef struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Architecture string   `json:"architecture,omitempty"`
	SearchPaths  []string `json:"searchPaths,omitempty"`
	// SHA256 links the reference directly to the entry with this content hash.
	SHA256 string `json:"sha256,omitempty"`
}

// Key returns a string identifying the full descriptor, used for deduplication.
func (d DependencyRef) Key() string {
	return strings.Join([]string{
		d.Name, d.Version, d.Architecture, strings.ToLower(d.SHA256), strings.Join(d.SearchPaths, ":"),
	}, "\x00")
}

func (d DependencyRef) clone() DependencyRef {
	d.SearchPaths = slices.Clone(d.SearchPaths)
	return d
}

// Provenance records that a file was found inside a container (an archive or installer).
type Provenance struct {
	Container string `json:"container"`
	Member    string `json:"member,omitempty"`
}

// SoftwareEntry is one distinct piece of software in the graph, keyed by its strong hash.
type SoftwareEntry struct {
	ID           EntryID         `json:"id"`
	Hashes       ContentHashes   `json:"hashes"`
	Names        []string        `json:"names,omitempty"`
	InstallPaths []string        `json:"installPaths,omitempty"`
	Size         int64           `json:"size"`
	FileType     FileType        `json:"fileType"`
	Attributes   Attributes      `json:"attributes"`
	Dependencies []DependencyRef `json:"dependencies,omitempty"`
	Unresolved   []DependencyRef `json:"unresolved,omitempty"`
	Provenance   []Provenance    `json:"provenance,omitempty"`
	CaptureTime  time.Time       `json:"captureTime"`
}

// Clone returns a deep copy of the entry.
func (e *SoftwareEntry) Clone() *SoftwareEntry {
	c := *e
	c.Names = slices.Clone(e.Names)
	c.InstallPaths = slices.Clone(e.InstallPaths)
	c.Attributes = e.Attributes.Clone()
	c.Dependencies = cloneRefs(e.Dependencies)
	c.Unresolved = cloneRefs(e.Unresolved)
	c.Provenance = slices.Clone(e.Provenance)
	return &c
}

// Absorb merges a second observation of the same content into e.
// Set-valued fields are unioned, scalars keep the value e already holds and the
// earliest capture time is retained. The identifier of e never changes.
func (e *SoftwareEntry) Absorb(o *SoftwareEntry) {
	e.Hashes.fillMissing(o.Hashes)
	e.Names = unionSorted(e.Names, o.Names)
	e.InstallPaths = unionSorted(e.InstallPaths, o.InstallPaths)
	if e.Size == 0 {
		e.Size = o.Size
	}
	if e.FileType == "" || e.FileType == FileTypeUnknown {
		if o.FileType != "" {
			e.FileType = o.FileType
		}
	}
	e.Attributes.Absorb(o.Attributes)
	e.Dependencies = AppendDependencies(e.Dependencies, o.Dependencies...)
	e.Provenance = AppendProvenance(e.Provenance, o.Provenance...)
	if !o.CaptureTime.IsZero() && (e.CaptureTime.IsZero() || o.CaptureTime.Before(e.CaptureTime)) {
		e.CaptureTime = o.CaptureTime
	}
}

// AppendDependencies appends refs to deps, skipping descriptors already present.
func AppendDependencies(deps []DependencyRef, refs ...DependencyRef) []DependencyRef {
	seen := make(map[string]struct{}, len(deps)+len(refs))
	for _, d := range deps {
		seen[d.Key()] = struct{}{}
	}
	for _, r := range refs {
		if r.Name == "" && r.SHA256 == "" {
			continue
		}
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		deps = append(deps, r.clone())
	}
	return deps
}

// AppendProvenance appends tuples to prov, skipping duplicates.
func AppendProvenance(prov []Provenance, tuples ...Provenance) []Provenance {
	for _, p := range tuples {
		if p.Container == "" || slices.Contains(prov, p) {
			continue
		}
		prov = append(prov, p)
	}
	return prov
}

func cloneRefs(refs []DependencyRef) []DependencyRef {
	if len(refs) == 0 {
		return nil
	}
	out := make([]DependencyRef, len(refs))
	for i, r := range refs {
		out[i] = r.clone()
	}
	return out
}
