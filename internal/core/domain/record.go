package domain

import (
	"path"
	"path/filepath"
)

// FileRef is a file offered to the capabilities, together with the context it was found in.
type FileRef struct {
	// Path is where the bytes can be read on disk.
	Path string
	// InstallPath is where the file lives on the target system. It defaults to Path.
	InstallPath string
	// Provenance lists the containers the file was extracted from.
	Provenance []Provenance
}

// Name returns the base file name on the target system.
func (f FileRef) Name() string {
	if f.InstallPath != "" {
		return path.Base(filepath.ToSlash(f.InstallPath))
	}
	return filepath.Base(f.Path)
}

// Target returns the install path, falling back to the on-disk path.
func (f FileRef) Target() string {
	if f.InstallPath != "" {
		return f.InstallPath
	}
	return filepath.ToSlash(f.Path)
}

// FieldHint is a low-confidence guess for a scalar attribute. Hints only fill
// attributes that no record set, and the most confident hint wins.
type FieldHint struct {
	Field      AttributeKey `json:"field"`
	Value      string       `json:"value"`
	Confidence float64      `json:"confidence"`
}

// ExtractionRecord is the partial metadata one capability produced for one file.
// Every field is optional; the synthesizer combines the records of a file into a
// single candidate entry.
type ExtractionRecord struct {
	Capability   string
	Priority     int
	Hashes       ContentHashes
	Names        []string
	InstallPaths []string
	Size         int64
	FileType     FileType
	Attributes   Attributes
	Dependencies []DependencyRef
	Provenance   []Provenance
	Hints        []FieldHint
}
