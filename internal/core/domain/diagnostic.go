package domain

// DiagnosticKind classifies a non-fatal problem recorded during a scan.
type DiagnosticKind string

// Diagnostic kinds.
const (
	DiagExtractionFailure       DiagnosticKind = "extraction_failure"
	DiagNoIdentityAvailable     DiagnosticKind = "no_identity_available"
	DiagAmbiguousDependency     DiagnosticKind = "ambiguous_dependency"
	DiagUnresolvedDependency    DiagnosticKind = "unresolved_dependency"
	DiagUnresolvedContainer     DiagnosticKind = "unresolved_container"
	DiagStoreIntegrityViolation DiagnosticKind = "store_integrity_violation"
)

// Severity orders diagnostics by how much they matter.
type Severity string

// Severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityFatal   Severity = "fatal"
)

// Severity returns the severity attached to a kind.
func (k DiagnosticKind) Severity() Severity {
	switch k {
	case DiagAmbiguousDependency, DiagUnresolvedDependency, DiagUnresolvedContainer:
		return SeverityInfo
	case DiagStoreIntegrityViolation:
		return SeverityFatal
	default:
		return SeverityWarning
	}
}

// Diagnostic is a problem recorded during a scan. It is reported, never raised.
type Diagnostic struct {
	Kind       DiagnosticKind `json:"kind"`
	Severity   Severity       `json:"severity"`
	Path       string         `json:"path,omitempty"`
	Entry      EntryID        `json:"entry,omitempty"`
	Capability string         `json:"capability,omitempty"`
	Message    string         `json:"message"`
}

// NewDiagnostic builds a diagnostic with the severity of its kind.
func NewDiagnostic(kind DiagnosticKind, msg string) Diagnostic {
	return Diagnostic{Kind: kind, Severity: kind.Severity(), Message: msg}
}

// ForPath returns a copy of d attributed to a file.
func (d Diagnostic) ForPath(path string) Diagnostic {
	d.Path = path
	return d
}

// ForEntry returns a copy of d attributed to an entry.
func (d Diagnostic) ForEntry(id EntryID) Diagnostic {
	d.Entry = id
	return d
}

// ForCapability returns a copy of d attributed to a capability.
func (d Diagnostic) ForCapability(name string) Diagnostic {
	d.Capability = name
	return d
}
