// Package synthesize combines the extraction records of one file into a candidate entry.
package synthesize

import (
	"cmp"
	"slices"
	"time"

	"go.trai.ch/bom/internal/core/domain"
)

// Synthesizer builds candidate entries. It holds no mutable state and is safe for
// concurrent use.
type Synthesizer struct {
	now func() time.Time
}

// New creates a Synthesizer stamping entries with now. A nil clock uses time.Now.
func New(now func() time.Time) *Synthesizer {
	if now == nil {
		now = time.Now
	}
	return &Synthesizer{now: now}
}

// Synthesize folds records into one candidate entry.
//
// Records are applied in descending priority, so the highest priority record that
// sets a scalar wins and list fields are unioned. Without a valid strong hash no
// entry is produced and exactly one NoIdentityAvailable diagnostic is returned
// alongside any extraction failures found on the way.
func (s *Synthesizer) Synthesize(
	file domain.FileRef,
	ft domain.FileType,
	records []*domain.ExtractionRecord,
) (*domain.SoftwareEntry, []domain.Diagnostic) {
	sorted := slices.Clone(records)
	sorted = slices.DeleteFunc(sorted, func(r *domain.ExtractionRecord) bool { return r == nil })
	slices.SortStableFunc(sorted, func(a, b *domain.ExtractionRecord) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	var diags []domain.Diagnostic
	var strong, strongFrom string
	for _, r := range sorted {
		h := r.Hashes.Normalize()
		switch {
		case h.SHA256 == "":
		case !domain.ValidSHA256(h.SHA256):
			diags = append(diags, domain.NewDiagnostic(domain.DiagExtractionFailure,
				"capability reported a malformed sha256").ForPath(file.Path).ForCapability(r.Capability))
		case strong == "":
			strong, strongFrom = h.SHA256, r.Capability
		case h.SHA256 != strong:
			diags = append(diags, domain.NewDiagnostic(domain.DiagExtractionFailure,
				"conflicting sha256, keeping the one reported by "+strongFrom).ForPath(file.Path).ForCapability(r.Capability))
		}
	}
	if strong == "" {
		return nil, append(diags, domain.NewDiagnostic(domain.DiagNoIdentityAvailable,
			"no capability produced a strong hash").ForPath(file.Path))
	}

	entry := &domain.SoftwareEntry{
		Hashes:      domain.ContentHashes{SHA256: strong},
		CaptureTime: s.now(),
	}
	for _, r := range sorted {
		obs := observation(r)
		if h := r.Hashes.Normalize(); h.SHA256 != "" && h.SHA256 != strong {
			obs.Hashes = domain.ContentHashes{}
		}
		entry.Absorb(obs)
	}

	if len(entry.Names) == 0 {
		entry.Names = []string{file.Name()}
	}
	if len(entry.InstallPaths) == 0 {
		entry.InstallPaths = []string{file.Target()}
	}
	entry.Provenance = domain.AppendProvenance(entry.Provenance, file.Provenance...)
	if entry.FileType == "" || entry.FileType == domain.FileTypeUnknown {
		entry.FileType = ft
	}
	if entry.FileType == "" {
		entry.FileType = domain.FileTypeUnknown
	}

	applyHints(entry, sorted)
	return entry, diags
}

func observation(r *domain.ExtractionRecord) *domain.SoftwareEntry {
	h := r.Hashes.Normalize()
	return &domain.SoftwareEntry{
		Hashes:       domain.ContentHashes{SHA1: h.SHA1, MD5: h.MD5},
		Names:        r.Names,
		InstallPaths: r.InstallPaths,
		Size:         r.Size,
		FileType:     r.FileType,
		Attributes:   r.Attributes.Clone(),
		Dependencies: r.Dependencies,
		Provenance:   r.Provenance,
	}
}

// applyHints fills attributes that no record set from the most confident hint.
// Ties keep the hint of the higher priority record.
func applyHints(entry *domain.SoftwareEntry, records []*domain.ExtractionRecord) {
	best := make(map[domain.AttributeKey]domain.FieldHint)
	var order []domain.AttributeKey
	for _, r := range records {
		for _, h := range r.Hints {
			if h.Field == "" || h.Value == "" {
				continue
			}
			cur, ok := best[h.Field]
			if !ok {
				order = append(order, h.Field)
			}
			if !ok || h.Confidence > cur.Confidence {
				best[h.Field] = h
			}
		}
	}
	for _, field := range order {
		entry.Attributes.SetIfEmpty(field, best[field].Value)
	}
}
