package domain

import (
	"maps"
	"slices"
)

// AttributeKey names a scalar attribute of a software entry.
// Keys outside the well-known set address the extension map.
type AttributeKey string

// Well-known scalar attribute keys.
const (
	AttrVendor       AttributeKey = "vendor"
	AttrProduct      AttributeKey = "product"
	AttrVersion      AttributeKey = "version"
	AttrArchitecture AttributeKey = "architecture"
	AttrDescription  AttributeKey = "description"
	AttrCopyright    AttributeKey = "copyright"
)

// Attributes is the typed attribute container of a software entry.
//
// Scalars follow a first-writer-wins rule when two observations are combined,
// list attributes are unioned and extension keys are first-writer-wins per key.
type Attributes struct {
	Vendor       string            `json:"vendor,omitempty"`
	Product      string            `json:"product,omitempty"`
	Version      string            `json:"version,omitempty"`
	Architecture string            `json:"architecture,omitempty"`
	Description  string            `json:"description,omitempty"`
	Copyright    string            `json:"copyright,omitempty"`
	Capabilities []string          `json:"capabilities,omitempty"`
	EntryPoints  []string          `json:"entryPoints,omitempty"`
	Extensions   map[string]string `json:"extensions,omitempty"`
}

func (a *Attributes) scalar(key AttributeKey) *string {
	switch key {
	case AttrVendor:
		return &a.Vendor
	case AttrProduct:
		return &a.Product
	case AttrVersion:
		return &a.Version
	case AttrArchitecture:
		return &a.Architecture
	case AttrDescription:
		return &a.Description
	case AttrCopyright:
		return &a.Copyright
	default:
		return nil
	}
}

// Get returns the value of a scalar or extension attribute.
func (a *Attributes) Get(key AttributeKey) string {
	if p := a.scalar(key); p != nil {
		return *p
	}
	return a.Extensions[string(key)]
}

// SetIfEmpty assigns value to key unless the attribute already holds a value.
// It reports whether the value was stored.
func (a *Attributes) SetIfEmpty(key AttributeKey, value string) bool {
	if value == "" {
		return false
	}
	if p := a.scalar(key); p != nil {
		if *p != "" {
			return false
		}
		*p = value
		return true
	}
	if _, ok := a.Extensions[string(key)]; ok {
		return false
	}
	if a.Extensions == nil {
		a.Extensions = make(map[string]string)
	}
	a.Extensions[string(key)] = value
	return true
}

// Absorb folds o into a without overwriting values a already holds.
func (a *Attributes) Absorb(o Attributes) {
	for _, key := range []AttributeKey{AttrVendor, AttrProduct, AttrVersion, AttrArchitecture, AttrDescription, AttrCopyright} {
		a.SetIfEmpty(key, o.Get(key))
	}
	for _, k := range slices.Sorted(maps.Keys(o.Extensions)) {
		a.SetIfEmpty(AttributeKey(k), o.Extensions[k])
	}
	a.Capabilities = unionSorted(a.Capabilities, o.Capabilities)
	a.EntryPoints = unionSorted(a.EntryPoints, o.EntryPoints)
}

// Clone returns a deep copy.
func (a Attributes) Clone() Attributes {
	c := a
	c.Capabilities = slices.Clone(a.Capabilities)
	c.EntryPoints = slices.Clone(a.EntryPoints)
	if a.Extensions != nil {
		c.Extensions = maps.Clone(a.Extensions)
	}
	return c
}

// unionSorted returns the sorted, duplicate-free union of a and b.
// Empty strings are dropped.
func unionSorted(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if s != "" {
			out = append(out, s)
		}
	}
	for _, s := range b {
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
