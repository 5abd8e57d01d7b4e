package domain

import (
	"github.com/gobwas/glob"
	"go.trai.ch/zerr"
)

// Query selects entries from a graph. Every non-empty field must match.
// Name, InstallPath and Container accept glob patterns.
type Query struct {
	SHA256      string
	SHA1        string
	MD5         string
	Name        string
	InstallPath string
	Container   string
}

// Empty reports whether the query has no criteria.
func (q Query) Empty() bool {
	return q == Query{}
}

type compiledQuery struct {
	hashes      ContentHashes
	name        glob.Glob
	installPath glob.Glob
	container   glob.Glob
}

func (q Query) compile() (*compiledQuery, error) {
	c := &compiledQuery{hashes: ContentHashes{SHA256: q.SHA256, SHA1: q.SHA1, MD5: q.MD5}.Normalize()}
	var err error
	if c.name, err = compileOptional(q.Name); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "invalid name pattern"), "pattern", q.Name)
	}
	if c.installPath, err = compileOptional(q.InstallPath, '/'); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "invalid install path pattern"), "pattern", q.InstallPath)
	}
	if c.container, err = compileOptional(q.Container, '/'); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "invalid container pattern"), "pattern", q.Container)
	}
	return c, nil
}

func compileOptional(pattern string, separators ...rune) (glob.Glob, error) {
	if pattern == "" {
		return nil, nil
	}
	return glob.Compile(pattern, separators...)
}

func (c *compiledQuery) matches(e *SoftwareEntry) bool {
	if c.hashes.SHA256 != "" && c.hashes.SHA256 != e.Hashes.SHA256 {
		return false
	}
	if c.hashes.SHA1 != "" && c.hashes.SHA1 != e.Hashes.SHA1 {
		return false
	}
	if c.hashes.MD5 != "" && c.hashes.MD5 != e.Hashes.MD5 {
		return false
	}
	if c.name != nil && !anyMatch(c.name, e.Names) {
		return false
	}
	if c.installPath != nil && !anyMatch(c.installPath, e.InstallPaths) {
		return false
	}
	if c.container != nil {
		found := false
		for _, p := range e.Provenance {
			if c.container.Match(p.Container) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func anyMatch(g glob.Glob, values []string) bool {
	for _, v := range values {
		if g.Match(v) {
			return true
		}
	}
	return false
}

// Find returns the entries matching q in insertion order. An empty query matches everything.
func (g *Graph) Find(q Query) ([]*SoftwareEntry, error) {
	c, err := q.compile()
	if err != nil {
		return nil, err
	}
	var out []*SoftwareEntry
	for e := range g.Entries() {
		if c.matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
