package domain

import (
	"strconv"
	"sync/atomic"
)

// EntryID is the opaque identifier of a node in the software graph.
// It is assigned once, on first insertion, and never changes afterwards.
type EntryID string

// DocumentID identifies the synthetic document root of every graph.
const DocumentID EntryID = "DOCUMENT"

// String returns the identifier as a plain string.
func (id EntryID) String() string {
	return string(id)
}

// IDGenerator produces fresh entry identifiers.
type IDGenerator func() EntryID

// NewSequentialIDGenerator returns a generator yielding prefix1, prefix2, ...
// It is safe for concurrent use and is used for reproducible output.
func NewSequentialIDGenerator(prefix string) IDGenerator {
	var n atomic.Uint64
	return func() EntryID {
		return EntryID(prefix + strconv.FormatUint(n.Add(1), 10))
	}
}
