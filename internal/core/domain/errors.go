package domain

import "go.trai.ch/zerr"

var (
	// ErrNoIdentity is returned when an entry has no strong content hash to key it by.
	ErrNoIdentity = zerr.New("no strong content hash available")

	// ErrNotApplicable is returned by a capability that declines a file after inspecting it.
	ErrNotApplicable = zerr.New("capability not applicable")

	// ErrDuplicateCapability is returned when two capabilities register under the same name.
	ErrDuplicateCapability = zerr.New("capability already registered")

	// ErrUnknownEntry is returned when a relationship or lookup references an entry that is not in the graph.
	ErrUnknownEntry = zerr.New("unknown entry")

	// ErrInvalidRelationship is returned when an edge has an unknown kind.
	ErrInvalidRelationship = zerr.New("invalid relationship")

	// ErrStoreIntegrityViolation is returned when the graph store is found in an inconsistent state.
	// It is the only error that aborts a scan.
	ErrStoreIntegrityViolation = zerr.New("graph store integrity violation")

	// ErrInvalidTransition is returned when the scan lifecycle is asked to skip or revisit a stage.
	ErrInvalidTransition = zerr.New("invalid scan state transition")

	// ErrInvalidConfig is returned when the specimen configuration cannot be used.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrGraphNotFound is returned when a persisted graph does not exist at the requested location.
	ErrGraphNotFound = zerr.New("graph not found")

	// ErrUnsupportedSchema is returned when a persisted graph was written with an unknown schema version.
	ErrUnsupportedSchema = zerr.New("unsupported graph schema version")

	// ErrNoInputs is returned when an operation needs at least one input graph.
	ErrNoInputs = zerr.New("no input graphs specified")
)
