// Package ident generates entry identifiers.
package ident

import (
	"github.com/google/uuid"
	"go.trai.ch/bom/internal/core/domain"
)

// UUIDPrefix starts every random identifier.
const UUIDPrefix = "SW-"

// NewUUIDGenerator returns a generator of random, collision-resistant identifiers.
func NewUUIDGenerator() domain.IDGenerator {
	return func() domain.EntryID {
		return domain.EntryID(UUIDPrefix + uuid.NewString())
	}
}
