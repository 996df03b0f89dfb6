// Package idgen provides the globally-unique id generator the engine depends
// on (spec.md §6.1) for minting Memory and PendingItem ids when callers omit
// them.
package idgen

import "github.com/google/uuid"

// Generator produces globally unique string ids.
type Generator interface {
	NewID() string
}

// UUID generates RFC 4122 version 4 ids via google/uuid.
type UUID struct{}

// NewID returns a new UUIDv4 string.
func (UUID) NewID() string {
	return uuid.NewString()
}
