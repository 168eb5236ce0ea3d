package engine

import "github.com/google/uuid"

// GenerationIDGenerator names one scheduling or tabulation run. Every row a
// run persists carries the id, so rows from different runs are never mixed.
// Implemented by UUIDv7Generator (production) and the testutil generators.
type GenerationIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 generation ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so later runs
// sort after earlier ones.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
