package store

import "github.com/google/uuid"

// IDGenerator produces run IDs.
// Implemented by UUIDv7Generator (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
// It is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7. It panics if the system
// random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
