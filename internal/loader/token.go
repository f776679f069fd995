package loader

import "github.com/google/uuid"

// TokenGenerator produces session tokens used to correlate a load/unload
// cycle's log records. Implemented by UUIDv7Generator (production) and
// testutil.FixedTokenGenerator (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so tokens sort
// by session creation time - convenient when reading interleaved fixture
// logs from a large suite.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
