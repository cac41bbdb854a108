package vault

import "context"

// SeedAccessor runs fn with the live seed. It returns ErrLocked when no seed
// is held. The seed slice must not be retained after fn returns.
type SeedAccessor func(fn func(seed []byte) error) error

// Storage persists the vault. Absent records are reported as nil values
// with a nil error. Implementations own durability and retries.
type Storage interface {
	GetScatter(ctx context.Context) ([]byte, error)
	SetScatter(ctx context.Context, blob []byte) error
	GetSalt(ctx context.Context) (string, error)
	SetSalt(ctx context.Context, salt string) error

	// Commit writes blob and salt in a single atomic update
	Commit(ctx context.Context, blob []byte, salt string) error

	// Rekey writes blob and salt and moves every auxiliary secret from
	// oldSeed to newSeed, all in a single atomic update. Nothing is written
	// when any part fails.
	Rekey(ctx context.Context, blob []byte, salt string, oldSeed, newSeed []byte) error

	SetSeedAccessor(fn SeedAccessor)
}
