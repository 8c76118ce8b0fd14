package history

import "context"

// Store owns the per-user conversation histories. Implementations must be safe
// for concurrent use; each method is atomic with respect to a single user.
type Store interface {
	// GetOrCreate returns a copy of the user's history, registering an empty
	// one if the user has never been seen.
	GetOrCreate(ctx context.Context, userID int64) ([]Turn, error)

	// Clear resets the user's history to empty. Unknown users get an empty entry.
	Clear(ctx context.Context, userID int64) error

	// Append adds turn to the end of the history and applies the trim policy.
	Append(ctx context.Context, userID int64, turn Turn) error

	// Snapshot returns an ordered copy of the history, empty for unknown users.
	Snapshot(ctx context.Context, userID int64) ([]Turn, error)

	// Exists reports whether a history is registered for the user.
	Exists(ctx context.Context, userID int64) (bool, error)
}
