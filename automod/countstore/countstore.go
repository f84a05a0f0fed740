// Automod component for per-user warning counts.
//
// A count starts at zero, only ever moves by increment (+1) or reset (back to zero), and is never negative. Increments are atomic with respect to concurrent increments for the same user; there is no check-then-act at the caller.
//
// Includes an interface and implementations using an SQL database, redis, and in-process memory.
package countstore

import (
	"context"
)

type CountStore interface {
	// Returns the current count for the user, zero if none was ever recorded. Reading does not create any state.
	GetCount(ctx context.Context, userID string) (int, error)
	// Atomically adds one to the user's count and returns the new value.
	Increment(ctx context.Context, userID string) (int, error)
	// Sets the user's count back to zero. Does not error if there was no count.
	Reset(ctx context.Context, userID string) error
}
