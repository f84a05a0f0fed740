package seenstore

import (
	"context"
)

type SeenStore interface {
	// Records the key, returning true if this is the first time it was seen (within the TTL). Check and record are one atomic step.
	MarkSeen(ctx context.Context, name, key string) (bool, error)
}
