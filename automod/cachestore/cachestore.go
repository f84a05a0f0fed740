package cachestore

import (
	"context"
)

type MemberCache interface {
	// Whether the membership was confirmed within the TTL. A miss does not mean the user is absent.
	Known(ctx context.Context, guildID, userID string) (bool, error)
	Remember(ctx context.Context, guildID, userID string) error
	Forget(ctx context.Context, guildID, userID string) error
}

func memberKey(guildID, userID string) string {
	return guildID + "/" + userID
}
