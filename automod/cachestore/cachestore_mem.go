package cachestore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Entries hold the time the membership was confirmed.
type MemMemberCache struct {
	Members *expirable.LRU[string, time.Time]
}

var _ MemberCache = (*MemMemberCache)(nil)

func NewMemMemberCache(capacity int, ttl time.Duration) *MemMemberCache {
	return &MemMemberCache{
		Members: expirable.NewLRU[string, time.Time](capacity, nil, ttl),
	}
}

func (c *MemMemberCache) Known(ctx context.Context, guildID, userID string) (bool, error) {
	_, ok := c.Members.Get(memberKey(guildID, userID))
	return ok, nil
}

func (c *MemMemberCache) Remember(ctx context.Context, guildID, userID string) error {
	c.Members.Add(memberKey(guildID, userID), time.Now())
	return nil
}

func (c *MemMemberCache) Forget(ctx context.Context, guildID, userID string) error {
	c.Members.Remove(memberKey(guildID, userID))
	return nil
}
