package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// Shared between replicas through redis, with a per-process TinyLFU in front.
//
// The local tier means a Forget on one replica can be missed by another until its local entry expires; the local TTL is capped at a minute to bound that.
type RedisMemberCache struct {
	Members *cache.Cache
	TTL     time.Duration
}

var _ MemberCache = (*RedisMemberCache)(nil)

const maxLocalMemberTTL = time.Minute

func NewRedisMemberCache(redisURL string, ttl time.Duration) (*RedisMemberCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisMemberCache{
		Members: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(10_000, min(ttl, maxLocalMemberTTL)),
		}),
		TTL: ttl,
	}, nil
}

func redisMemberKey(guildID, userID string) string {
	return "warden/member/" + memberKey(guildID, userID)
}

func (c *RedisMemberCache) Known(ctx context.Context, guildID, userID string) (bool, error) {
	var confirmed int64
	err := c.Members.Get(ctx, redisMemberKey(guildID, userID), &confirmed)
	if errors.Is(err, cache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisMemberCache) Remember(ctx context.Context, guildID, userID string) error {
	return c.Members.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisMemberKey(guildID, userID),
		Value: time.Now().Unix(),
		TTL:   c.TTL,
	})
}

func (c *RedisMemberCache) Forget(ctx context.Context, guildID, userID string) error {
	err := c.Members.Delete(ctx, redisMemberKey(guildID, userID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
