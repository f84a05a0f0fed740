package seenstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisSeenStore struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ SeenStore = (*RedisSeenStore)(nil)

func NewRedisSeenStore(redisURL string, ttl time.Duration) (*RedisSeenStore, error) {
	ctx := context.Background()
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	return &RedisSeenStore{
		Client: rdb,
		TTL:    ttl,
	}, nil
}

func redisSeenKey(name, key string) string {
	return "seen/" + name + "/" + key
}

func (s *RedisSeenStore) MarkSeen(ctx context.Context, name, key string) (bool, error) {
	return s.Client.SetNX(ctx, redisSeenKey(name, key), 1, s.TTL).Result()
}
