package countstore

import (
	"context"

	"github.com/redis/go-redis/v9"
)

var redisWarningPrefix string = "warnings/"

type RedisCountStore struct {
	Client *redis.Client
}

var _ CountStore = (*RedisCountStore)(nil)

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	rcs := RedisCountStore{
		Client: rdb,
	}
	return &rcs, nil
}

func (s *RedisCountStore) GetCount(ctx context.Context, userID string) (int, error) {
	c, err := s.Client.Get(ctx, redisWarningPrefix+userID).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

// INCR is atomic on the server, and treats a missing key as zero
func (s *RedisCountStore) Increment(ctx context.Context, userID string) (int, error) {
	c, err := s.Client.Incr(ctx, redisWarningPrefix+userID).Result()
	if err != nil {
		return 0, err
	}
	return int(c), nil
}

func (s *RedisCountStore) Reset(ctx context.Context, userID string) error {
	return s.Client.Del(ctx, redisWarningPrefix+userID).Err()
}
