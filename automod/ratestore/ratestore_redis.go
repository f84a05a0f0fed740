package ratestore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisRatePrefix string = "rate/"

// Keeps each user's window as a sorted set of timestamps (microseconds), with the key expiring one window after the last message. Expiry takes the place of the in-memory sweeper.
type RedisRateStore struct {
	Client *redis.Client
	window time.Duration
	limit  int
}

var _ RateStore = (*RedisRateStore)(nil)

func NewRedisRateStore(redisURL string, window time.Duration, limit int) (*RedisRateStore, error) {
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
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &RedisRateStore{
		Client: rdb,
		window: window,
		limit:  limit,
	}, nil
}

func (s *RedisRateStore) Observe(ctx context.Context, userID string, now time.Time) (bool, error) {
	key := redisRatePrefix + userID
	nowMicros := now.UnixMicro()
	cutoff := nowMicros - s.window.Microseconds()
	// members must be unique even for messages in the same microsecond, from any process
	member := fmt.Sprintf("%d-%d", nowMicros, rand.Uint64())

	// MULTI/EXEC: no other client's commands interleave with these
	multi := s.Client.TxPipeline()
	multi.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	multi.ZAdd(ctx, key, redis.Z{Score: float64(nowMicros), Member: member})
	card := multi.ZCard(ctx, key)
	multi.PExpire(ctx, key, s.window)
	if _, err := multi.Exec(ctx); err != nil {
		return false, err
	}
	return int(card.Val()) >= s.limit, nil
}
