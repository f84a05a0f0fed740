package ratestore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func testRateStoreFlagsFifth(t *testing.T, rs RateStore) {
	assert := assert.New(t)
	ctx := context.Background()

	for i, ms := range []int{0, 1000, 2000, 3000} {
		flagged, err := rs.Observe(ctx, "user1", at(ms))
		assert.NoError(err)
		assert.False(flagged, "message %d", i+1)
	}
	flagged, err := rs.Observe(ctx, "user1", at(4000))
	assert.NoError(err)
	assert.True(flagged)

	// no reset on flag: the next message still counts against the same window
	flagged, err = rs.Observe(ctx, "user1", at(4500))
	assert.NoError(err)
	assert.True(flagged)

	// other users are unaffected
	flagged, err = rs.Observe(ctx, "user2", at(4500))
	assert.NoError(err)
	assert.False(flagged)
}

func testRateStoreExpiry(t *testing.T, rs RateStore) {
	assert := assert.New(t)
	ctx := context.Background()

	for _, ms := range []int{0, 1000, 2000, 3000} {
		flagged, err := rs.Observe(ctx, "user1", at(ms))
		assert.NoError(err)
		assert.False(flagged)
	}
	// exactly one window after the first message: the first no longer counts
	flagged, err := rs.Observe(ctx, "user1", at(5000))
	assert.NoError(err)
	assert.False(flagged)

	// one millisecond inside the window of the second message: 1000, 2000, 3000, 5000, 5999
	flagged, err = rs.Observe(ctx, "user1", at(5999))
	assert.NoError(err)
	assert.True(flagged)
}

func TestMemRateStoreFlagsFifth(t *testing.T) {
	testRateStoreFlagsFifth(t, NewMemRateStore(0, 0))
}

func TestMemRateStoreExpiry(t *testing.T) {
	testRateStoreExpiry(t, NewMemRateStore(0, 0))
}

func TestMemRateStorePrunesBeforeCounting(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	rs := NewMemRateStore(0, 0)
	for _, ms := range []int{0, 100, 200, 300, 400} {
		_, err := rs.Observe(ctx, "user1", at(ms))
		assert.NoError(err)
	}
	_, err := rs.Observe(ctx, "user1", at(10_000))
	assert.NoError(err)
	ts, ok := rs.Windows.Load("user1")
	assert.True(ok)
	assert.Equal([]time.Time{at(10_000)}, ts)
}

func TestMemRateStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	rs := NewMemRateStore(time.Minute, 5)
	now := time.Now()

	// every observation sees a distinct window size, so exactly the first four are not flagged
	var wg sync.WaitGroup
	var flaggedCount atomic.Int64
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			flagged, err := rs.Observe(ctx, "user1", now)
			assert.NoError(err)
			if flagged {
				flaggedCount.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(int64(96), flaggedCount.Load())

	ts, ok := rs.Windows.Load("user1")
	assert.True(ok)
	assert.Equal(100, len(ts))
}

func TestMemRateStoreSweep(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	rs := NewMemRateStore(0, 0)
	_, err := rs.Observe(ctx, "idle", at(0))
	assert.NoError(err)
	_, err = rs.Observe(ctx, "active", at(0))
	assert.NoError(err)
	_, err = rs.Observe(ctx, "active", at(4000))
	assert.NoError(err)
	assert.Equal(2, rs.Size())

	assert.Equal(1, rs.Sweep(at(6000)))
	assert.Equal(1, rs.Size())
	_, ok := rs.Windows.Load("idle")
	assert.False(ok)

	assert.Equal(1, rs.Sweep(at(9000)))
	assert.Equal(0, rs.Size())
}

func TestRedisRateStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")

	rs, err := NewRedisRateStore("redis://localhost:6379/0", 0, 0)
	require.NoError(t, err)
	require.NoError(t, rs.Client.Del(context.Background(), redisRatePrefix+"user1", redisRatePrefix+"user2").Err())
	testRateStoreFlagsFifth(t, rs)
}
