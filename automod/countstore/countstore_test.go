package countstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testSQLDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqldb, err := db.DB()
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	return db
}

func testCountStoreBasics(t *testing.T, cs CountStore) {
	assert := assert.New(t)
	ctx := context.Background()

	c, err := cs.GetCount(ctx, "user1")
	assert.NoError(err)
	assert.Equal(0, c)

	for i := 1; i <= 3; i++ {
		c, err = cs.Increment(ctx, "user1")
		assert.NoError(err)
		assert.Equal(i, c)
	}
	c, err = cs.GetCount(ctx, "user1")
	assert.NoError(err)
	assert.Equal(3, c)

	// other users are independent
	c, err = cs.GetCount(ctx, "user2")
	assert.NoError(err)
	assert.Equal(0, c)

	// reset goes back to exactly zero, and counting starts over
	assert.NoError(cs.Reset(ctx, "user1"))
	c, err = cs.GetCount(ctx, "user1")
	assert.NoError(err)
	assert.Equal(0, c)
	c, err = cs.Increment(ctx, "user1")
	assert.NoError(err)
	assert.Equal(1, c)

	// resetting an unknown user is fine
	assert.NoError(cs.Reset(ctx, "nobody"))
}

func testCountStoreConcurrent(t *testing.T, cs CountStore) {
	assert := assert.New(t)
	ctx := context.Background()

	// Increment two different users from four different goroutines, while reading from two more.
	// Every increment must return a distinct value for its user.
	var wg sync.WaitGroup
	var lk sync.Mutex
	results := map[string][]int{}
	fnInc := func(userID string, times int) {
		defer wg.Done()
		for i := 0; i < times; i++ {
			v, err := cs.Increment(ctx, userID)
			assert.NoError(err)
			lk.Lock()
			results[userID] = append(results[userID], v)
			lk.Unlock()
			time.Sleep(time.Nanosecond)
		}
	}
	fnRead := func(userID string, times int) {
		defer wg.Done()
		for i := 0; i < times; i++ {
			_, err := cs.GetCount(ctx, userID)
			assert.NoError(err)
			time.Sleep(time.Nanosecond)
		}
	}
	wg.Add(6)
	go fnInc("user1", 10)
	go fnInc("user1", 10)
	go fnRead("user1", 10)
	go fnInc("user2", 6)
	go fnInc("user2", 6)
	go fnRead("user2", 6)
	wg.Wait()

	c, err := cs.GetCount(ctx, "user1")
	assert.NoError(err)
	assert.Equal(20, c)
	c, err = cs.GetCount(ctx, "user2")
	assert.NoError(err)
	assert.Equal(12, c)

	for userID, vals := range results {
		seen := map[int]bool{}
		for _, v := range vals {
			assert.False(seen[v], "duplicate count %d for %s", v, userID)
			seen[v] = true
		}
	}
}

func TestMemCountStoreBasics(t *testing.T) {
	testCountStoreBasics(t, NewMemCountStore())
}

func TestMemCountStoreConcurrent(t *testing.T) {
	testCountStoreConcurrent(t, NewMemCountStore())
}

func TestMemCountStoreGetDoesNotCreate(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()
	c, err := cs.GetCount(ctx, "user1")
	assert.NoError(err)
	assert.Equal(0, c)
	assert.Equal(0, cs.Counts.Size())
}

func TestSQLCountStoreBasics(t *testing.T) {
	cs, err := NewSQLCountStore(testSQLDB(t))
	require.NoError(t, err)
	testCountStoreBasics(t, cs)
}

func TestSQLCountStoreConcurrent(t *testing.T) {
	cs, err := NewSQLCountStore(testSQLDB(t))
	require.NoError(t, err)
	testCountStoreConcurrent(t, cs)
}

func TestSQLCountStoreGetDoesNotCreate(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db := testSQLDB(t)
	cs, err := NewSQLCountStore(db)
	require.NoError(t, err)

	c, err := cs.GetCount(ctx, "user1")
	assert.NoError(err)
	assert.Equal(0, c)

	var rows int64
	assert.NoError(db.Model(&WarningRow{}).Count(&rows).Error)
	assert.Equal(int64(0), rows)
}

func TestRedisCountStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")

	cs, err := NewRedisCountStore("redis://localhost:6379/0")
	require.NoError(t, err)
	require.NoError(t, cs.Reset(context.Background(), "user1"))
	require.NoError(t, cs.Reset(context.Background(), "user2"))
	testCountStoreBasics(t, cs)
}
