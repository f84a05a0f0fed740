package ratestore

import (
	"context"
	"errors"
	"time"

	"github.com/guildwarden/warden/internal/ticker"

	"github.com/puzpuzpuz/xsync/v3"
)

type MemRateStore struct {
	Windows *xsync.MapOf[string, []time.Time]
	window  time.Duration
	limit   int
}

var _ RateStore = (*MemRateStore)(nil)

// A zero window or limit selects the default.
func NewMemRateStore(window time.Duration, limit int) *MemRateStore {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &MemRateStore{
		Windows: xsync.NewMapOf[string, []time.Time](),
		window:  window,
		limit:   limit,
	}
}

func (s *MemRateStore) Observe(ctx context.Context, userID string, now time.Time) (bool, error) {
	var size int
	// the compute function runs under the key's bucket lock, so prune-append-count is a single step per user
	s.Windows.Compute(userID, func(old []time.Time, loaded bool) ([]time.Time, bool) {
		kept := pruneWindow(old, now, s.window)
		kept = append(kept, now)
		size = len(kept)
		return kept, false
	})
	return size >= s.limit, nil
}

// Number of users with a tracked window.
func (s *MemRateStore) Size() int {
	return s.Windows.Size()
}

// Forgets users whose most recent message is outside the window as of "now". Returns the number of users dropped.
func (s *MemRateStore) Sweep(now time.Time) int {
	candidates := []string{}
	s.Windows.Range(func(userID string, ts []time.Time) bool {
		if idleWindow(ts, now, s.window) {
			candidates = append(candidates, userID)
		}
		return true
	})

	dropped := 0
	for _, userID := range candidates {
		// re-check under the key lock; the user may have sent a message since the scan
		s.Windows.Compute(userID, func(old []time.Time, loaded bool) ([]time.Time, bool) {
			if !loaded {
				return old, true
			}
			if idleWindow(old, now, s.window) {
				dropped++
				return old, true
			}
			return old, false
		})
	}
	return dropped
}

// Periodically sweeps idle windows until the context is cancelled.
func (s *MemRateStore) RunSweeper(ctx context.Context, interval time.Duration) error {
	err := ticker.Periodically(ctx, interval, func(ctx context.Context) error {
		s.Sweep(time.Now())
		rateWindowUsers.Set(float64(s.Size()))
		return nil
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
