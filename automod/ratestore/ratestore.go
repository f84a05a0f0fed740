// Automod component for per-user sliding-window message rates.
//
// Each user has an ordered sequence of recent message timestamps. An observation drops every timestamp at least one window old, appends the current one, and reports the user as flagged when the sequence has reached the limit. Windows are not reset when a user is flagged: later messages keep counting against the same window.
//
// Observations for the same user are atomic; observations for different users do not synchronize with each other.
//
// Includes an interface and implementations using redis and in-process memory. Window state is never durable.
package ratestore

import (
	"context"
	"time"
)

const (
	DefaultWindow = 5 * time.Second
	DefaultLimit  = 5
)

type RateStore interface {
	// Records a message from the user at time "now", and returns true if the user has now sent at least the limit of messages within the window.
	Observe(ctx context.Context, userID string, now time.Time) (bool, error)
}

// drops timestamps that are at least one window older than now. returns a new slice; the input is not modified
func pruneWindow(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := make([]time.Time, 0, len(ts)+1)
	for _, t := range ts {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	return kept
}

// true if no timestamp in the sequence is still inside the window
func idleWindow(ts []time.Time, now time.Time, window time.Duration) bool {
	for _, t := range ts {
		if now.Sub(t) < window {
			return false
		}
	}
	return true
}
