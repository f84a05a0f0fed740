package ticker

import (
	"context"
	"fmt"
	"time"
)

// Runs task every interval until the context is done (returning ctx.Err()) or the task fails.
func Periodically(ctx context.Context, interval time.Duration, task func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := task(ctx); err != nil {
				return fmt.Errorf("periodic task failed: %w", err)
			}
		}
	}
}
