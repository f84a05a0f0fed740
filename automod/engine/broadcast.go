package engine

import (
	"context"
	"fmt"
	"strings"
)

// Sends the same direct message to every recipient, returning how many deliveries succeeded. Individual delivery failures are logged and otherwise ignored.
func (eng *Engine) Broadcast(ctx context.Context, recipients []string, text string) int {
	delivered := 0
	for _, r := range recipients {
		err := eng.platformCall(ctx, "dm", func(ctx context.Context) error {
			return eng.Platform.SendDirectMessage(ctx, r, text)
		})
		if err != nil {
			eng.Logger.Warn("broadcast delivery failed", "recipient", r, "err", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Forwards a user's appeal to the configured moderators.
func (eng *Engine) Appeal(ctx context.Context, userID, text string) (int, error) {
	text = strings.TrimSpace(text)
	if userID == "" {
		return 0, &ValidationError{Field: "user", Reason: "empty"}
	}
	if text == "" {
		return 0, &ValidationError{Field: "appeal", Reason: "empty"}
	}
	if len(eng.Moderators) == 0 {
		return 0, fmt.Errorf("no moderators configured to receive appeals")
	}
	msg := fmt.Sprintf("Appeal from <@%s>: %s", userID, text)
	n := eng.Broadcast(ctx, eng.Moderators, msg)
	eng.Logger.Info("appeal forwarded", "user", userID, "delivered", n, "moderators", len(eng.Moderators))
	return n, nil
}
