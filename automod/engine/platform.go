package engine

import (
	"context"
	"time"
)

// Action primitives of the chat platform binding. Implementations should map platform rejections to *PermissionError and missing targets to *NotFoundError.
type Platform interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	TimeoutMember(ctx context.Context, guildID, userID string, d time.Duration, reason string) error
	RemoveTimeout(ctx context.Context, guildID, userID string) error
	// deleteDays selects how many days of the member's recent messages are removed along with the ban
	BanMember(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	UnbanMember(ctx context.Context, guildID, userID string) error
	KickMember(ctx context.Context, guildID, userID, reason string) error
	IsMember(ctx context.Context, guildID, userID string) (bool, error)
	// Deletes up to "limit" recent messages from the channel, returning how many were deleted.
	PurgeMessages(ctx context.Context, channelID string, limit int) (int, error)
	SetChannelLocked(ctx context.Context, guildID, channelID string, locked bool) error
	SetSlowmode(ctx context.Context, channelID string, seconds int) error
	SendDirectMessage(ctx context.Context, userID, text string) error
}

// Runs a single outbound platform call, waiting on the outbound limiter (if any) and bounding the call with the engine's action timeout. A stalled call must not hold up the handler indefinitely.
func (eng *Engine) platformCall(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	if eng.Limiter != nil {
		if err := eng.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, eng.actionTimeout())
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	actionDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
	if err != nil {
		actionErrorCount.WithLabelValues(action, errorKind(err)).Inc()
		return err
	}
	actionCount.WithLabelValues(action).Inc()
	return nil
}

func (eng *Engine) deleteMessage(ctx context.Context, channelID, messageID string) error {
	return eng.platformCall(ctx, "delete", func(ctx context.Context) error {
		return eng.Platform.DeleteMessage(ctx, channelID, messageID)
	})
}

func (eng *Engine) timeoutMember(ctx context.Context, guildID, userID string, d time.Duration, reason string) error {
	return eng.platformCall(ctx, "timeout", func(ctx context.Context) error {
		return eng.Platform.TimeoutMember(ctx, guildID, userID, d, reason)
	})
}

func (eng *Engine) banMember(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	err := eng.platformCall(ctx, "ban", func(ctx context.Context) error {
		return eng.Platform.BanMember(ctx, guildID, userID, reason, deleteDays)
	})
	if err == nil {
		eng.forgetMember(ctx, guildID, userID)
	}
	return err
}

// Only positive answers are cached; a non-member may join at any time.
func (eng *Engine) isMember(ctx context.Context, guildID, userID string) (bool, error) {
	if eng.Members != nil {
		known, err := eng.Members.Known(ctx, guildID, userID)
		if err != nil {
			eng.Logger.Warn("member cache lookup failed", "err", err)
		} else if known {
			return true, nil
		}
	}
	var member bool
	err := eng.platformCall(ctx, "member", func(ctx context.Context) error {
		var err error
		member, err = eng.Platform.IsMember(ctx, guildID, userID)
		return err
	})
	if err != nil {
		return false, err
	}
	if member && eng.Members != nil {
		if err := eng.Members.Remember(ctx, guildID, userID); err != nil {
			eng.Logger.Warn("member cache update failed", "err", err)
		}
	}
	return member, nil
}

// Called after a member has been removed from the guild.
func (eng *Engine) forgetMember(ctx context.Context, guildID, userID string) {
	if eng.Members == nil {
		return
	}
	if err := eng.Members.Forget(ctx, guildID, userID); err != nil {
		eng.Logger.Warn("member cache purge failed", "err", err)
	}
}
