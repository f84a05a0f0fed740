package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guildwarden/warden/automod/casestore"
)

const (
	DefaultReason = "No reason"
	// platform cap on member timeouts
	MaxMuteDuration = 28 * 24 * time.Hour
	MaxSlowmode     = 6 * time.Hour
	// platform bulk-delete cap
	MaxPurgeCount     = 100
	SoftbanDeleteDays = 1
)

// Moderator command invocation, as parsed by the platform adapter. Only the fields relevant to a given command need to be set.
type AdminCommand struct {
	Actor     string
	GuildID   string
	ChannelID string
	Target    string
	Reason    string
	Duration  time.Duration
	Count     int
}

func (cmd *AdminCommand) reason() string {
	r := strings.TrimSpace(cmd.Reason)
	if r == "" {
		return DefaultReason
	}
	return r
}

// Acknowledgment of a completed command.
type AdminResult struct {
	// free-form text suitable for replying to the moderator
	Message string
	// zero when the command does not record a case
	CaseID       int64
	WarningCount int
	Escalation   Escalation
	// warn cases, oldest first (only for the warnings listing)
	Warnings []casestore.Case
	Deleted  int
}

func (eng *Engine) validateBase(cmd *AdminCommand) error {
	if cmd.Actor == "" {
		return &ValidationError{Field: "actor", Reason: "empty"}
	}
	if cmd.GuildID == "" {
		return &ValidationError{Field: "guild", Reason: "empty"}
	}
	return nil
}

// Checks common arguments, and that the target is currently a member of the guild. Nothing has been mutated when this returns an error.
func (eng *Engine) validateMemberCommand(ctx context.Context, cmd *AdminCommand) error {
	if err := eng.validateBase(cmd); err != nil {
		return err
	}
	if cmd.Target == "" {
		return &ValidationError{Field: "target", Reason: "empty"}
	}
	ok, err := eng.isMember(ctx, cmd.GuildID, cmd.Target)
	if err != nil {
		return fmt.Errorf("checking membership: %w", err)
	}
	if !ok {
		return &ValidationError{Field: "target", Reason: "not a member of this server"}
	}
	return nil
}

func (eng *Engine) validateChannelCommand(cmd *AdminCommand) error {
	if err := eng.validateBase(cmd); err != nil {
		return err
	}
	if cmd.ChannelID == "" {
		return &ValidationError{Field: "channel", Reason: "empty"}
	}
	return nil
}

// Records the case for a completed moderator action and notifies about it. The action itself has already happened, so a persistence failure is reported as such.
func (eng *Engine) recordAdminCase(ctx context.Context, cmd *AdminCommand, action string) (*casestore.Case, error) {
	cs, err := eng.recordCase(ctx, cmd.Target, cmd.Actor, action, cmd.reason())
	if err != nil {
		eng.Logger.Error("moderator action taken but case not recorded", "action", action, "actor", cmd.Actor, "target", cmd.Target, "err", err)
		return nil, fmt.Errorf("%s applied but case not recorded: %w", strings.ToLower(action), err)
	}
	eng.notifyCases(ctx, []casestore.Case{*cs})
	return cs, nil
}

func (eng *Engine) Ban(ctx context.Context, cmd AdminCommand) (*AdminResult, error) {
	if err := eng.validateMemberCommand(ctx, &cmd); err != nil {
		return nil, err
	}
	if err := eng.banMember(ctx, cmd.GuildID, cmd.Target, cmd.reason(), 0); err != nil {
		return nil, fmt.Errorf("ban: %w", err)
	}
	cs, err := eng.recordAdminCase(ctx, &cmd, casestore.ActionBan)
	if err != nil {
		return nil, err
	}
	return &AdminResult{
		CaseID:  cs.ID,
		Message: fmt.Sprintf("Banned <@%s> | %s (case #%d)", cmd.Target, cmd.reason(), cs.ID),
	}, nil
}

// Bans then immediately unbans, removing the member along with their recent messages.
func (eng *Engine) Softban(ctx context.Context, cmd AdminCommand) (*AdminResult, error) {
	if err := eng.validateMemberCommand(ctx, &cmd); err != nil {
		return nil, err
	}
	if err := eng.banMember(ctx, cmd.GuildID, cmd.Target, cmd.reason(), SoftbanDeleteDays); err != nil {
		return nil, fmt.Errorf("softban: %w", err)
	}
	unbanErr := eng.platformCall(ctx, "unban", func(ctx context.Context) error {
		return eng.Platform.UnbanMember(ctx, cmd.GuildID, cmd.Target)
	})
	cs, err := eng.recordAdminCase(ctx, &cmd, casestore.ActionSoftban)
	if err != nil {
		return nil, err
	}
	if unbanErr != nil {
		// the ban stands; the moderator needs to lift it by hand
		return nil, fmt.Errorf("softban case #%d recorded but unban failed, member is still banned: %w", cs.ID, unbanErr)
	}
	return &AdminResult{
		CaseID:  cs.ID,
		Message: fmt.Sprintf("Softbanned <@%s> | %s (case #%d)", cmd.Target, cmd.reason(), cs.ID),
	}, nil
}

func (eng *Engine) Kick(ctx context.Context, cmd AdminCommand) (*AdminResult, error) {
	if err := eng.validateMemberCommand(ctx, &cmd); err != nil {
		return nil, err
	}
	err := eng.platformCall(ctx, "kick", func(ctx context.Context) error {
		return eng.Platform.KickMember(ctx, cmd.GuildID, cmd.Target, cmd.reason())
	})
	if err != nil {
		return nil, fmt.Errorf("kick: %w", err)
	}
	eng.forgetMember(ctx, cmd.GuildID, cmd.Target)
	cs, err := eng.recordAdminCase(ctx, &cmd, casestore.ActionKick)
	if err != nil {
		return nil, err
	}
	return &AdminResult{
		CaseID:  cs.ID,
		Message: fmt.Sprintf("Kicked <@%s> | %s (case #%d)", cmd.Target, cmd.reason(), cs.ID),
	}, nil
}

func (eng *Engine) Mute(ctx context.Context, cmd AdminCommand) (*AdminResult, error) {
	if cmd.Duration <= 0 {
		return nil, &ValidationError{Field: "duration", Reason: "must be positive"}
	}
	if cmd.Duration > MaxMuteDuration {
		return nil, &ValidationError{Field: "duration", Reason: fmt.Sprintf("must be at most %s", MaxMuteDuration)}
	}
	if err := eng.validateMemberCommand(ctx, &cmd); err != nil {
		return nil, err
	}
	if err := eng.timeoutMember(ctx, cmd.GuildID, cmd.Target, cmd.Duration, cmd.reason()); err != nil {
		return nil, fmt.Errorf("mute: %w", err)
	}
	cs, err := eng.recordAdminCase(ctx, &cmd, casestore.ActionMute)
	if err != nil {
		return nil, err
	}
	return &AdminResult{
		CaseID:  cs.ID,
		Message: fmt.Sprintf("Muted <@%s> for %s | %s (case #%d)", cmd.Target, cmd.Duration, cmd.reason(), cs.ID),
	}, nil
}

func (eng *Engine) Unmute(ctx context.Context, cmd AdminCommand) (*AdminResult, error) {
	if err := eng.validateMemberCommand(ctx, &cmd); err != nil {
		return nil, err
	}
	err := eng.platformCall(ctx, "remove_timeout", func(ctx context.Context) error {
		return eng.Platform.RemoveTimeout(ctx, cmd.GuildID, cmd.Target)
	})
	if err != nil {
		return nil, fmt.Errorf("unmute: %w", err)
	}
	cs, err := eng.recordAdminCase(ctx, &cmd, casestore.ActionUnmute)
	if err != nil {
		return nil, err
	}
	return &AdminResult{
		CaseID:  cs.ID,
		Message: fmt.Sprintf("Unmuted <@%s> (case #%d)", cmd.Target, cs.ID),
	}, nil
}

// Increments the target's warning count, records a WARN case, then applies the escalation policy to the new count.
func (eng *Engine) Warn(ctx context.Context, cmd AdminCommand) (*AdminResult, error) {
	if err := eng.validateMemberCommand(ctx, &cmd); err != nil {
		return nil, err
	}
	count, err := eng.Warnings.Increment(ctx, cmd.Target)
	if err != nil {
		return nil, &PersistenceError{Op: "increment warnings", Err: err}
	}
	cs, caseErr := eng.recordCase(ctx, cmd.Target, cmd.Actor, casestore.ActionWarn, cmd.reason())

	// escalation is keyed on the count, so it still applies when the WARN case could not be written
	esc, escCase, escErr := eng.escalate(ctx, cmd.GuildID, cmd.Target, count)
	if escErr != nil {
		eng.Logger.Error("warning escalation failed", "target", cmd.Target, "count", count, "escalation", esc, "err", escErr)
	}

	if caseErr != nil {
		eng.Logger.Error("warning counted but case not recorded", "actor", cmd.Actor, "target", cmd.Target, "err", caseErr)
		return nil, fmt.Errorf("warning %d counted but case not recorded: %w", count, caseErr)
	}
	if escErr != nil && IsPersistenceError(escErr) {
		return nil, fmt.Errorf("warn case #%d recorded: %w", cs.ID, escErr)
	}

	newCases := []casestore.Case{*cs}
	if escCase != nil {
		newCases = append(newCases, *escCase)
	}
	eng.notifyCases(ctx, newCases)

	msg := fmt.Sprintf("Warned <@%s>: %s (case #%d, warning %d)", cmd.Target, cmd.reason(), cs.ID, count)
	switch {
	case escErr != nil:
		msg += fmt.Sprintf("; automatic %s failed: %v", esc, escErr)
	case esc == EscalationTimeout:
		msg += fmt.Sprintf("; timed out for %s", EscalationTimeoutDuration)
	case esc == EscalationBan:
		msg += "; banned"
	}
	return &AdminResult{
		CaseID:       cs.ID,
		WarningCount: count,
		Escalation:   esc,
		Message:      msg,
	}, nil
}

// Lists the target's warning count along with the reason and moderator of each active WARN case, numbered from 1.
func (eng *Engine) ListWarnings(ctx context.Context, cmd AdminCommand) (*AdminResult, error) {
	if err := eng.validateBase(&cmd); err != nil {
		return nil, err
	}
	if cmd.Target == "" {
		return nil, &ValidationError{Field: "target", Reason: "empty"}
	}
	count, err := eng.Warnings.GetCount(ctx, cmd.Target)
	if err != nil {
		return nil, &PersistenceError{Op: "get warnings", Err: err}
	}
	cases, err := eng.Cases.ListCases(ctx, cmd.Target)
	if err != nil {
		return nil, &PersistenceError{Op: "list cases", Err: err}
	}
	warns := activeWarnings(cases)

	res := &AdminResult{
		WarningCount: count,
		Warnings:     warns,
	}
	if len(warns) == 0 {
		res.Message = "No warnings."
		return res, nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "<@%s> has %d active warnings\n", cmd.Target, count)
	for i, w := range warns {
		fmt.Fprintf(&sb, "%d. %s (by <@%s>)\n", i+1, w.Reason, w.ActorID)
	}
	res.Message = sb.String()
	return res, nil
}

// WARN cases recorded after the most recent CLEAR_WARNINGS case. Earlier ones are history only.
func activeWarnings(cases []casestore.Case) []casestore.Case {
	start := 0
	for i, c := range cases {
		if c.Action == casestore.ActionClearWarnings {
			start = i + 1
		}
	}
	return casestore.FilterAction(cases[start:], casestore.ActionWarn)
}

// Resets the target's warning count to zero. Earlier WARN cases stay in the ledger.
func (eng *Engine) ClearWarnings(ctx context.Context, cmd AdminCommand) (*AdminResult, error) {
	if err := eng.validateBase(&cmd); err != nil {
		return nil, err
	}
	if cmd.Target == "" {
		return nil, &ValidationError{Field: "target", Reason: "empty"}
	}
	if err := eng.Warnings.Reset(ctx, cmd.Target); err != nil {
		return nil, &PersistenceError{Op: "reset warnings", Err: err}
	}
	cs, err := eng.recordAdminCase(ctx, &cmd, casestore.ActionClearWarnings)
	if err != nil {
		return nil, err
	}
	return &AdminResult{
		CaseID:  cs.ID,
		Message: fmt.Sprintf("Cleared warnings for <@%s> (case #%d)", cmd.Target, cs.ID),
	}, nil
}

func (eng *Engine) Purge(ctx context.Context, cmd AdminCommand) (*AdminResult, error) {
	if err := eng.validateChannelCommand(&cmd); err != nil {
		return nil, err
	}
	if cmd.Count < 1 || cmd.Count > MaxPurgeCount {
		return nil, &ValidationError{Field: "count", Reason: fmt.Sprintf("must be between 1 and %d", MaxPurgeCount)}
	}
	var n int
	err := eng.platformCall(ctx, "purge", func(ctx context.Context) error {
		var err error
		n, err = eng.Platform.PurgeMessages(ctx, cmd.ChannelID, cmd.Count)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("purge: %w", err)
	}
	return &AdminResult{
		Deleted: n,
		Message: fmt.Sprintf("Deleted %d messages", n),
	}, nil
}

func (eng *Engine) Lock(ctx context.Context, cmd AdminCommand) (*AdminResult, error) {
	return eng.setLocked(ctx, cmd, true)
}

func (eng *Engine) Unlock(ctx context.Context, cmd AdminCommand) (*AdminResult, error) {
	return eng.setLocked(ctx, cmd, false)
}

func (eng *Engine) setLocked(ctx context.Context, cmd AdminCommand, locked bool) (*AdminResult, error) {
	if err := eng.validateChannelCommand(&cmd); err != nil {
		return nil, err
	}
	op := "unlock"
	if locked {
		op = "lock"
	}
	err := eng.platformCall(ctx, op, func(ctx context.Context) error {
		return eng.Platform.SetChannelLocked(ctx, cmd.GuildID, cmd.ChannelID, locked)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if locked {
		return &AdminResult{Message: "Channel locked."}, nil
	}
	return &AdminResult{Message: "Channel unlocked."}, nil
}

// Sets the per-user message interval of the channel. A zero duration disables slowmode.
func (eng *Engine) Slowmode(ctx context.Context, cmd AdminCommand) (*AdminResult, error) {
	if err := eng.validateChannelCommand(&cmd); err != nil {
		return nil, err
	}
	if cmd.Duration < 0 || cmd.Duration > MaxSlowmode {
		return nil, &ValidationError{Field: "duration", Reason: fmt.Sprintf("must be between 0 and %s", MaxSlowmode)}
	}
	seconds := int(cmd.Duration / time.Second)
	err := eng.platformCall(ctx, "slowmode", func(ctx context.Context) error {
		return eng.Platform.SetSlowmode(ctx, cmd.ChannelID, seconds)
	})
	if err != nil {
		return nil, fmt.Errorf("slowmode: %w", err)
	}
	if seconds == 0 {
		return &AdminResult{Message: "Slowmode disabled."}, nil
	}
	return &AdminResult{Message: fmt.Sprintf("Slowmode set to %ds.", seconds)}, nil
}
