package engine

import (
	"context"
	"errors"
	"time"

	"github.com/guildwarden/warden/automod/casestore"
)

// Carries out the accumulated effects of a message: deletion first (at most once), then timeouts, then case records.
//
// Platform failures are logged and do not stop later steps. Case write failures are returned, joined, after every action has run; the platform action stands even when its case could not be recorded.
func (eng *Engine) persistMessageEffects(c *MessageContext) error {
	eff := c.effects
	msg := c.Message
	ctx := c.Ctx

	for _, hit := range eff.Hits {
		ruleHitCount.WithLabelValues(hit).Inc()
	}

	if eff.DeleteMessage {
		err := eng.deleteMessage(ctx, msg.ChannelID, msg.ID)
		switch {
		case err == nil:
		case IsNotFoundError(err):
			c.Logger.Debug("message already gone")
		case IsPermissionError(err):
			c.Logger.Warn("not permitted to delete message", "err", err)
		default:
			c.Logger.Error("failed to delete message", "err", err)
		}
	}

	for _, to := range eff.Timeouts {
		if err := eng.timeoutMember(ctx, msg.GuildID, msg.AuthorID, to.Duration, to.Reason); err != nil {
			c.Logger.Error("failed to timeout author", "duration", to.Duration, "err", err)
		}
	}

	var errs []error
	newCases := []casestore.Case{}
	for _, ca := range eff.Cases {
		cs, err := eng.recordCase(ctx, msg.AuthorID, eng.systemID(), ca.Action, ca.Reason)
		if err != nil {
			c.Logger.Error("action taken but case not recorded", "action", ca.Action, "err", err)
			errs = append(errs, err)
			continue
		}
		newCases = append(newCases, *cs)
	}

	eng.notifyCases(ctx, newCases)
	return errors.Join(errs...)
}

// Appends one case to the ledger, returning it with the assigned identifier.
func (eng *Engine) recordCase(ctx context.Context, subject, actor, action, reason string) (*casestore.Case, error) {
	cs := casestore.Case{
		SubjectID: subject,
		ActorID:   actor,
		Action:    action,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	id, err := eng.Cases.AddCase(ctx, cs)
	if err != nil {
		casePersistErrorCount.Inc()
		return nil, &PersistenceError{Op: "add case", Err: err}
	}
	cs.ID = id
	caseNewCount.WithLabelValues(action).Inc()
	return &cs, nil
}
