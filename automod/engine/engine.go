package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guildwarden/warden/automod/cachestore"
	"github.com/guildwarden/warden/automod/casestore"
	"github.com/guildwarden/warden/automod/countstore"
	"github.com/guildwarden/warden/automod/ratestore"
	"github.com/guildwarden/warden/automod/seenstore"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const (
	// Consequence of crossing the rate window threshold
	SpamTimeout = 5 * time.Minute
	SpamReason  = "Spam"

	DefaultSystemID      = "automod"
	DefaultActionTimeout = 10 * time.Second
)

// runtime for executing rules, managing state, and recording moderation actions.
//
// Platform, Rates, Warnings and Cases must all be set; the remaining fields are optional.
type Engine struct {
	Logger   *slog.Logger
	Platform Platform
	Rules    RuleSet
	Rates    ratestore.RateStore
	Warnings countstore.CountStore
	Cases    casestore.CaseStore
	// used to skip redelivered messages (optional)
	Seen seenstore.SeenStore
	// remembers confirmed guild memberships (optional)
	Members   cachestore.MemberCache
	Notifiers []Notifier
	// throttles all outbound platform calls (optional)
	Limiter *rate.Limiter
	// actor recorded on automod cases. defaults to DefaultSystemID
	SystemID string
	// recipients of user appeals
	Moderators    []string
	ActionTimeout time.Duration
}

func (eng *Engine) systemID() string {
	if eng.SystemID == "" {
		return DefaultSystemID
	}
	return eng.SystemID
}

func (eng *Engine) actionTimeout() time.Duration {
	if eng.ActionTimeout <= 0 {
		return DefaultActionTimeout
	}
	return eng.ActionTimeout
}

// Runs the rate monitor and content rules against a single inbound message, then carries out any resulting actions.
//
// Errors are only returned for malformed messages, or when a case could not be recorded after the platform actions were taken. Rule and platform failures are logged.
func (eng *Engine) ProcessMessage(ctx context.Context, msg Message) error {
	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "message", msg.ID, "author", msg.AuthorID)
			eventErrorCount.WithLabelValues("message").Inc()
		}
	}()

	if msg.AuthorIsBot {
		return nil
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	ctx, span := tracer.Start(ctx, "ProcessMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("guild", msg.GuildID),
		attribute.String("channel", msg.ChannelID),
		attribute.String("author", msg.AuthorID),
	)

	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("message").Inc()

	if eng.Seen != nil {
		first, err := eng.Seen.MarkSeen(ctx, "message", msg.ID)
		if err != nil {
			eng.Logger.Warn("failed to check message redelivery", "message", msg.ID, "err", err)
		} else if !first {
			eng.Logger.Debug("skipping redelivered message", "message", msg.ID)
			eventDuplicateCount.Inc()
			return nil
		}
	}

	c := NewMessageContext(ctx, eng, msg)

	flagged, err := eng.Rates.Observe(ctx, msg.AuthorID, msg.Timestamp)
	if err != nil {
		// monitor failure must not block the content rules
		c.Logger.Error("rate window observation failed", "err", err)
		eventErrorCount.WithLabelValues("rate").Inc()
		flagged = false
	}

	if flagged {
		c.AddHit("rate")
		c.DeleteMessage()
		c.TimeoutAuthor(SpamTimeout, SpamReason)
		c.RecordCase(casestore.ActionAutomodMute, SpamReason)
	} else if err := eng.Rules.CallMessageRules(&c); err != nil {
		c.Logger.Error("automod rule execution failed", "err", err)
		eventErrorCount.WithLabelValues("message").Inc()
	}

	eng.CanonicalLogLine(&c)
	if err := eng.persistMessageEffects(&c); err != nil {
		eventErrorCount.WithLabelValues("message").Inc()
		return fmt.Errorf("persisting automod effects: %w", err)
	}
	return nil
}

// Logs a single summary line per evaluated message which triggered anything
func (eng *Engine) CanonicalLogLine(c *MessageContext) {
	eff := c.effects
	if eff.Empty() {
		return
	}
	c.Logger.Info("canonical-event-line",
		"hits", eff.Hits,
		"delete", eff.DeleteMessage,
		"timeouts", len(eff.Timeouts),
		"cases", len(eff.Cases),
	)
}
