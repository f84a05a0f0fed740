package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/guildwarden/warden/automod/casestore"
)

// Consequence automatically applied after a warning.
type Escalation string

const (
	EscalationNone    Escalation = ""
	EscalationTimeout Escalation = "timeout"
	EscalationBan     Escalation = "ban"
)

const (
	// Exact match: only the third warning triggers the timeout, not the fourth.
	EscalationTimeoutCount    = 3
	EscalationTimeoutDuration = 10 * time.Minute
	// Threshold: every warning from the fifth on triggers a ban.
	EscalationBanCount = 5
)

// Returns the consequence for a user whose warning count just became "count". Count 4 maps to nothing.
func EscalationFor(count int) Escalation {
	switch {
	case count >= EscalationBanCount:
		return EscalationBan
	case count == EscalationTimeoutCount:
		return EscalationTimeout
	default:
		return EscalationNone
	}
}

// Applies the escalation policy for a freshly incremented warning count. The platform action comes first, then a case by the system identity.
//
// Returns the escalation which was attempted, and the case if one was recorded.
func (eng *Engine) escalate(ctx context.Context, guildID, userID string, count int) (Escalation, *casestore.Case, error) {
	esc := EscalationFor(count)
	var action string
	var err error
	reason := fmt.Sprintf("Reached %d warnings", count)
	switch esc {
	case EscalationNone:
		return esc, nil, nil
	case EscalationTimeout:
		action = casestore.ActionAutomodMute
		err = eng.timeoutMember(ctx, guildID, userID, EscalationTimeoutDuration, reason)
	case EscalationBan:
		action = casestore.ActionAutomodBan
		err = eng.banMember(ctx, guildID, userID, reason, 0)
	}
	if err != nil {
		return esc, nil, fmt.Errorf("escalation %s: %w", esc, err)
	}
	escalationCount.WithLabelValues(string(esc)).Inc()

	cs, err := eng.recordCase(ctx, userID, eng.systemID(), action, reason)
	if err != nil {
		return esc, nil, fmt.Errorf("escalation %s: %w", esc, err)
	}
	return esc, cs, nil
}
