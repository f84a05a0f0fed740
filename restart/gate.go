// Confirmation flow for remotely restarting the bot.
//
// A restart takes two steps: an actor requests a challenge, then answers it with their own secret. Secrets are checked against per-actor bcrypt hashes, never a shared password. Every answer, approved or not, is appended to the audit log, and the supervisor is only signalled once the approval has been durably logged. The process never re-executes itself; the supervisor hands that job to the service manager.
package restart

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const DefaultChallengeTTL = 2 * time.Minute

type Challenge struct {
	ID        string
	Actor     string
	ExpiresAt time.Time
}

type Gate struct {
	Logger      *slog.Logger
	Credentials *Credentials
	Audit       *AuditLog
	Supervisor  Supervisor
	TTL         time.Duration

	mu sync.Mutex
	// outstanding challenges, by id. at most one per actor
	challenges map[string]Challenge
	now        func() time.Time
}

func NewGate(logger *slog.Logger, creds *Credentials, audit *AuditLog, sup Supervisor) *Gate {
	return &Gate{
		Logger:      logger,
		Credentials: creds,
		Audit:       audit,
		Supervisor:  sup,
		TTL:         DefaultChallengeTTL,
		challenges:  make(map[string]Challenge),
		now:         time.Now,
	}
}

// Issues a fresh challenge for the actor, replacing any earlier one they had outstanding.
func (g *Gate) RequestRestart(actor string) (Challenge, error) {
	if actor == "" {
		return Challenge{}, fmt.Errorf("empty actor")
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return Challenge{}, fmt.Errorf("generating challenge: %w", err)
	}
	ttl := g.TTL
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	for id, ch := range g.challenges {
		if ch.Actor == actor || now.After(ch.ExpiresAt) {
			delete(g.challenges, id)
		}
	}
	ch := Challenge{
		ID:        hex.EncodeToString(buf),
		Actor:     actor,
		ExpiresAt: now.Add(ttl),
	}
	g.challenges[ch.ID] = ch
	return ch, nil
}

// Removes and returns the challenge. Challenges are single-use whatever the outcome.
func (g *Gate) takeChallenge(id string) (Challenge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.challenges[id]
	if ok {
		delete(g.challenges, id)
	}
	return ch, ok
}

// Checks the actor's answer to a challenge. The attempt is audited before anything else happens; if the audit line can't be written the restart does not go ahead.
//
// Returns OutcomeSuccess only when the supervisor accepted the restart.
func (g *Gate) SubmitCredential(ctx context.Context, challengeID, actor, secret string) (Outcome, error) {
	logger := g.Logger.With("actor", actor)

	approved := true
	ch, ok := g.takeChallenge(challengeID)
	switch {
	case !ok:
		logger.Warn("restart denied: unknown challenge")
		approved = false
	case ch.Actor != actor:
		logger.Warn("restart denied: challenge issued to another actor", "issued_to", ch.Actor)
		approved = false
	case g.now().After(ch.ExpiresAt):
		logger.Warn("restart denied: challenge expired")
		approved = false
	case !g.Credentials.Verify(actor, secret):
		logger.Warn("restart denied: bad credential")
		approved = false
	}

	if !approved {
		if err := g.Audit.Record(actor, OutcomeFail); err != nil {
			return OutcomeFail, err
		}
		return OutcomeFail, nil
	}

	if err := g.Audit.Record(actor, OutcomeSuccess); err != nil {
		logger.Error("restart approved but not audited, refusing", "err", err)
		return OutcomeFail, err
	}
	logger.Info("restart approved")
	if err := g.Supervisor.Restart(ctx, actor); err != nil {
		return OutcomeFail, fmt.Errorf("signalling supervisor: %w", err)
	}
	return OutcomeSuccess, nil
}
