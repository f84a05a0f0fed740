// Automod component for the append-only ledger of moderation cases.
//
// Each case is an immutable record of one moderation action. The ledger assigns case identifiers at insert time; identifiers are unique and strictly increasing over the lifetime of the ledger, including under concurrent inserts.
//
// Includes an interface and implementations using an SQL database (via gorm) and in-process memory.
package casestore

import (
	"context"
	"time"
)

const (
	ActionWarn          = "WARN"
	ActionBan           = "BAN"
	ActionSoftban       = "SOFTBAN"
	ActionKick          = "KICK"
	ActionMute          = "MUTE"
	ActionUnmute        = "UNMUTE"
	ActionClearWarnings = "CLEAR_WARNINGS"
	ActionAutomodMute   = "AUTOMOD_MUTE"
	ActionAutomodBan    = "AUTOMOD_BAN"
)

// Immutable
type Case struct {
	ID        int64
	SubjectID string
	ActorID   string
	Action    string
	Reason    string
	CreatedAt time.Time
}

type CaseStore interface {
	// Inserts the case and returns the identifier assigned to it. Any ID set by the caller is ignored.
	AddCase(ctx context.Context, c Case) (int64, error)
	// Lists all cases for the subject, in insertion order.
	ListCases(ctx context.Context, subject string) ([]Case, error)
}

// Returns only the cases with the given action kind, preserving order.
func FilterAction(cases []Case, action string) []Case {
	out := []Case{}
	for _, c := range cases {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}
