package engine

import (
	"time"
)

// Inbound chat message, as translated from the platform gateway event.
type Message struct {
	ID        string
	GuildID   string
	ChannelID string
	AuthorID  string
	// bot-authored messages are never moderated
	AuthorIsBot bool
	Text        string
	// number of distinct users mentioned in the message
	MentionCount int
	// whether the author holds the manage-messages capability in this channel
	CanManageMessages bool
	Timestamp         time.Time
}

func (m *Message) Validate() error {
	if m.ID == "" {
		return &ValidationError{Field: "message id", Reason: "empty"}
	}
	if m.ChannelID == "" {
		return &ValidationError{Field: "channel id", Reason: "empty"}
	}
	if m.AuthorID == "" {
		return &ValidationError{Field: "author id", Reason: "empty"}
	}
	return nil
}
