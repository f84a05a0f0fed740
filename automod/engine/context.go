package engine

import (
	"context"
	"log/slog"
	"time"
)

// Passed to rule functions. Wraps the message being evaluated along with the engine and an effects accumulator.
type MessageContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context
	// Logger with the message and author already attached
	Logger  *slog.Logger
	Message Message

	engine  *Engine
	effects *Effects
}

func NewMessageContext(ctx context.Context, eng *Engine, msg Message) MessageContext {
	logger := eng.Logger.With("message", msg.ID, "guild", msg.GuildID, "channel", msg.ChannelID, "author", msg.AuthorID)
	return MessageContext{
		Ctx:     ctx,
		Logger:  logger,
		Message: msg,
		engine:  eng,
		effects: &Effects{},
	}
}

func (c *MessageContext) Effects() *Effects {
	return c.effects
}

// Identity recorded as the actor on cases written by automod
func (c *MessageContext) SystemID() string {
	return c.engine.systemID()
}

// Records that the named rule fired on this message
func (c *MessageContext) AddHit(rule string) {
	c.effects.AddHit(rule)
}

// Enqueues deletion of the message being evaluated
func (c *MessageContext) DeleteMessage() {
	c.effects.Delete()
}

// Enqueues a timeout of the message author
func (c *MessageContext) TimeoutAuthor(d time.Duration, reason string) {
	c.effects.AddTimeout(d, reason)
}

// Enqueues a case against the message author, with the system identity as actor
func (c *MessageContext) RecordCase(action, reason string) {
	c.effects.AddCase(action, reason)
}
