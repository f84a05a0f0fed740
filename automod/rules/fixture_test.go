package rules

import (
	"context"

	"github.com/guildwarden/warden/automod"
	"github.com/guildwarden/warden/automod/engine"
)

func engineFixture() automod.Engine {
	eng := engine.EngineTestFixture()
	eng.Rules = DefaultRules()
	return eng
}

func messageContext(eng *automod.Engine, msg automod.Message) automod.MessageContext {
	if msg.ID == "" {
		msg.ID = "msg111"
	}
	if msg.ChannelID == "" {
		msg.ChannelID = "chan111"
	}
	if msg.AuthorID == "" {
		msg.AuthorID = "user111"
	}
	return engine.NewMessageContext(context.Background(), eng, msg)
}
