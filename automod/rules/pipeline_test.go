package rules

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/guildwarden/warden/automod"
	"github.com/guildwarden/warden/automod/casestore"
	"github.com/guildwarden/warden/automod/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRulesPipeline(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := engineFixture()
	mp := eng.Platform.(*engine.MockPlatform)
	now := time.Now()

	msg := automod.Message{
		ID:           "m1",
		GuildID:      "guild111",
		ChannelID:    "chan111",
		AuthorID:     "user111",
		Text:         "LOOK AT THIS HTTPS://SPAM.EXAMPLE.COM",
		MentionCount: 6,
		Timestamp:    now,
	}
	require.NoError(t, eng.ProcessMessage(ctx, msg))

	// all three rules fire, but the message is only deleted once
	assert.Len(mp.CallsOf("delete"), 1)
	timeouts := mp.CallsOf("timeout")
	require.Len(t, timeouts, 1)
	assert.Equal(10*time.Minute, timeouts[0].Duration)
	cases, err := eng.Cases.ListCases(ctx, "user111")
	assert.NoError(err)
	require.Len(t, cases, 1)
	assert.Equal(MassMentionReason, cases[0].Reason)
	assert.Equal(engine.DefaultSystemID, cases[0].ActorID)
}

func TestLinkAndCapsWriteNoCases(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := engineFixture()
	mp := eng.Platform.(*engine.MockPlatform)
	now := time.Now()

	require.NoError(t, eng.ProcessMessage(ctx, automod.Message{ID: "m1", GuildID: "guild111", ChannelID: "chan111", AuthorID: "user111", Text: "http://x", Timestamp: now}))
	require.NoError(t, eng.ProcessMessage(ctx, automod.Message{ID: "m2", GuildID: "guild111", ChannelID: "chan111", AuthorID: "user111", Text: "AAAAAAAAAA!", Timestamp: now.Add(time.Second)}))

	assert.Len(mp.CallsOf("delete"), 2)
	assert.Empty(mp.CallsOf("timeout"))
	cases, err := eng.Cases.ListCases(ctx, "user111")
	assert.NoError(err)
	assert.Empty(cases)
}

func TestSpamShortCircuitsRules(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := engineFixture()
	mp := eng.Platform.(*engine.MockPlatform)
	now := time.Now()

	for i := range 5 {
		msg := automod.Message{
			ID:           fmt.Sprintf("m%d", i),
			GuildID:      "guild111",
			ChannelID:    "chan111",
			AuthorID:     "user111",
			Text:         "hi",
			MentionCount: 0,
			Timestamp:    now.Add(time.Duration(i) * time.Second),
		}
		if i == 4 {
			msg.MentionCount = 10
		}
		require.NoError(t, eng.ProcessMessage(ctx, msg))
	}

	timeouts := mp.CallsOf("timeout")
	require.Len(t, timeouts, 1)
	assert.Equal(engine.SpamTimeout, timeouts[0].Duration)
	cases, err := eng.Cases.ListCases(ctx, "user111")
	assert.NoError(err)
	require.Len(t, cases, 1)
	assert.Equal(casestore.ActionAutomodMute, cases[0].Action)
	assert.Equal(engine.SpamReason, cases[0].Reason)

	// the first message has aged out, but the window is back at five
	require.NoError(t, eng.ProcessMessage(ctx, automod.Message{ID: "m5", GuildID: "guild111", ChannelID: "chan111", AuthorID: "user111", Text: "hi", Timestamp: now.Add(5 * time.Second)}))
	assert.Len(mp.CallsOf("timeout"), 2)
}
