package discord

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/guildwarden/warden/automod/engine"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func restError(status int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
}

func TestClassify(t *testing.T) {
	assert := assert.New(t)

	assert.Nil(classify("op", nil))
	assert.True(engine.IsPermissionError(classify("op", restError(http.StatusForbidden))))
	assert.True(engine.IsNotFoundError(classify("op", restError(http.StatusNotFound))))

	err := classify("op", restError(http.StatusInternalServerError))
	assert.False(engine.IsPermissionError(err))
	assert.False(engine.IsNotFoundError(err))

	plain := errors.New("connection reset")
	assert.Equal(plain, classify("op", plain))
}

func TestLockOverwrite(t *testing.T) {
	assert := assert.New(t)

	allow, deny := lockOverwrite(discordgo.PermissionSendMessages|discordgo.PermissionAddReactions, 0, true)
	assert.Equal(int64(discordgo.PermissionAddReactions), allow)
	assert.Equal(int64(discordgo.PermissionSendMessages), deny)

	allow, deny = lockOverwrite(allow, deny|discordgo.PermissionAttachFiles, false)
	assert.Equal(int64(discordgo.PermissionAddReactions), allow)
	assert.Equal(int64(discordgo.PermissionAttachFiles), deny)
}

func TestConvertMessage(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()
	u1 := &discordgo.User{ID: "u1"}
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "msg111",
		GuildID:   "guild111",
		ChannelID: "chan111",
		Content:   "hey <@u1> <@u1> <@u2>",
		Author:    &discordgo.User{ID: userID},
		Mentions:  []*discordgo.User{u1, u1, {ID: "u2"}},
		Timestamp: now,
	}}
	msg := ConvertMessage(discordgo.NewState(), m)
	assert.Equal("msg111", msg.ID)
	assert.Equal(userID, msg.AuthorID)
	assert.Equal(2, msg.MentionCount)
	assert.False(msg.AuthorIsBot)
	assert.False(msg.CanManageMessages)
	assert.Equal(now, msg.Timestamp)
}
