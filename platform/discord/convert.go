package discord

import (
	"github.com/guildwarden/warden/automod/engine"

	"github.com/bwmarrin/discordgo"
)

func ConvertMessage(state *discordgo.State, m *discordgo.MessageCreate) engine.Message {
	msg := engine.Message{
		ID:           m.ID,
		GuildID:      m.GuildID,
		ChannelID:    m.ChannelID,
		Text:         m.Content,
		MentionCount: distinctMentions(m.Message),
		Timestamp:    m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorIsBot = m.Author.Bot
		msg.CanManageMessages = channelPermissions(state, m.Author.ID, m.ChannelID)&discordgo.PermissionManageMessages != 0
	}
	return msg
}

func distinctMentions(m *discordgo.Message) int {
	seen := make(map[string]bool, len(m.Mentions))
	for _, u := range m.Mentions {
		if u != nil {
			seen[u.ID] = true
		}
	}
	return len(seen)
}

// Computed permissions of the user in the channel, from the gateway state cache. Zero when the state does not know enough.
func channelPermissions(state *discordgo.State, userID, channelID string) int64 {
	if state == nil {
		return 0
	}
	perms, err := state.UserChannelPermissions(userID, channelID)
	if err != nil {
		return 0
	}
	return perms
}
