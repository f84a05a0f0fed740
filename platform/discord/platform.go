// Binding of the automod engine to Discord, using discordgo.
//
// Platform implements engine.Platform over the REST API. Handler receives gateway events, runs every guild message through the engine, and hands prefix commands (like `!warn @user reason`) to the Router.
package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/guildwarden/warden/automod/engine"

	"github.com/bwmarrin/discordgo"
)

// discord refuses to bulk-delete messages older than this
const bulkDeleteMaxAge = 14 * 24 * time.Hour

var _ engine.Platform = (*Platform)(nil)

type Platform struct {
	Session *discordgo.Session
}

func NewPlatform(s *discordgo.Session) *Platform {
	return &Platform{Session: s}
}

func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := p.Session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	return classify("delete message", err)
}

func (p *Platform) TimeoutMember(ctx context.Context, guildID, userID string, d time.Duration, reason string) error {
	until := time.Now().Add(d)
	err := p.Session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return classify("timeout member", err)
}

func (p *Platform) RemoveTimeout(ctx context.Context, guildID, userID string) error {
	err := p.Session.GuildMemberTimeout(guildID, userID, nil, discordgo.WithContext(ctx))
	return classify("remove timeout", err)
}

func (p *Platform) BanMember(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	err := p.Session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays, discordgo.WithContext(ctx))
	return classify("ban member", err)
}

func (p *Platform) UnbanMember(ctx context.Context, guildID, userID string) error {
	err := p.Session.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx))
	return classify("unban member", err)
}

func (p *Platform) KickMember(ctx context.Context, guildID, userID, reason string) error {
	err := p.Session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
	return classify("kick member", err)
}

func (p *Platform) IsMember(ctx context.Context, guildID, userID string) (bool, error) {
	if p.Session.State != nil {
		if _, err := p.Session.State.Member(guildID, userID); err == nil {
			return true, nil
		}
	}
	_, err := p.Session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		err = classify("get member", err)
		if engine.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *Platform) PurgeMessages(ctx context.Context, channelID string, limit int) (int, error) {
	msgs, err := p.Session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, classify("list messages", err)
	}
	cutoff := time.Now().Add(-bulkDeleteMaxAge)
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Timestamp.After(cutoff) {
			ids = append(ids, m.ID)
		}
	}
	switch len(ids) {
	case 0:
		return 0, nil
	case 1:
		// bulk delete requires at least two messages
		err = p.Session.ChannelMessageDelete(channelID, ids[0], discordgo.WithContext(ctx))
	default:
		err = p.Session.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx))
	}
	if err != nil {
		return 0, classify("purge messages", err)
	}
	return len(ids), nil
}

// Denies (or stops denying) the send-messages permission to @everyone, leaving the rest of the channel's overwrite as it was.
func (p *Platform) SetChannelLocked(ctx context.Context, guildID, channelID string, locked bool) error {
	// the @everyone role shares its id with the guild
	everyone := guildID
	var allow, deny int64
	if p.Session.State != nil {
		if ch, err := p.Session.State.Channel(channelID); err == nil {
			for _, po := range ch.PermissionOverwrites {
				if po.ID == everyone && po.Type == discordgo.PermissionOverwriteTypeRole {
					allow, deny = po.Allow, po.Deny
				}
			}
		}
	}
	allow, deny = lockOverwrite(allow, deny, locked)
	err := p.Session.ChannelPermissionSet(channelID, everyone, discordgo.PermissionOverwriteTypeRole, allow, deny, discordgo.WithContext(ctx))
	return classify("set channel permissions", err)
}

func lockOverwrite(allow, deny int64, locked bool) (int64, int64) {
	if locked {
		return allow &^ discordgo.PermissionSendMessages, deny | discordgo.PermissionSendMessages
	}
	return allow, deny &^ discordgo.PermissionSendMessages
}

func (p *Platform) SetSlowmode(ctx context.Context, channelID string, seconds int) error {
	_, err := p.Session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{
		RateLimitPerUser: &seconds,
	}, discordgo.WithContext(ctx))
	return classify("edit channel", err)
}

func (p *Platform) SendDirectMessage(ctx context.Context, userID, text string) error {
	ch, err := p.Session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return classify("open dm channel", err)
	}
	if _, err := p.Session.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx)); err != nil {
		return classify("send dm", err)
	}
	return nil
}

// Sets up a session with the gateway intents the bot needs. The session is not opened.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuilds
	s.StateEnabled = true
	return s, nil
}
