package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildwarden/warden/automod/engine"

	"github.com/bwmarrin/discordgo"
)

// Receives gateway events. discordgo runs each handler call on its own goroutine, so messages are processed concurrently.
type Handler struct {
	Logger *slog.Logger
	Engine *engine.Engine
	// prefix commands are ignored when nil
	Router *Router

	ctx context.Context
}

func (h *Handler) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	ctx := h.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	// direct messages are never moderated, but can carry commands
	if m.GuildID != "" {
		msg := ConvertMessage(s.State, m)
		if err := h.Engine.ProcessMessage(ctx, msg); err != nil {
			h.Logger.Error("failed to process message", "message", m.ID, "err", err)
		}
	}

	if h.Router == nil {
		return
	}
	inv := Invocation{
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		MessageID:   m.ID,
		AuthorID:    m.Author.ID,
		Permissions: channelPermissions(s.State, m.Author.ID, m.ChannelID),
		Content:     m.Content,
	}
	reply, ok := h.Router.Dispatch(ctx, inv)
	if !ok || reply == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply, discordgo.WithContext(ctx)); err != nil {
		h.Logger.Warn("failed to send command reply", "channel", m.ChannelID, "err", err)
	}
}

func (h *Handler) onReady(s *discordgo.Session, r *discordgo.Ready) {
	h.Logger.Info("connected to discord gateway", "user", r.User.Username, "guilds", len(r.Guilds))
}

// Connects to the gateway and processes events until the context is cancelled.
func (h *Handler) Run(ctx context.Context, s *discordgo.Session) error {
	h.ctx = ctx
	s.AddHandler(h.onReady)
	s.AddHandler(h.OnMessageCreate)
	if err := s.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	<-ctx.Done()
	h.Logger.Info("closing discord gateway")
	if err := s.Close(); err != nil {
		return fmt.Errorf("closing discord gateway: %w", err)
	}
	return nil
}
