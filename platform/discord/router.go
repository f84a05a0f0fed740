package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/guildwarden/warden/automod/engine"
	"github.com/guildwarden/warden/restart"

	"github.com/bwmarrin/discordgo"
)

const DefaultPrefix = "!"

var (
	errMissingArgs = errors.New("missing arguments")
	errNoPerms     = errors.New("missing permissions")
	errGuildOnly   = errors.New("guild only")
	errDMOnly      = errors.New("dm only")
)

// A prefix command, as received.
type Invocation struct {
	GuildID   string
	ChannelID string
	MessageID string
	AuthorID  string
	// computed permissions of the author in the channel
	Permissions int64
	Content     string
}

func (inv *Invocation) isDM() bool {
	return inv.GuildID == ""
}

type command struct {
	perm      int64
	guildOnly bool
	dmOnly    bool
	run       func(ctx context.Context, r *Router, inv *Invocation, args []string) (string, error)
}

// Parses prefix commands and runs them against the engine.
type Router struct {
	Logger *slog.Logger
	Engine *engine.Engine
	// restart commands are disabled when nil
	Gate   *restart.Gate
	Prefix string
}

func (r *Router) prefix() string {
	if r.Prefix == "" {
		return DefaultPrefix
	}
	return r.Prefix
}

// Splits "!warn <@123> being rude" into "warn" and its arguments. Command names are case-insensitive.
func ParseCommand(prefix, content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

var mentionRegex = regexp.MustCompile(`^<@!?(\d+)>$`)
var snowflakeRegex = regexp.MustCompile(`^\d{15,21}$`)

// Accepts a user mention or a raw user id.
func ParseUserID(arg string) (string, bool) {
	if m := mentionRegex.FindStringSubmatch(arg); m != nil {
		return m[1], true
	}
	if snowflakeRegex.MatchString(arg) {
		return arg, true
	}
	return "", false
}

// Like time.ParseDuration, plus a "d" suffix for days. A bare number is seconds.
func ParseDuration(arg string) (time.Duration, error) {
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return scaleDuration(arg, n, time.Second)
	}
	if days, ok := strings.CutSuffix(arg, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", arg)
		}
		return scaleDuration(arg, n, 24*time.Hour)
	}
	d, err := time.ParseDuration(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", arg)
	}
	return d, nil
}

func scaleDuration(arg string, n int64, unit time.Duration) (time.Duration, error) {
	limit := int64(math.MaxInt64 / unit)
	if n > limit || n < -limit {
		return 0, fmt.Errorf("duration %q out of range", arg)
	}
	return time.Duration(n) * unit, nil
}

// Handles the message if it is a known command, returning the reply to send back to the channel.
func (r *Router) Dispatch(ctx context.Context, inv Invocation) (string, bool) {
	name, args, ok := ParseCommand(r.prefix(), inv.Content)
	if !ok {
		return "", false
	}
	cmd, ok := commands[name]
	if !ok {
		return "", false
	}
	logger := r.Logger.With("command", name, "actor", inv.AuthorID, "guild", inv.GuildID)

	var reply string
	var err error
	switch {
	case cmd.guildOnly && inv.isDM():
		err = errGuildOnly
	case cmd.dmOnly && !inv.isDM():
		err = errDMOnly
	case cmd.perm != 0 && !hasPermission(inv.Permissions, cmd.perm):
		err = errNoPerms
	default:
		reply, err = cmd.run(ctx, r, &inv, args)
	}
	if err != nil {
		logger.Info("command failed", "err", err)
		return errorReply(logger, err), true
	}
	logger.Info("command executed")
	return reply, true
}

func hasPermission(have, want int64) bool {
	if have&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return have&want == want
}

func errorReply(logger *slog.Logger, err error) string {
	var ve *engine.ValidationError
	switch {
	case errors.Is(err, errNoPerms):
		return "❌ You don't have permission."
	case errors.Is(err, errMissingArgs):
		return "❌ Missing arguments."
	case errors.Is(err, errGuildOnly):
		return "❌ This command only works in a server."
	case errors.Is(err, errDMOnly):
		return "❌ This command only works in direct messages."
	case errors.As(err, &ve):
		return "❌ " + ve.Error()
	case engine.IsPermissionError(err):
		return "❌ I don't have permission to do that."
	case engine.IsNotFoundError(err):
		return "❌ Not found."
	case engine.IsPersistenceError(err):
		logger.Error("command could not be recorded", "err", err)
		return "⚠️ The action may have been applied, but it could not be recorded."
	default:
		logger.Error("command error", "err", err)
		return "⚠️ An error occurred."
	}
}

// Builds the admin command for "<user> [reason...]" style arguments.
func memberCommand(inv *Invocation, args []string) (engine.AdminCommand, error) {
	if len(args) < 1 {
		return engine.AdminCommand{}, errMissingArgs
	}
	target, ok := ParseUserID(args[0])
	if !ok {
		return engine.AdminCommand{}, &engine.ValidationError{Field: "user", Reason: fmt.Sprintf("%q is not a user mention", args[0])}
	}
	return engine.AdminCommand{
		Actor:     inv.AuthorID,
		GuildID:   inv.GuildID,
		ChannelID: inv.ChannelID,
		Target:    target,
		Reason:    strings.Join(args[1:], " "),
	}, nil
}

func channelCommand(inv *Invocation) engine.AdminCommand {
	return engine.AdminCommand{
		Actor:     inv.AuthorID,
		GuildID:   inv.GuildID,
		ChannelID: inv.ChannelID,
	}
}

type adminFunc func(*engine.Engine, context.Context, engine.AdminCommand) (*engine.AdminResult, error)

func memberAction(f adminFunc) func(ctx context.Context, r *Router, inv *Invocation, args []string) (string, error) {
	return func(ctx context.Context, r *Router, inv *Invocation, args []string) (string, error) {
		cmd, err := memberCommand(inv, args)
		if err != nil {
			return "", err
		}
		res, err := f(r.Engine, ctx, cmd)
		if err != nil {
			return "", err
		}
		return res.Message, nil
	}
}

func runMute(ctx context.Context, r *Router, inv *Invocation, args []string) (string, error) {
	if len(args) < 2 {
		return "", errMissingArgs
	}
	d, err := ParseDuration(args[1])
	if err != nil {
		return "", &engine.ValidationError{Field: "duration", Reason: err.Error()}
	}
	cmd, err := memberCommand(inv, append(args[:1:1], args[2:]...))
	if err != nil {
		return "", err
	}
	cmd.Duration = d
	res, err := r.Engine.Mute(ctx, cmd)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func runPurge(ctx context.Context, r *Router, inv *Invocation, args []string) (string, error) {
	if len(args) < 1 {
		return "", errMissingArgs
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return "", &engine.ValidationError{Field: "count", Reason: fmt.Sprintf("%q is not a number", args[0])}
	}
	cmd := channelCommand(inv)
	cmd.Count = n
	res, err := r.Engine.Purge(ctx, cmd)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func runSlowmode(ctx context.Context, r *Router, inv *Invocation, args []string) (string, error) {
	if len(args) < 1 {
		return "", errMissingArgs
	}
	d, err := ParseDuration(args[0])
	if err != nil {
		return "", &engine.ValidationError{Field: "duration", Reason: err.Error()}
	}
	cmd := channelCommand(inv)
	cmd.Duration = d
	res, err := r.Engine.Slowmode(ctx, cmd)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func channelAction(f adminFunc) func(ctx context.Context, r *Router, inv *Invocation, args []string) (string, error) {
	return func(ctx context.Context, r *Router, inv *Invocation, args []string) (string, error) {
		res, err := f(r.Engine, ctx, channelCommand(inv))
		if err != nil {
			return "", err
		}
		return res.Message, nil
	}
}

func runAppeal(ctx context.Context, r *Router, inv *Invocation, args []string) (string, error) {
	if len(args) < 1 {
		return "", errMissingArgs
	}
	n, err := r.Engine.Appeal(ctx, inv.AuthorID, strings.Join(args, " "))
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "⚠️ Your appeal could not be delivered to any moderator.", nil
	}
	return "📨 Your appeal was sent to the moderators.", nil
}

func runRestart(ctx context.Context, r *Router, inv *Invocation, args []string) (string, error) {
	if r.Gate == nil {
		return "❌ Remote restart is not enabled.", nil
	}
	ch, err := r.Gate.RequestRestart(inv.AuthorID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🔐 Restart requested. Within %s, reply with `%sconfirm %s <secret>`.", time.Until(ch.ExpiresAt).Round(time.Second), r.prefix(), ch.ID), nil
}

func runConfirm(ctx context.Context, r *Router, inv *Invocation, args []string) (string, error) {
	if r.Gate == nil {
		return "❌ Remote restart is not enabled.", nil
	}
	if len(args) < 2 {
		return "", errMissingArgs
	}
	out, err := r.Gate.SubmitCredential(ctx, args[0], inv.AuthorID, strings.Join(args[1:], " "))
	if err != nil {
		return "", err
	}
	if out != restart.OutcomeSuccess {
		return "❌ Restart denied.", nil
	}
	return "🔄 Restarting.", nil
}

var commands = map[string]command{
	"ban":           {perm: discordgo.PermissionBanMembers, guildOnly: true, run: memberAction((*engine.Engine).Ban)},
	"softban":       {perm: discordgo.PermissionBanMembers, guildOnly: true, run: memberAction((*engine.Engine).Softban)},
	"kick":          {perm: discordgo.PermissionKickMembers, guildOnly: true, run: memberAction((*engine.Engine).Kick)},
	"mute":          {perm: discordgo.PermissionModerateMembers, guildOnly: true, run: runMute},
	"unmute":        {perm: discordgo.PermissionModerateMembers, guildOnly: true, run: memberAction((*engine.Engine).Unmute)},
	"warn":          {perm: discordgo.PermissionModerateMembers, guildOnly: true, run: memberAction((*engine.Engine).Warn)},
	"warnings":      {perm: discordgo.PermissionModerateMembers, guildOnly: true, run: memberAction((*engine.Engine).ListWarnings)},
	"clearwarnings": {perm: discordgo.PermissionModerateMembers, guildOnly: true, run: memberAction((*engine.Engine).ClearWarnings)},
	"purge":         {perm: discordgo.PermissionManageMessages, guildOnly: true, run: runPurge},
	"lock":          {perm: discordgo.PermissionManageChannels, guildOnly: true, run: channelAction((*engine.Engine).Lock)},
	"unlock":        {perm: discordgo.PermissionManageChannels, guildOnly: true, run: channelAction((*engine.Engine).Unlock)},
	"slowmode":      {perm: discordgo.PermissionManageChannels, guildOnly: true, run: runSlowmode},
	"appeal":        {run: runAppeal},
	"restart":       {dmOnly: true, run: runRestart},
	"confirm":       {dmOnly: true, run: runConfirm},
}
