package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/guildwarden/warden/automod/casestore"
	"github.com/guildwarden/warden/automod/countstore"
	"github.com/guildwarden/warden/automod/ratestore"
	"github.com/guildwarden/warden/automod/seenstore"
)

var _ MessageRuleFunc = simpleRule

func simpleRule(c *MessageContext) error {
	if strings.Contains(strings.ToLower(c.Message.Text), "slur") {
		c.AddHit("simple")
		c.DeleteMessage()
		c.RecordCase(casestore.ActionAutomodMute, "Bad word")
	}
	return nil
}

func EngineTestFixture() Engine {
	rules := RuleSet{
		MessageRules: []MessageRuleFunc{
			simpleRule,
		},
	}
	engine := Engine{
		Logger:     slog.Default(),
		Platform:   NewMockPlatform(),
		Rules:      rules,
		Rates:      ratestore.NewMemRateStore(0, 0),
		Warnings:   countstore.NewMemCountStore(),
		Cases:      casestore.NewMemCaseStore(),
		Seen:       seenstore.NewMemSeenStore(1000, time.Hour),
		SystemID:   DefaultSystemID,
		Moderators: []string{"mod111", "mod222"},
	}
	return engine
}

// One call received by MockPlatform
type PlatformCall struct {
	Kind      string
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Reason    string
	Duration  time.Duration
	Count     int
	Locked    bool
	Text      string
}

// In-memory Platform which records every call, for use in tests.
type MockPlatform struct {
	lk    sync.Mutex
	Calls []PlatformCall
	// user ids which are not guild members. everybody else is
	NonMembers map[string]bool
	// forced failures, by call kind
	Errors map[string]error
	// user ids whose direct messages fail, as if DMs were closed
	ClosedDMs map[string]bool
	// number of messages available to PurgeMessages
	ChannelSize int
	// IsMember calls, which are not recorded in Calls
	MemberLookups int
}

func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		NonMembers:  make(map[string]bool),
		Errors:      make(map[string]error),
		ClosedDMs:   make(map[string]bool),
		ChannelSize: 1000,
	}
}

func (p *MockPlatform) record(call PlatformCall) error {
	p.lk.Lock()
	defer p.lk.Unlock()
	if err, ok := p.Errors[call.Kind]; ok {
		return err
	}
	p.Calls = append(p.Calls, call)
	return nil
}

func (p *MockPlatform) SetError(kind string, err error) {
	p.lk.Lock()
	defer p.lk.Unlock()
	p.Errors[kind] = err
}

// Returns the successful calls of the given kind, in order
func (p *MockPlatform) CallsOf(kind string) []PlatformCall {
	p.lk.Lock()
	defer p.lk.Unlock()
	out := []PlatformCall{}
	for _, c := range p.Calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (p *MockPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return p.record(PlatformCall{Kind: "delete", ChannelID: channelID, MessageID: messageID})
}

func (p *MockPlatform) TimeoutMember(ctx context.Context, guildID, userID string, d time.Duration, reason string) error {
	return p.record(PlatformCall{Kind: "timeout", GuildID: guildID, UserID: userID, Duration: d, Reason: reason})
}

func (p *MockPlatform) RemoveTimeout(ctx context.Context, guildID, userID string) error {
	return p.record(PlatformCall{Kind: "remove_timeout", GuildID: guildID, UserID: userID})
}

func (p *MockPlatform) BanMember(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	return p.record(PlatformCall{Kind: "ban", GuildID: guildID, UserID: userID, Reason: reason, Count: deleteDays})
}

func (p *MockPlatform) UnbanMember(ctx context.Context, guildID, userID string) error {
	return p.record(PlatformCall{Kind: "unban", GuildID: guildID, UserID: userID})
}

func (p *MockPlatform) KickMember(ctx context.Context, guildID, userID, reason string) error {
	return p.record(PlatformCall{Kind: "kick", GuildID: guildID, UserID: userID, Reason: reason})
}

func (p *MockPlatform) IsMember(ctx context.Context, guildID, userID string) (bool, error) {
	p.lk.Lock()
	defer p.lk.Unlock()
	p.MemberLookups++
	if err, ok := p.Errors["member"]; ok {
		return false, err
	}
	return !p.NonMembers[userID], nil
}

func (p *MockPlatform) PurgeMessages(ctx context.Context, channelID string, limit int) (int, error) {
	if err := p.record(PlatformCall{Kind: "purge", ChannelID: channelID, Count: limit}); err != nil {
		return 0, err
	}
	p.lk.Lock()
	defer p.lk.Unlock()
	return min(limit, p.ChannelSize), nil
}

func (p *MockPlatform) SetChannelLocked(ctx context.Context, guildID, channelID string, locked bool) error {
	return p.record(PlatformCall{Kind: "lock", GuildID: guildID, ChannelID: channelID, Locked: locked})
}

func (p *MockPlatform) SetSlowmode(ctx context.Context, channelID string, seconds int) error {
	return p.record(PlatformCall{Kind: "slowmode", ChannelID: channelID, Count: seconds})
}

func (p *MockPlatform) SendDirectMessage(ctx context.Context, userID, text string) error {
	p.lk.Lock()
	closed := p.ClosedDMs[userID]
	p.lk.Unlock()
	if closed {
		return &PermissionError{Op: "send dm", Err: errors.New("cannot send messages to this user")}
	}
	return p.record(PlatformCall{Kind: "dm", UserID: userID, Text: text})
}
