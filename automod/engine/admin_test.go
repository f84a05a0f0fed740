package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guildwarden/warden/automod/cachestore"
	"github.com/guildwarden/warden/automod/casestore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminBan(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mp := eng.Platform.(*MockPlatform)

	res, err := eng.Ban(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111"})
	require.NoError(t, err)
	assert.Equal(int64(1), res.CaseID)
	assert.Contains(res.Message, DefaultReason)

	bans := mp.CallsOf("ban")
	require.Len(t, bans, 1)
	assert.Equal("user111", bans[0].UserID)
	assert.Equal(DefaultReason, bans[0].Reason)

	cases, err := eng.Cases.ListCases(ctx, "user111")
	assert.NoError(err)
	require.Len(t, cases, 1)
	assert.Equal(casestore.ActionBan, cases[0].Action)
	assert.Equal("mod111", cases[0].ActorID)
	assert.Equal(DefaultReason, cases[0].Reason)
}

func TestAdminValidation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mp := eng.Platform.(*MockPlatform)
	mp.NonMembers["ghost"] = true

	_, err := eng.Kick(ctx, AdminCommand{GuildID: "guild111", Target: "user111"})
	assert.True(IsValidationError(err))
	_, err = eng.Kick(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111"})
	assert.True(IsValidationError(err))
	_, err = eng.Kick(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "ghost"})
	assert.True(IsValidationError(err))
	_, err = eng.Warn(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "ghost"})
	assert.True(IsValidationError(err))
	_, err = eng.Mute(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111"})
	assert.True(IsValidationError(err))
	_, err = eng.Mute(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111", Duration: 30 * 24 * time.Hour})
	assert.True(IsValidationError(err))
	_, err = eng.Purge(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", ChannelID: "chan111", Count: 0})
	assert.True(IsValidationError(err))
	_, err = eng.Purge(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", ChannelID: "chan111", Count: 101})
	assert.True(IsValidationError(err))
	_, err = eng.Slowmode(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", ChannelID: "chan111", Duration: 7 * time.Hour})
	assert.True(IsValidationError(err))
	_, err = eng.Lock(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111"})
	assert.True(IsValidationError(err))

	// nothing was mutated
	assert.Empty(mp.Calls)
	count, err := eng.Warnings.GetCount(ctx, "ghost")
	assert.NoError(err)
	assert.Equal(0, count)
	cases, err := eng.Cases.ListCases(ctx, "ghost")
	assert.NoError(err)
	assert.Empty(cases)
}

func TestAdminPlatformFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mp := eng.Platform.(*MockPlatform)
	mp.SetError("kick", &PermissionError{Op: "kick", Err: errors.New("role hierarchy")})

	_, err := eng.Kick(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111"})
	assert.True(IsPermissionError(err))
	cases, err := eng.Cases.ListCases(ctx, "user111")
	assert.NoError(err)
	assert.Empty(cases)
}

func TestAdminCaseFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	eng.Cases = failingCaseStore{}

	res, err := eng.Ban(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111"})
	assert.Nil(res)
	assert.True(IsPersistenceError(err))

	res, err = eng.Warn(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111"})
	assert.Nil(res)
	assert.True(IsPersistenceError(err))
}

func TestAdminSoftban(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mp := eng.Platform.(*MockPlatform)

	res, err := eng.Softban(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111", Reason: "raid"})
	require.NoError(t, err)
	assert.NotZero(res.CaseID)
	bans := mp.CallsOf("ban")
	require.Len(t, bans, 1)
	assert.Equal(SoftbanDeleteDays, bans[0].Count)
	assert.Len(mp.CallsOf("unban"), 1)

	// unban failure is surfaced, with the case still recorded
	mp.SetError("unban", errors.New("gateway error"))
	_, err = eng.Softban(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user222"})
	assert.Error(err)
	assert.Contains(err.Error(), "still banned")
	cases, err := eng.Cases.ListCases(ctx, "user222")
	assert.NoError(err)
	require.Len(t, cases, 1)
	assert.Equal(casestore.ActionSoftban, cases[0].Action)
}

func TestAdminMuteUnmute(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mp := eng.Platform.(*MockPlatform)
	cmd := AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111", Duration: 15 * time.Minute, Reason: "cool off"}

	_, err := eng.Mute(ctx, cmd)
	require.NoError(t, err)
	timeouts := mp.CallsOf("timeout")
	require.Len(t, timeouts, 1)
	assert.Equal(15*time.Minute, timeouts[0].Duration)

	_, err = eng.Unmute(ctx, cmd)
	require.NoError(t, err)
	assert.Len(mp.CallsOf("remove_timeout"), 1)

	cases, err := eng.Cases.ListCases(ctx, "user111")
	assert.NoError(err)
	require.Len(t, cases, 2)
	assert.Equal(casestore.ActionMute, cases[0].Action)
	assert.Equal(casestore.ActionUnmute, cases[1].Action)
	assert.Less(cases[0].ID, cases[1].ID)
}

func TestAdminWarningsListing(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	cmd := AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111"}

	res, err := eng.ListWarnings(ctx, cmd)
	require.NoError(t, err)
	assert.Equal("No warnings.", res.Message)

	cmd.Reason = "spam links"
	_, err = eng.Warn(ctx, cmd)
	require.NoError(t, err)
	cmd.Reason = ""
	cmd.Actor = "mod222"
	_, err = eng.Warn(ctx, cmd)
	require.NoError(t, err)

	res, err = eng.ListWarnings(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(2, res.WarningCount)
	require.Len(t, res.Warnings, 2)
	assert.Contains(res.Message, "1. spam links (by <@mod111>)")
	assert.Contains(res.Message, "2. No reason (by <@mod222>)")
}

func TestAdminClearWarnings(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	cmd := AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111"}

	for range 2 {
		_, err := eng.Warn(ctx, cmd)
		require.NoError(t, err)
	}
	_, err := eng.ClearWarnings(ctx, cmd)
	require.NoError(t, err)
	count, err := eng.Warnings.GetCount(ctx, "user111")
	assert.NoError(err)
	assert.Equal(0, count)

	// count restarts from one, so escalation starts over
	res, err := eng.Warn(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(1, res.WarningCount)

	cases, err := eng.Cases.ListCases(ctx, "user111")
	assert.NoError(err)
	assert.Len(casestore.FilterAction(cases, casestore.ActionClearWarnings), 1)
	assert.Len(casestore.FilterAction(cases, casestore.ActionWarn), 3)

	// only the warning after the clear is listed
	listing, err := eng.ListWarnings(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(1, listing.WarningCount)
	require.Len(t, listing.Warnings, 1)
	assert.Equal(res.CaseID, listing.Warnings[0].ID)
	assert.Contains(listing.Message, "has 1 active warnings")
	assert.NotContains(listing.Message, "2.")
}

func TestAdminWarningsAfterClear(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	cmd := AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111", Reason: "old"}

	for range 2 {
		_, err := eng.Warn(ctx, cmd)
		require.NoError(t, err)
	}
	_, err := eng.ClearWarnings(ctx, cmd)
	require.NoError(t, err)

	res, err := eng.ListWarnings(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(0, res.WarningCount)
	assert.Empty(res.Warnings)
	assert.Equal("No warnings.", res.Message)
}

func TestAdminChannelCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mp := eng.Platform.(*MockPlatform)
	mp.ChannelSize = 7
	cmd := AdminCommand{Actor: "mod111", GuildID: "guild111", ChannelID: "chan111", Count: 50}

	res, err := eng.Purge(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(7, res.Deleted)

	_, err = eng.Lock(ctx, cmd)
	require.NoError(t, err)
	_, err = eng.Unlock(ctx, cmd)
	require.NoError(t, err)
	locks := mp.CallsOf("lock")
	require.Len(t, locks, 2)
	assert.True(locks[0].Locked)
	assert.False(locks[1].Locked)

	cmd.Duration = 30 * time.Second
	res, err = eng.Slowmode(ctx, cmd)
	require.NoError(t, err)
	assert.Equal("Slowmode set to 30s.", res.Message)
	slow := mp.CallsOf("slowmode")
	require.Len(t, slow, 1)
	assert.Equal(30, slow[0].Count)

	// channel commands never write cases
	cases, err := eng.Cases.ListCases(ctx, "")
	assert.NoError(err)
	assert.Empty(cases)
}

func TestAdminMemberCache(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	eng.Members = cachestore.NewMemMemberCache(100, time.Hour)
	mp := eng.Platform.(*MockPlatform)

	_, err := eng.Warn(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111"})
	require.NoError(t, err)
	_, err = eng.Warn(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111"})
	require.NoError(t, err)
	assert.Equal(1, mp.MemberLookups)

	// removal from the guild drops the cached membership
	_, err = eng.Kick(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111"})
	require.NoError(t, err)
	assert.Equal(1, mp.MemberLookups)
	mp.NonMembers["user111"] = true
	_, err = eng.Warn(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111"})
	assert.True(IsValidationError(err))
	assert.Equal(2, mp.MemberLookups)

	// negative answers are not cached
	delete(mp.NonMembers, "user111")
	_, err = eng.Warn(ctx, AdminCommand{Actor: "mod111", GuildID: "guild111", Target: "user111"})
	assert.NoError(err)
	assert.Equal(3, mp.MemberLookups)
}
