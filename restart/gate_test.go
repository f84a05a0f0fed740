package restart

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// records how much of the audit log existed at the moment it was signalled
type recordingSupervisor struct {
	path     string
	calls    []string
	auditLen []int
}

func (s *recordingSupervisor) Restart(ctx context.Context, actor string) error {
	s.calls = append(s.calls, actor)
	raw, _ := os.ReadFile(s.path)
	s.auditLen = append(s.auditLen, strings.Count(string(raw), "\n"))
	return nil
}

func gateFixture(t *testing.T) (*Gate, *recordingSupervisor) {
	path := filepath.Join(t.TempDir(), "restart.log")
	al, err := OpenAuditLog(path)
	require.NoError(t, err)
	t.Cleanup(func() { al.Close() })
	sup := &recordingSupervisor{path: path}
	creds := testCredentials(t, "owner111", "hunter2", "owner222", "swordfish")
	return NewGate(slog.Default(), creds, al, sup), sup
}

func auditLines(t *testing.T, g *Gate) []string {
	raw, err := os.ReadFile(g.Audit.Path())
	require.NoError(t, err)
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestGateApproved(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	g, sup := gateFixture(t)
	ch, err := g.RequestRestart("owner111")
	require.NoError(t, err)
	assert.Len(ch.ID, 32)
	assert.Equal("owner111", ch.Actor)

	out, err := g.SubmitCredential(ctx, ch.ID, "owner111", "hunter2")
	assert.NoError(err)
	assert.Equal(OutcomeSuccess, out)
	assert.Equal([]string{"owner111"}, sup.calls)
	// the success line was on disk before the supervisor ran
	assert.Equal([]int{1}, sup.auditLen)

	lines := auditLines(t, g)
	require.Len(t, lines, 1)
	assert.True(strings.HasSuffix(lines[0], "owner111 → SUCCESS"))

	// single use
	out, err = g.SubmitCredential(ctx, ch.ID, "owner111", "hunter2")
	assert.NoError(err)
	assert.Equal(OutcomeFail, out)
	assert.Len(sup.calls, 1)
}

func TestGateDenied(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	g, sup := gateFixture(t)

	// wrong secret
	ch, err := g.RequestRestart("owner111")
	require.NoError(t, err)
	out, err := g.SubmitCredential(ctx, ch.ID, "owner111", "wrong")
	assert.NoError(err)
	assert.Equal(OutcomeFail, out)

	// another actor's secret does not work either
	ch, err = g.RequestRestart("owner111")
	require.NoError(t, err)
	out, err = g.SubmitCredential(ctx, ch.ID, "owner111", "swordfish")
	assert.NoError(err)
	assert.Equal(OutcomeFail, out)

	// challenge issued to someone else
	ch, err = g.RequestRestart("owner222")
	require.NoError(t, err)
	out, err = g.SubmitCredential(ctx, ch.ID, "owner111", "hunter2")
	assert.NoError(err)
	assert.Equal(OutcomeFail, out)

	// unknown challenge
	out, err = g.SubmitCredential(ctx, "deadbeef", "owner111", "hunter2")
	assert.NoError(err)
	assert.Equal(OutcomeFail, out)

	assert.Empty(sup.calls)
	lines := auditLines(t, g)
	require.Len(t, lines, 4)
	for _, l := range lines {
		assert.True(strings.HasSuffix(l, "→ FAIL"), l)
	}
}

func TestGateExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	g, sup := gateFixture(t)
	now := time.Now()
	g.now = func() time.Time { return now }

	ch, err := g.RequestRestart("owner111")
	require.NoError(t, err)
	assert.Equal(now.Add(DefaultChallengeTTL), ch.ExpiresAt)

	g.now = func() time.Time { return now.Add(DefaultChallengeTTL + time.Second) }
	out, err := g.SubmitCredential(ctx, ch.ID, "owner111", "hunter2")
	assert.NoError(err)
	assert.Equal(OutcomeFail, out)
	assert.Empty(sup.calls)
}

func TestGateReplacesChallenge(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	g, _ := gateFixture(t)
	first, err := g.RequestRestart("owner111")
	require.NoError(t, err)
	second, err := g.RequestRestart("owner111")
	require.NoError(t, err)
	assert.NotEqual(first.ID, second.ID)

	out, err := g.SubmitCredential(ctx, first.ID, "owner111", "hunter2")
	assert.NoError(err)
	assert.Equal(OutcomeFail, out)
	out, err = g.SubmitCredential(ctx, second.ID, "owner111", "hunter2")
	assert.NoError(err)
	assert.Equal(OutcomeSuccess, out)
}

func TestGateAuditFailureBlocksRestart(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	g, sup := gateFixture(t)
	ch, err := g.RequestRestart("owner111")
	require.NoError(t, err)
	require.NoError(t, g.Audit.Close())

	out, err := g.SubmitCredential(ctx, ch.ID, "owner111", "hunter2")
	assert.Error(err)
	assert.Equal(OutcomeFail, out)
	assert.Empty(sup.calls)
}

func TestExitSupervisor(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	sup := NewExitSupervisor(cancel)
	ok, _ := sup.Requested()
	assert.False(ok)

	assert.NoError(sup.Restart(ctx, "owner111"))
	ok, actor := sup.Requested()
	assert.True(ok)
	assert.Equal("owner111", actor)
	assert.Error(ctx.Err())
}
