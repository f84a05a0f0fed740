package restart

import (
	"context"
	"sync"
)

// Exit status asking the service manager to start the process again (EX_TEMPFAIL).
const ExitCodeRestart = 75

// Performs the actual restart once an attempt is approved and audited.
type Supervisor interface {
	Restart(ctx context.Context, actor string) error
}

// Supervisor which stops the running daemon by cancelling its context. The command line wrapper then exits with ExitCodeRestart, and the service manager (systemd, docker, etc) brings the process back up.
type ExitSupervisor struct {
	cancel context.CancelFunc

	mu        sync.Mutex
	requested bool
	actor     string
}

func NewExitSupervisor(cancel context.CancelFunc) *ExitSupervisor {
	return &ExitSupervisor{cancel: cancel}
}

func (s *ExitSupervisor) Restart(ctx context.Context, actor string) error {
	s.mu.Lock()
	s.requested = true
	s.actor = actor
	s.mu.Unlock()
	s.cancel()
	return nil
}

// Whether a restart was approved, and by whom.
func (s *ExitSupervisor) Requested() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested, s.actor
}
