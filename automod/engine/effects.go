package engine

import (
	"sync"
	"time"
)

type TimeoutAction struct {
	Duration time.Duration
	Reason   string
}

type CaseAction struct {
	Action string
	Reason string
}

// Mutable container for all the enforcement actions from rules evaluated against a single message.
//
// All fields should be accessed through methods, to ensure thread-safety (including when rules run in parallel).
type Effects struct {
	mu sync.Mutex
	// Names of rules which fired, for logging and metrics.
	Hits []string
	// The message should be deleted. Deletion happens at most once no matter how many rules ask for it.
	DeleteMessage bool
	// Timeouts to apply to the message author, in order.
	Timeouts []TimeoutAction
	// Case ledger entries to record against the message author, in order. Always written after the platform actions.
	Cases []CaseAction
}

func (e *Effects) AddHit(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Hits = append(e.Hits, name)
}

func (e *Effects) Delete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.DeleteMessage = true
}

func (e *Effects) AddTimeout(d time.Duration, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Timeouts = append(e.Timeouts, TimeoutAction{Duration: d, Reason: reason})
}

func (e *Effects) AddCase(action, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Cases = append(e.Cases, CaseAction{Action: action, Reason: reason})
}

func (e *Effects) Empty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Hits) == 0 && !e.DeleteMessage && len(e.Timeouts) == 0 && len(e.Cases) == 0
}
