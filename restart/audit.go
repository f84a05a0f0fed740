package restart

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFail    Outcome = "FAIL"
)

// Append-only text log of restart attempts, one line per attempt:
//
//	[2024-05-01T12:00:00Z] 123456789012345678 → SUCCESS
type AuditLog struct {
	path string
	file *os.File
	mu   sync.Mutex
	now  func() time.Time
}

func OpenAuditLog(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	return &AuditLog{
		path: path,
		file: file,
		now:  time.Now,
	}, nil
}

func FormatAuditLine(ts time.Time, actor string, outcome Outcome) string {
	return fmt.Sprintf("[%s] %s → %s\n", ts.UTC().Format(time.RFC3339), actor, outcome)
}

// Appends one line and syncs it to disk before returning.
func (l *AuditLog) Record(actor string, outcome Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := FormatAuditLine(l.now(), actor, outcome)
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}
	return nil
}

func (l *AuditLog) Path() string {
	return l.path
}

func (l *AuditLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
