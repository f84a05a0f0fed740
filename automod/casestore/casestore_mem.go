package casestore

import (
	"context"
	"sync"
	"time"
)

type MemCaseStore struct {
	lk     sync.Mutex
	lastID int64
	Cases  []Case
}

var _ CaseStore = (*MemCaseStore)(nil)

func NewMemCaseStore() *MemCaseStore {
	return &MemCaseStore{
		Cases: []Case{},
	}
}

func (s *MemCaseStore) AddCase(ctx context.Context, c Case) (int64, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	s.lastID++
	c.ID = s.lastID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.Cases = append(s.Cases, c)
	return c.ID, nil
}

func (s *MemCaseStore) ListCases(ctx context.Context, subject string) ([]Case, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	out := []Case{}
	for _, c := range s.Cases {
		if c.SubjectID == subject {
			out = append(out, c)
		}
	}
	return out, nil
}
