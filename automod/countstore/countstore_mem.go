package countstore

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

type MemCountStore struct {
	Counts *xsync.MapOf[string, int]
}

var _ CountStore = (*MemCountStore)(nil)

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		Counts: xsync.NewMapOf[string, int](),
	}
}

func (s *MemCountStore) GetCount(ctx context.Context, userID string) (int, error) {
	v, ok := s.Counts.Load(userID)
	if !ok {
		return 0, nil
	}
	return v, nil
}

func (s *MemCountStore) Increment(ctx context.Context, userID string) (int, error) {
	// Compute holds the bucket lock for the key while the function runs
	v, _ := s.Counts.Compute(userID, func(old int, loaded bool) (int, bool) {
		return old + 1, false
	})
	return v, nil
}

func (s *MemCountStore) Reset(ctx context.Context, userID string) error {
	s.Counts.Delete(userID)
	return nil
}
