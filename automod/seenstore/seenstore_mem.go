package seenstore

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type MemSeenStore struct {
	lk   sync.Mutex
	Data *expirable.LRU[string, struct{}]
}

var _ SeenStore = (*MemSeenStore)(nil)

func NewMemSeenStore(capacity int, ttl time.Duration) *MemSeenStore {
	return &MemSeenStore{
		Data: expirable.NewLRU[string, struct{}](capacity, nil, ttl),
	}
}

func (s *MemSeenStore) MarkSeen(ctx context.Context, name, key string) (bool, error) {
	k := name + "/" + key
	// the LRU is safe on its own, but contains+add must not interleave
	s.lk.Lock()
	defer s.lk.Unlock()
	// Get (unlike Contains) treats entries past their TTL as missing
	if _, ok := s.Data.Get(k); ok {
		return false, nil
	}
	s.Data.Add(k, struct{}{})
	return true, nil
}
