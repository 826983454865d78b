package lease

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	holder    string
	expiresAt time.Time
}

// MemoryStore is a process-local lease store. It backs single-instance
// deployments and tests; clustered deployments use the Postgres or Redis
// store.
type MemoryStore struct {
	mu     sync.Mutex
	leases map[string]memoryRecord
	now    func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leases: make(map[string]memoryRecord),
		now:    time.Now,
	}
}

// Acquire installs a lease unless an unexpired one is already held by
// someone else. The expiry check and the write share one lock, so steals are
// atomic.
func (s *MemoryStore) Acquire(_ context.Context, name, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rec, held := s.leases[name]; held && rec.expiresAt.After(now) {
		return false, nil
	}
	s.leases[name] = memoryRecord{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release deletes the lease only when holder matches.
func (s *MemoryStore) Release(_ context.Context, name, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, held := s.leases[name]; held && rec.holder == holder {
		delete(s.leases, name)
	}
	return nil
}

// Sweep drops every expired record.
func (s *MemoryStore) Sweep(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for name, rec := range s.leases {
		if !rec.expiresAt.After(now) {
			delete(s.leases, name)
			removed++
		}
	}
	return removed, nil
}
