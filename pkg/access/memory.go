package access

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Gate for tests and single-run tools.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	opts    options
}

// NewMemoryStore creates an empty ledger.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		opts:    buildOptions(opts),
	}
}

var _ Gate = (*MemoryStore)(nil)

func (s *MemoryStore) Check(_ context.Context, userID string) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	return Evaluate(rec, ok, s.opts.now()), nil
}

func (s *MemoryStore) ConsumeOne(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok || !rec.Counted || rec.Remaining <= 0 {
		return 0, ErrNoUses
	}
	rec.Remaining--
	s.records[userID] = rec
	return rec.Remaining, nil
}

func (s *MemoryStore) Grant(_ context.Context, userID string, grant Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[userID]
	rec.UserID = userID
	s.records[userID] = apply(rec, grant)
	return nil
}

func (s *MemoryStore) RevokeAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
	return nil
}

func (s *MemoryStore) Status(_ context.Context, userID string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	return StatusOf(userID, rec, ok, s.opts.now()), nil
}
