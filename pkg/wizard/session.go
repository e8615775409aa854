package wizard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 15 * time.Minute

// State is the position of a session in its wizard.
type State string

const (
	StateAwaitingTemplate State = "awaiting_template"
	StateStep1            State = "step1"
	StateStep2            State = "step2"
	StateStep3            State = "step3"
	StateRendering        State = "rendering"
	StateDispatched       State = "dispatched"
	StateAbandoned        State = "abandoned"

	StateSettings1 State = "settings_step1"
	StateSettings2 State = "settings_step2"
)

// Session accumulates one user's answers between steps.
type Session struct {
	UserID     string            `json:"userId"`
	TemplateID string            `json:"templateId,omitempty"`
	State      State             `json:"state"`
	Fields     map[string]string `json:"fields"`
	// Unlimited records the access decision taken when the session started.
	Unlimited bool      `json:"unlimited"`
	CreatedAt time.Time `json:"createdAt"`
	TouchedAt time.Time `json:"touchedAt"`
	Version   uint64    `json:"version"`
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	return &out
}

// Merge copies values into the session fields.
func (s *Session) Merge(values map[string]string) {
	if s.Fields == nil {
		s.Fields = make(map[string]string, len(values))
	}
	for k, v := range values {
		s.Fields[k] = v
	}
}

// Tx is the view a WithSession callback works on.
type Tx struct {
	// Session is a private copy of the live session, nil when none is live.
	// Assign a new value to replace it.
	Session *Session
	Now     time.Time

	save  bool
	clear bool
}

// Save stores tx.Session when the callback returns without error.
func (tx *Tx) Save() { tx.save = true }

// Clear removes the session, whatever the callback returns.
func (tx *Tx) Clear() { tx.clear = true }

type entry struct {
	mu      sync.Mutex
	session *Session
}

// SessionStore keeps at most one session per user. WithSession holds the
// user's lock for the whole read-modify-write so transitions never interleave.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]*entry

	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// StoreOption customises a SessionStore.
type StoreOption func(*SessionStore)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *SessionStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithStoreClock overrides the time source.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreLogger reports sweeps to logger.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSessionStore creates an empty store.
func NewSessionStore(opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		entries: make(map[string]*entry),
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// TTL returns the idle lifetime of a session.
func (s *SessionStore) TTL() time.Duration { return s.ttl }

// WithSession runs fn under the lock of key, the user id for orders. An expired session is dropped
// before fn sees it. Changes are committed as described on Tx; every commit
// bumps Version and refreshes TouchedAt.
func (s *SessionStore) WithSession(ctx context.Context, key string, fn func(tx *Tx) error) error {
	e := s.lock(key)
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.now()
	if e.session != nil && s.expired(e.session, now) {
		e.session = nil
	}

	tx := &Tx{Session: e.session.clone(), Now: now}
	err := fn(tx)

	switch {
	case tx.clear:
		e.session = nil
	case err != nil || !tx.save || tx.Session == nil:
	default:
		next := tx.Session.clone()
		if next.UserID == "" {
			next.UserID = key
		}
		next.Version = 1
		if e.session != nil {
			next.Version = e.session.Version + 1
		}
		if next.CreatedAt.IsZero() {
			next.CreatedAt = now
		}
		next.TouchedAt = now
		e.session = next
	}
	return err
}

// Get returns a copy of the live session.
func (s *SessionStore) Get(ctx context.Context, userID string) (Session, bool) {
	var out *Session
	_ = s.WithSession(ctx, userID, func(tx *Tx) error {
		out = tx.Session
		return nil
	})
	if out == nil {
		return Session{}, false
	}
	return *out, true
}

// lock returns the user's entry locked. The entry is re-checked after locking
// because a sweep may have unlinked it in between.
func (s *SessionStore) lock(userID string) *entry {
	for {
		s.mu.Lock()
		e, ok := s.entries[userID]
		if !ok {
			e = &entry{}
			s.entries[userID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		s.mu.Lock()
		current := s.entries[userID] == e
		s.mu.Unlock()
		if current {
			return e
		}
		e.mu.Unlock()
	}
}

func (s *SessionStore) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.TouchedAt) >= s.ttl
}

// Sweep unlinks empty and expired entries. Entries locked by a running
// transition are skipped and picked up by a later sweep.
func (s *SessionStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.session == nil || s.expired(e.session, now) {
			if e.session != nil {
				removed++
			}
			e.session = nil
			delete(s.entries, userID)
		}
		e.mu.Unlock()
	}
	return removed
}

// Len counts live and pending entries.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run sweeps every interval until ctx is cancelled.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.logger.Debug("expired wizard sessions swept", zap.Int("count", n))
			}
		}
	}
}
