package admin

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenTTL is how long an admin login stays valid.
const DefaultTokenTTL = 24 * time.Hour

// TokenStore issues opaque bearer tokens that expire after a fixed TTL.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenStore creates a store. A non-positive ttl means DefaultTokenTTL.
func NewTokenStore(ttl time.Duration, now func() time.Time) *TokenStore {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TokenStore{tokens: make(map[string]time.Time), ttl: ttl, now: now}
}

// Issue creates a token and returns it with its expiry.
func (s *TokenStore) Issue() (string, time.Time) {
	token := uuid.NewString()
	expires := s.now().Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = expires
	return token, expires
}

// Valid reports whether token was issued and has not expired. Expired tokens
// are forgotten.
func (s *TokenStore) Valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.tokens[token]
	if !ok {
		return false
	}
	if !s.now().Before(expires) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// Revoke forgets token.
func (s *TokenStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Sweep drops expired tokens and returns how many were removed.
func (s *TokenStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, expires := range s.tokens {
		if !now.Before(expires) {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed
}
