package admin

import (
	"testing"
	"time"
)

func TestTokenStore_Expiry(t *testing.T) {
	now := time.Date(2024, 12, 22, 10, 0, 0, 0, time.UTC)
	store := NewTokenStore(time.Minute, func() time.Time { return now })

	token, expires := store.Issue()
	if !expires.Equal(now.Add(time.Minute)) {
		t.Fatalf("expires %v", expires)
	}
	if !store.Valid(token) {
		t.Fatalf("fresh token should be valid")
	}

	stale, _ := store.Issue()
	now = now.Add(time.Minute)
	if store.Valid(token) {
		t.Fatalf("expired token should be invalid")
	}
	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("sweep removed %d, want 1 (%s)", removed, stale)
	}
	if store.Valid("") {
		t.Fatalf("empty token should be invalid")
	}
}

func TestTokenStore_Revoke(t *testing.T) {
	store := NewTokenStore(0, nil)
	token, _ := store.Issue()
	store.Revoke(token)
	if store.Valid(token) {
		t.Fatalf("revoked token should be invalid")
	}
}
