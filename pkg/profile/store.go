// Package profile persists the shipping and billing details a user saves via
// the settings wizard.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/storage"
)

// Store reads and writes user profiles. Get reports false when the user never
// saved one.
type Store interface {
	Get(ctx context.Context, userID string) (model.UserProfile, bool, error)
	Set(ctx context.Context, userID string, p model.UserProfile) error
}

// MemoryStore keeps profiles in process.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]model.UserProfile
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]model.UserProfile)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (model.UserProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	return p, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, userID string, p model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = p
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS user_profiles (
	user_id     TEXT PRIMARY KEY,
	full_name   TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	street      TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	postal_code TEXT NOT NULL DEFAULT '',
	country     TEXT NOT NULL DEFAULT ''
)`

// SQLiteStore persists profiles in the shared database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore migrates the profile table on db.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("profile: database is required")
	}
	if err := storage.Migrate(ctx, db, schema); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID string) (model.UserProfile, bool, error) {
	var p model.UserProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT full_name, email, street, city, postal_code, country
		FROM user_profiles WHERE user_id = ?`, userID,
	).Scan(&p.FullName, &p.Email, &p.Street, &p.City, &p.PostalCode, &p.Country)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserProfile{}, false, nil
	}
	if err != nil {
		return model.UserProfile{}, false, fmt.Errorf("profile: get %s: %w", userID, err)
	}
	return p, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, userID string, p model.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, full_name, email, street, city, postal_code, country)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			full_name   = excluded.full_name,
			email       = excluded.email,
			street      = excluded.street,
			city        = excluded.city,
			postal_code = excluded.postal_code,
			country     = excluded.country`,
		userID, p.FullName, p.Email, p.Street, p.City, p.PostalCode, p.Country)
	if err != nil {
		return fmt.Errorf("profile: set %s: %w", userID, err)
	}
	return nil
}
