package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-orderwizard/pkg/storage"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS access_ledger (
	user_id    TEXT PRIMARY KEY,
	expires_at INTEGER,
	remaining  INTEGER NOT NULL DEFAULT 0 CHECK (remaining >= 0),
	counted    INTEGER NOT NULL DEFAULT 0
)`

// SQLiteStore is the persistent Gate.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

var _ Gate = (*SQLiteStore)(nil)

// NewSQLiteStore migrates the ledger table on db.
func NewSQLiteStore(ctx context.Context, db *sql.DB, opts ...Option) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("access: database is required")
	}
	if err := storage.Migrate(ctx, db, ledgerSchema); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, opts: buildOptions(opts)}, nil
}

func (s *SQLiteStore) Check(ctx context.Context, userID string) (Decision, error) {
	rec, ok, err := s.load(ctx, s.db, userID)
	if err != nil {
		return Decision{}, err
	}
	return Evaluate(rec, ok, s.opts.now()), nil
}

func (s *SQLiteStore) Status(ctx context.Context, userID string) (Status, error) {
	rec, ok, err := s.load(ctx, s.db, userID)
	if err != nil {
		return Status{}, err
	}
	return StatusOf(userID, rec, ok, s.opts.now()), nil
}

func (s *SQLiteStore) ConsumeOne(ctx context.Context, userID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("access: begin consume: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE access_ledger SET remaining = remaining - 1 WHERE user_id = ? AND counted = 1 AND remaining > 0`,
		userID)
	if err != nil {
		return 0, fmt.Errorf("access: consume %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNoUses
	}

	rec, _, err := s.load(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("access: commit consume: %w", err)
	}
	return rec.Remaining, nil
}

func (s *SQLiteStore) Grant(ctx context.Context, userID string, grant Grant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("access: begin grant: %w", err)
	}
	defer tx.Rollback()

	rec, _, err := s.load(ctx, tx, userID)
	if err != nil {
		return err
	}
	rec = apply(rec, grant)

	var expires sql.NullInt64
	if rec.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: rec.ExpiresAt.Unix(), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO access_ledger (user_id, expires_at, remaining, counted) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			expires_at = excluded.expires_at,
			remaining  = excluded.remaining,
			counted    = excluded.counted`,
		userID, expires, rec.Remaining, rec.Counted)
	if err != nil {
		return fmt.Errorf("access: grant %s: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("access: commit grant: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RevokeAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM access_ledger`); err != nil {
		return fmt.Errorf("access: revoke all: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) load(ctx context.Context, q queryer, userID string) (Record, bool, error) {
	var (
		expires   sql.NullInt64
		remaining int
		counted   bool
	)
	err := q.QueryRowContext(ctx,
		`SELECT expires_at, remaining, counted FROM access_ledger WHERE user_id = ?`, userID,
	).Scan(&expires, &remaining, &counted)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{UserID: userID}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("access: load %s: %w", userID, err)
	}

	rec := Record{UserID: userID, Remaining: remaining, Counted: counted}
	if expires.Valid {
		t := time.Unix(expires.Int64, 0).UTC()
		rec.ExpiresAt = &t
	}
	return rec, true, nil
}
