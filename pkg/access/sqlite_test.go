package access_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-orderwizard/pkg/access"
	"github.com/goliatone/go-orderwizard/pkg/storage"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "access.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newSQLiteStore(t *testing.T, db *sql.DB) *access.SQLiteStore {
	t.Helper()
	store, err := access.NewSQLiteStore(context.Background(), db, access.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	return store
}

func TestSQLiteStore(t *testing.T) {
	exerciseGate(t, newSQLiteStore(t, openDB(t)))
}

func TestSQLiteStore_GrantKeepsOtherColumn(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t, openDB(t))

	if err := store.Grant(ctx, "u2", access.GrantUses(5)); err != nil {
		t.Fatalf("grant uses: %v", err)
	}
	past := now.Add(-time.Hour)
	if err := store.Grant(ctx, "u2", access.Grant{Until: &past}); err != nil {
		t.Fatalf("grant until: %v", err)
	}

	st, err := store.Status(ctx, "u2")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Allowed || st.Unlimited || st.Remaining != 5 {
		t.Fatalf("expected counter to survive expiry update, got %+v", st)
	}
}
