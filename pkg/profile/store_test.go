package profile_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/profile"
	"github.com/goliatone/go-orderwizard/pkg/storage"
)

func exerciseStore(t *testing.T, store profile.Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "u1"); err != nil || ok {
		t.Fatalf("expected no profile, got ok=%v err=%v", ok, err)
	}

	want := model.UserProfile{
		FullName:   "Anna Nowak",
		Email:      "anna@example.com",
		Street:     "ul. Długa 5",
		City:       "Kraków",
		PostalCode: "30-001",
		Country:    "Poland",
	}
	if err := store.Set(ctx, "u1", want); err != nil {
		t.Fatalf("set: %v", err)
	}
	want.City = "Gdańsk"
	if err := store.Set(ctx, "u1", want); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, ok, err := store.Get(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, profile.NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "profiles.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	store, err := profile.NewSQLiteStore(context.Background(), db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	exerciseStore(t, store)
}
