package access_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-orderwizard/pkg/access"
)

var codeShape = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

func newCodeStore(t *testing.T) (*access.CodeStore, *access.SQLiteStore) {
	t.Helper()
	db := openDB(t)
	gate := newSQLiteStore(t, db)
	codes, err := access.NewCodeStore(context.Background(), db, gate, access.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new code store: %v", err)
	}
	return codes, gate
}

func TestNewCode_Shape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := access.NewCode()
		if err != nil {
			t.Fatalf("new code: %v", err)
		}
		if !codeShape.MatchString(code) {
			t.Fatalf("unexpected code shape %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 50 {
		t.Fatalf("expected distinct codes, got %d", len(seen))
	}
}

func TestCodeStore_GenerateBounds(t *testing.T) {
	codes, _ := newCodeStore(t)
	ctx := context.Background()

	for _, n := range []int{0, access.MaxGenerate + 1} {
		if _, err := codes.Generate(ctx, access.CodeLifetime, n); !goerrors.IsCategory(err, goerrors.CategoryBadInput) {
			t.Fatalf("count %d: expected bad input, got %v", n, err)
		}
	}
	if _, err := codes.Generate(ctx, access.CodeType("weekly"), 1); err == nil {
		t.Fatalf("expected unknown type error")
	}
}

func TestCodeStore_RedeemGrantsAccess(t *testing.T) {
	codes, gate := newCodeStore(t)
	ctx := context.Background()

	issued, err := codes.Generate(ctx, access.Code31Days, 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(issued) != 3 {
		t.Fatalf("expected 3 codes, got %d", len(issued))
	}

	redeemed, err := codes.Redeem(ctx, "  "+strings.ToLower(issued[0].Code)+" ", "u1")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !redeemed.Used || redeemed.UsedBy != "u1" {
		t.Fatalf("expected used code, got %+v", redeemed)
	}

	st, err := gate.Status(ctx, "u1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Unlimited || st.DaysLeft != 31 {
		t.Fatalf("expected 31 unlimited days, got %+v", st)
	}

	_, err = codes.Redeem(ctx, issued[0].Code, "u2")
	if !goerrors.IsCategory(err, goerrors.CategoryConflict) {
		t.Fatalf("expected already used conflict, got %v", err)
	}
	_, err = codes.Redeem(ctx, "AAAA-BBBB-CCCC-DDDD", "u2")
	if !goerrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCodeStore_ListAndStats(t *testing.T) {
	codes, _ := newCodeStore(t)
	ctx := context.Background()

	life, err := codes.Generate(ctx, access.CodeLifetime, 2)
	if err != nil {
		t.Fatalf("generate lifetime: %v", err)
	}
	if _, err := codes.Generate(ctx, access.Code31Days, 3); err != nil {
		t.Fatalf("generate 31days: %v", err)
	}
	if _, err := codes.Redeem(ctx, life[0].Code, "u1"); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	counts := map[access.CodeFilter]int{
		access.FilterAll:      5,
		access.FilterLifetime: 2,
		access.Filter31Days:   3,
		access.FilterUsed:     1,
		access.FilterUnused:   4,
	}
	for filter, want := range counts {
		list, err := codes.List(ctx, filter)
		if err != nil {
			t.Fatalf("list %s: %v", filter, err)
		}
		if len(list) != want {
			t.Fatalf("filter %s: expected %d codes, got %d", filter, want, len(list))
		}
	}

	stats, err := codes.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := access.CodeStats{Total: 5, Unused: 4, Used: 1, Lifetime: 2, Days31: 3}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestParseCodeFilter(t *testing.T) {
	if f, err := access.ParseCodeFilter(""); err != nil || f != access.FilterAll {
		t.Fatalf("expected all filter, got %q %v", f, err)
	}
	if _, err := access.ParseCodeFilter("expired"); err == nil {
		t.Fatalf("expected error for unknown filter")
	}
}

type flakyGate struct {
	access.Gate
	fail bool
}

func (g *flakyGate) Grant(ctx context.Context, userID string, grant access.Grant) error {
	if g.fail {
		return errors.New("ledger offline")
	}
	return g.Gate.Grant(ctx, userID, grant)
}

func TestCodeStore_RedeemReleasesCodeWhenGrantFails(t *testing.T) {
	db := openDB(t)
	gate := &flakyGate{Gate: newSQLiteStore(t, db), fail: true}
	codes, err := access.NewCodeStore(context.Background(), db, gate, access.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new code store: %v", err)
	}
	ctx := context.Background()

	issued, err := codes.Generate(ctx, access.CodeLifetime, 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := codes.Redeem(ctx, issued[0].Code, "u1"); err == nil || !strings.Contains(err.Error(), "ledger offline") {
		t.Fatalf("expected grant failure, got %v", err)
	}

	unused, err := codes.List(ctx, access.FilterUnused)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(unused) != 1 || unused[0].Code != issued[0].Code || unused[0].UsedBy != "" {
		t.Fatalf("expected the code back in the unused pool, got %+v", unused)
	}

	gate.fail = false
	redeemed, err := codes.Redeem(ctx, issued[0].Code, "u1")
	if err != nil {
		t.Fatalf("redeem after recovery: %v", err)
	}
	if !redeemed.Used || redeemed.UsedBy != "u1" {
		t.Fatalf("expected used code, got %+v", redeemed)
	}
}
