package access

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-orderwizard/pkg/storage"
)

// CodeType selects how much access a redeem code grants.
type CodeType string

const (
	CodeLifetime CodeType = "lifetime"
	Code31Days   CodeType = "31days"
)

// MaxGenerate bounds a single Generate call.
const MaxGenerate = 1000

// Text codes of redeem failures.
const (
	TextCodeNotFound    = "CODE_NOT_FOUND"
	TextCodeAlreadyUsed = "CODE_ALREADY_USED"
	TextCodeBadRequest  = "CODE_BAD_REQUEST"
)

// Days is the access period granted by the code type.
func (t CodeType) Days() int {
	if t == CodeLifetime {
		return 36500
	}
	return 31
}

// ParseCodeType accepts "lifetime" and "31days" (or "31").
func ParseCodeType(s string) (CodeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(CodeLifetime):
		return CodeLifetime, nil
	case string(Code31Days), "31":
		return Code31Days, nil
	}
	return "", badRequest(fmt.Sprintf("unknown code type %q, use lifetime or 31days", s))
}

// CodeFilter narrows List.
type CodeFilter string

const (
	FilterAll      CodeFilter = "all"
	Filter31Days   CodeFilter = "31days"
	FilterLifetime CodeFilter = "lifetime"
	FilterUnused   CodeFilter = "unused"
	FilterUsed     CodeFilter = "used"
)

// ParseCodeFilter maps an empty filter to FilterAll.
func ParseCodeFilter(s string) (CodeFilter, error) {
	f := CodeFilter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FilterAll, nil
	case FilterAll, Filter31Days, FilterLifetime, FilterUnused, FilterUsed:
		return f, nil
	}
	return "", badRequest(fmt.Sprintf("unknown filter %q", s))
}

// Code is one issued redeem code.
type Code struct {
	Code      string     `json:"code"`
	Type      CodeType   `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`
	Used      bool       `json:"used"`
	UsedBy    string     `json:"usedBy,omitempty"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
}

// CodeStats summarises the issued codes.
type CodeStats struct {
	Total    int `json:"total"`
	Unused   int `json:"unused"`
	Used     int `json:"used"`
	Lifetime int `json:"lifetime"`
	Days31   int `json:"days31"`
}

const codesSchema = `
CREATE TABLE IF NOT EXISTS redeem_codes (
	code       TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	used       INTEGER NOT NULL DEFAULT 0,
	used_by    TEXT,
	used_at    INTEGER
)`

// CodeStore issues redeem codes and turns a redeemed code into a Grant on gate.
type CodeStore struct {
	db   *sql.DB
	gate Gate
	opts options
}

// NewCodeStore migrates the codes table on db.
func NewCodeStore(ctx context.Context, db *sql.DB, gate Gate, opts ...Option) (*CodeStore, error) {
	if db == nil || gate == nil {
		return nil, fmt.Errorf("access: code store needs a database and a gate")
	}
	if err := storage.Migrate(ctx, db, codesSchema); err != nil {
		return nil, err
	}
	return &CodeStore{db: db, gate: gate, opts: buildOptions(opts)}, nil
}

// Generate issues count new codes of the given type, unique across the store.
func (s *CodeStore) Generate(ctx context.Context, typ CodeType, count int) ([]Code, error) {
	if count < 1 || count > MaxGenerate {
		return nil, badRequest(fmt.Sprintf("count must be between 1 and %d", MaxGenerate))
	}
	if _, err := ParseCodeType(string(typ)); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("access: begin generate: %w", err)
	}
	defer tx.Rollback()

	now := s.opts.now().UTC()
	out := make([]Code, 0, count)
	for len(out) < count {
		code, err := NewCode()
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO redeem_codes (code, type, created_at) VALUES (?, ?, ?)`,
			code, string(typ), now.Unix())
		if err != nil {
			return nil, fmt.Errorf("access: insert code: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		out = append(out, Code{Code: code, Type: typ, CreatedAt: time.Unix(now.Unix(), 0).UTC()})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("access: commit generate: %w", err)
	}
	return out, nil
}

// Redeem marks code used by userID and grants its access period. Codes are
// matched case-insensitively after trimming. When the grant fails the code is
// released again, so the user can retry it.
func (s *CodeStore) Redeem(ctx context.Context, code, userID string) (Code, error) {
	normalized := NormalizeCode(code)
	now := s.opts.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Code{}, fmt.Errorf("access: begin redeem: %w", err)
	}
	defer tx.Rollback()

	found, err := scanCode(tx.QueryRowContext(ctx,
		`SELECT code, type, created_at, used, used_by, used_at FROM redeem_codes WHERE code = ?`, normalized))
	if errors.Is(err, sql.ErrNoRows) {
		return Code{}, goerrors.New("invalid code", goerrors.CategoryNotFound).
			WithTextCode(TextCodeNotFound)
	}
	if err != nil {
		return Code{}, fmt.Errorf("access: load code: %w", err)
	}
	if found.Used {
		return Code{}, errCodeUsed()
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE redeem_codes SET used = 1, used_by = ?, used_at = ? WHERE code = ? AND used = 0`,
		userID, now.Unix(), normalized)
	if err != nil {
		return Code{}, fmt.Errorf("access: mark code: %w", err)
	}
	marked, err := res.RowsAffected()
	if err != nil {
		return Code{}, fmt.Errorf("access: mark code: %w", err)
	}
	if marked != 1 {
		return Code{}, errCodeUsed()
	}
	if err := tx.Commit(); err != nil {
		return Code{}, fmt.Errorf("access: commit redeem: %w", err)
	}

	if err := s.gate.Grant(ctx, userID, GrantDays(now, found.Type.Days())); err != nil {
		grantErr := fmt.Errorf("access: grant redeemed code: %w", err)
		if relErr := s.release(context.WithoutCancel(ctx), normalized, userID); relErr != nil {
			return Code{}, errors.Join(grantErr, relErr)
		}
		return Code{}, grantErr
	}

	usedAt := time.Unix(now.Unix(), 0).UTC()
	found.Used, found.UsedBy, found.UsedAt = true, userID, &usedAt
	return found, nil
}

// release puts a code marked by userID back into the unused pool.
func (s *CodeStore) release(ctx context.Context, code, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE redeem_codes SET used = 0, used_by = NULL, used_at = NULL WHERE code = ? AND used_by = ?`,
		code, userID); err != nil {
		return fmt.Errorf("access: release code %s: %w", code, err)
	}
	return nil
}

func errCodeUsed() error {
	return goerrors.New("this code has already been used", goerrors.CategoryConflict).
		WithTextCode(TextCodeAlreadyUsed)
}

// List returns codes matching filter, newest first.
func (s *CodeStore) List(ctx context.Context, filter CodeFilter) ([]Code, error) {
	query := `SELECT code, type, created_at, used, used_by, used_at FROM redeem_codes`
	var args []any
	switch filter {
	case "", FilterAll:
	case Filter31Days, FilterLifetime:
		query += ` WHERE type = ?`
		args = append(args, string(filter))
	case FilterUnused:
		query += ` WHERE used = 0`
	case FilterUsed:
		query += ` WHERE used = 1`
	default:
		return nil, badRequest(fmt.Sprintf("unknown filter %q", filter))
	}
	query += ` ORDER BY created_at DESC, code`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("access: list codes: %w", err)
	}
	defer rows.Close()

	var out []Code
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, fmt.Errorf("access: scan code: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stats counts codes by state and type.
func (s *CodeStore) Stats(ctx context.Context) (CodeStats, error) {
	var st CodeStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN used = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN used = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = ? THEN 1 ELSE 0 END), 0)
		FROM redeem_codes`, string(CodeLifetime), string(Code31Days),
	).Scan(&st.Total, &st.Unused, &st.Used, &st.Lifetime, &st.Days31)
	if err != nil {
		return CodeStats{}, fmt.Errorf("access: code stats: %w", err)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCode(row scanner) (Code, error) {
	var (
		c       Code
		typ     string
		created int64
		usedBy  sql.NullString
		usedAt  sql.NullInt64
	)
	if err := row.Scan(&c.Code, &typ, &created, &c.Used, &usedBy, &usedAt); err != nil {
		return Code{}, err
	}
	c.Type = CodeType(typ)
	c.CreatedAt = time.Unix(created, 0).UTC()
	c.UsedBy = usedBy.String
	if usedAt.Valid {
		t := time.Unix(usedAt.Int64, 0).UTC()
		c.UsedAt = &t
	}
	return c, nil
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCode returns a random XXXX-XXXX-XXXX-XXXX code over A-Z and 0-9.
func NewCode() (string, error) {
	const groups, groupLen = 4, 4
	// 252 is the largest multiple of 36 that fits in a byte
	const limit = 252

	var b strings.Builder
	buf := make([]byte, 1)
	for g := 0; g < groups; g++ {
		if g > 0 {
			b.WriteByte('-')
		}
		for n := 0; n < groupLen; {
			if _, err := rand.Read(buf); err != nil {
				return "", fmt.Errorf("access: random code: %w", err)
			}
			if buf[0] >= limit {
				continue
			}
			b.WriteByte(codeAlphabet[int(buf[0])%len(codeAlphabet)])
			n++
		}
	}
	return b.String(), nil
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func badRequest(msg string) error {
	return goerrors.New(msg, goerrors.CategoryBadInput).WithTextCode(TextCodeBadRequest)
}
