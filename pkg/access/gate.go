// Package access decides whether a user may start an order and keeps the
// per-user quota ledger: unlimited access until an expiry instant, or a
// counter of remaining uses. It also issues and redeems access codes.
package access

import (
	"context"
	"errors"
	"math"
	"time"
)

// Reason explains a denied Decision.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNoAccess      Reason = "no_access"
	ReasonExpired       Reason = "expired"
	ReasonZeroRemaining Reason = "zero_remaining"
)

// ErrNoUses is returned by ConsumeOne when the user has no counter left.
var ErrNoUses = errors.New("access: no remaining uses")

// Record is the stored ledger entry of one user. Counted is false when no
// counter was ever set. Remaining never goes negative.
type Record struct {
	UserID    string     `json:"userId"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Remaining int        `json:"remaining"`
	Counted   bool       `json:"counted"`
}

// Decision is the outcome of a Check.
type Decision struct {
	Allowed   bool       `json:"allowed"`
	Unlimited bool       `json:"unlimited"`
	Remaining int        `json:"remaining"`
	Reason    Reason     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Status is the read-only view behind the limit and access inspection commands.
type Status struct {
	Decision
	UserID   string `json:"userId"`
	Counted  bool   `json:"counted"`
	DaysLeft int    `json:"daysLeft"`
}

// Grant changes a user's ledger entry. Until sets unlimited access up to that
// instant; Uses replaces the remaining counter. Either or both may be set.
type Grant struct {
	Until *time.Time
	Uses  *int
}

// GrantDays grants unlimited access for days starting at now.
func GrantDays(now time.Time, days int) Grant {
	until := now.Add(time.Duration(days) * 24 * time.Hour)
	return Grant{Until: &until}
}

// GrantUses sets the remaining counter to n.
func GrantUses(n int) Grant {
	if n < 0 {
		n = 0
	}
	return Grant{Uses: &n}
}

// Gate is the quota contract consulted before a wizard opens and updated after
// a successful dispatch.
type Gate interface {
	Check(ctx context.Context, userID string) (Decision, error)
	ConsumeOne(ctx context.Context, userID string) (int, error)
	Grant(ctx context.Context, userID string, grant Grant) error
	RevokeAll(ctx context.Context) error
	Status(ctx context.Context, userID string) (Status, error)
}

// Evaluate applies the access rules to a record: an expiry in the future means
// unlimited; otherwise a counter allows while positive; an expired record
// without counter is Expired; no record at all is NoAccess.
func Evaluate(rec Record, found bool, now time.Time) Decision {
	if !found {
		return Decision{Reason: ReasonNoAccess}
	}
	if rec.ExpiresAt != nil && rec.ExpiresAt.After(now) {
		return Decision{Allowed: true, Unlimited: true, ExpiresAt: rec.ExpiresAt}
	}
	if rec.Counted {
		if rec.Remaining > 0 {
			return Decision{Allowed: true, Remaining: rec.Remaining, ExpiresAt: rec.ExpiresAt}
		}
		return Decision{Reason: ReasonZeroRemaining, ExpiresAt: rec.ExpiresAt}
	}
	if rec.ExpiresAt != nil {
		return Decision{Reason: ReasonExpired, ExpiresAt: rec.ExpiresAt}
	}
	return Decision{Reason: ReasonNoAccess}
}

// StatusOf builds the inspection view of a record.
func StatusOf(userID string, rec Record, found bool, now time.Time) Status {
	st := Status{
		Decision: Evaluate(rec, found, now),
		UserID:   userID,
		Counted:  found && rec.Counted,
	}
	if found && rec.Counted {
		st.Remaining = rec.Remaining
	}
	if st.Unlimited && st.ExpiresAt != nil {
		st.DaysLeft = int(math.Ceil(st.ExpiresAt.Sub(now).Hours() / 24))
	}
	return st
}

func apply(rec Record, grant Grant) Record {
	if grant.Until != nil {
		until := grant.Until.UTC()
		rec.ExpiresAt = &until
	}
	if grant.Uses != nil {
		rec.Remaining = max(*grant.Uses, 0)
		rec.Counted = true
	}
	return rec
}

// Option configures the stores in this package.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
