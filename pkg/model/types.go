package model

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MoneyLayout controls where the currency symbol sits relative to an amount.
type MoneyLayout string

const (
	// MoneyTrailing renders "250.00$".
	MoneyTrailing MoneyLayout = "trailing"
	// MoneyLeading renders "$ 250.00".
	MoneyLeading MoneyLayout = "leading"
)

// DefaultCurrency is used when neither the template nor the user supplies one.
const DefaultCurrency = "$"

// TemplateDescriptor is the immutable contract of a product template.
type TemplateDescriptor struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	DocumentRef  string       `json:"documentRef"`
	Capabilities Capabilities `json:"capabilities"`
	Currency     string       `json:"currency,omitempty"`
	MoneyLayout  MoneyLayout  `json:"moneyLayout,omitempty"`
	Aliases      []string     `json:"aliases,omitempty"`
}

// Needs reports whether the template requires the capability.
func (d TemplateDescriptor) Needs(c Capability) bool {
	return d.Capabilities.Has(c)
}

// BrandName is the template id with its first letter upper-cased. It is used
// as the sender display name and in user-facing receipts.
func (d TemplateDescriptor) BrandName() string {
	id := strings.TrimSpace(d.ID)
	if id == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(id)
	return string(unicode.ToUpper(r)) + id[size:]
}

// DisplayTitle prefers the catalog title and falls back to BrandName.
func (d TemplateDescriptor) DisplayTitle() string {
	if title := strings.TrimSpace(d.Title); title != "" {
		return title
	}
	return d.BrandName()
}

// DefaultCurrency returns the template currency or the global default.
func (d TemplateDescriptor) DefaultCurrency() string {
	if c := strings.TrimSpace(d.Currency); c != "" {
		return c
	}
	return DefaultCurrency
}

// Layout returns the money layout, defaulting to MoneyTrailing.
func (d TemplateDescriptor) Layout() MoneyLayout {
	if d.MoneyLayout == MoneyLeading {
		return MoneyLeading
	}
	return MoneyTrailing
}

// UserProfile holds the settings a user saved for reuse across orders.
type UserProfile struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// IsZero reports whether no profile field is set.
func (p UserProfile) IsZero() bool {
	return p == UserProfile{}
}
