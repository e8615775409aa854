package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-orderwizard/pkg/model"
)

var (
	numberNoise = regexp.MustCompile(`[^\d.,]`)
	emailShape  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	compactDate = regexp.MustCompile(`(\d{2})(\d{2})(\d{4})`)
)

// CleanNumber strips everything but digits and separators and normalises the
// result to a dot decimal. When both separators occur the last one is the
// decimal mark. A lone comma followed by exactly three digits, or repeated
// commas, are thousands separators; any other lone comma is a decimal mark.
func CleanNumber(raw string) string {
	s := numberNoise.ReplaceAllString(raw, "")
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 || len(s)-lastComma-1 == 3 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

func parseCleaned(cleaned string) float64 {
	if cleaned == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParsePrice cleans and parses a price. Non-numbers and values <= 0 fail.
func ParsePrice(raw string) (float64, error) {
	v := parseCleaned(CleanNumber(strings.TrimSpace(raw)))
	if math.IsNaN(v) || v <= 0 {
		return 0, invalid(CodeInvalidNumber, model.FieldPrice, "price must be a number greater than 0", raw)
	}
	return v, nil
}

// ParseTaxes cleans and parses a tax amount. Empty input is zero. A leading
// minus sign survives cleaning, so negative amounts are accepted.
func ParseTaxes(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	negative := strings.HasPrefix(trimmed, "-")
	v := parseCleaned(CleanNumber(trimmed))
	if math.IsNaN(v) {
		return 0, invalid(CodeInvalidNumber, model.FieldTaxes, "taxes must be a number", raw)
	}
	if negative {
		v = -v
	}
	return v, nil
}

// ParseQuantity parses a positive integer. Empty input defaults to 1.
func ParseQuantity(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 1, nil
	}
	q, err := strconv.Atoi(trimmed)
	if err != nil || q < 1 {
		return 0, invalid(CodeInvalidQuantity, model.FieldQuantity, "quantity must be a whole number of at least 1", raw)
	}
	return q, nil
}

// CheckURL requires an absolute http(s) link and returns it trimmed.
func CheckURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "https://") && !strings.HasPrefix(trimmed, "http://") {
		return "", invalid(CodeInvalidURL, model.FieldImageURL, "image link must be a public URL starting with https:// or http://", raw)
	}
	return trimmed, nil
}

// CheckEmail requires a local@domain.tld shape and returns it trimmed.
func CheckEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !emailShape.MatchString(trimmed) {
		return "", invalid(CodeInvalidEmail, model.FieldEmail, "enter a valid email address", raw)
	}
	return trimmed, nil
}

// NormalizeDate rewrites the first DDMMYYYY run as DD/MM/YYYY when the input
// has no slash. Anything else passes through unchanged.
func NormalizeDate(raw string) string {
	if raw == "" || strings.Contains(raw, "/") {
		return raw
	}
	loc := compactDate.FindStringSubmatchIndex(raw)
	if loc == nil {
		return raw
	}
	formatted := raw[loc[2]:loc[3]] + "/" + raw[loc[4]:loc[5]] + "/" + raw[loc[6]:loc[7]]
	return raw[:loc[0]] + formatted + raw[loc[1]:]
}

// Required fails when value is blank.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(CodeRequired, field, "this field is required", value)
	}
	return nil
}
