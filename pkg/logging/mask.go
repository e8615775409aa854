package logging

import (
	"strings"

	"go.uber.org/zap"
)

// MaskToken keeps only the last four characters of a secret.
func MaskToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// MaskEmail keeps the first character of the local part and the domain:
// "jan@example.com" becomes "j***@example.com".
func MaskEmail(value string) string {
	value = strings.TrimSpace(value)
	at := strings.LastIndex(value, "@")
	if at <= 0 {
		return MaskToken(value)
	}
	return value[:1] + "***" + value[at:]
}

// Email is a zap field carrying a masked address.
func Email(key, value string) zap.Field {
	return zap.String(key, MaskEmail(value))
}
