package config

import (
	"strings"
	"unicode"
)

// envKey transforms a field name into its environment variable form:
// CustomerId -> CUSTOMER_ID, SMTPHost -> SMTP_HOST, max-attempts -> MAX_ATTEMPTS.
func envKey(in string) string {
	runes := []rune(strings.TrimSpace(in))
	if len(runes) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(len(runes) + len(runes)/3) // estimate space for underscores

	pendingSeparator := false
	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' {
			pendingSeparator = b.Len() > 0
			continue
		}

		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextIsLower) {
				pendingSeparator = true
			}
		}

		if pendingSeparator && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingSeparator = false
		b.WriteRune(unicode.ToUpper(r))
	}

	return b.String()
}
