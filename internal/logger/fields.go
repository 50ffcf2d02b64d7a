package logger

import (
	"strings"

	"go.uber.org/zap"
)

// masked is a value that was already shortened and must not be again.
type masked string

func (m masked) String() string { return string(m) }

// Token logs a credential as a short, non-reversible hint.
func Token(key, value string) zap.Field {
	return zap.Stringer(key, masked(MaskToken(value)))
}

// Email logs an address with the local part and domain label shortened.
func Email(value string) zap.Field {
	return zap.String("email", MaskEmail(value))
}

// MaskToken keeps the first and last four characters of long credentials.
func MaskToken(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 12:
		return "***"
	default:
		return s[:4] + "…" + s[len(s)-4:]
	}
}

// MaskEmail turns "maria@example.com" into "m…@e….com".
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.IndexByte(s, '@')
	if i <= 0 {
		if s == "" {
			return ""
		}
		if len(s) <= 3 {
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	user, dom := s[:i], s[i+1:]
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	dparts := strings.Split(dom, ".")
	if len(dparts) > 0 && len(dparts[0]) > 1 {
		dparts[0] = dparts[0][:1] + "…"
	}
	return user + "@" + strings.Join(dparts, ".")
}
