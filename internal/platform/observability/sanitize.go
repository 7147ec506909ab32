package observability

import (
	"strings"
	"unicode"
)

const defaultStringLimit = 256

// sanitizeString strips control characters and bounds length so request data
// cannot inject structure into log lines.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = defaultStringLimit
	}

	cleaned := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		cleaned = append(cleaned, r)
	}
	if len(cleaned) > limit {
		cleaned = cleaned[:limit]
	}
	return string(cleaned)
}

// SanitizeRoute bounds route patterns before they reach logs and span attributes.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod bounds HTTP method strings.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}

// MaskEmail reduces a purchaser address to its first character plus domain
// ("j***@example.com") so order logs stay correlatable without storing the
// full address.
func MaskEmail(email string) string {
	email = sanitizeString(strings.TrimSpace(email), 254)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
