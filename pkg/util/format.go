package util

import "strings"

// OrDash returns the string if non-empty, otherwise returns "-".
func OrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Redact keeps the first and last few characters of a secret, or returns "-"
// when it is empty.
func Redact(secret string) string {
	const keep = 4
	if secret == "" {
		return "-"
	}
	if len(secret) <= 2*keep {
		return strings.Repeat("*", len(secret))
	}
	return secret[:keep] + "…" + secret[len(secret)-keep:]
}
