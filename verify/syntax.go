package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// emailRegex requires one "@", a local part of alphanumerics and ._%+-, one or
// more dot-separated alphanumeric/hyphen domain labels, and an alphabetic final
// label of at least two characters. Internationalized domains and quoted local
// parts are not supported; that is a known limitation, not a bug.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}$`)

// Normalize canonicalizes user input by trimming whitespace and lowercasing.
// Every cache key, blocklist lookup and dedup key uses this form, so inputs
// differing only by case or padding resolve to the same entries.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidSyntax reports whether the (already normalized) address is structurally
// plausible. Pure function, no side effects.
func ValidSyntax(email string) bool {
	return emailRegex.MatchString(email)
}

// ExtractDomain returns the domain part of an address, or "" if there is none.
func ExtractDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}

func splitAddress(email string) (local, domain string) {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email, ""
	}
	return email[:at], email[at+1:]
}

// EmailHash returns a short SHA-256 digest of the address for log lines and
// audit rows; raw addresses never appear in either.
func EmailHash(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])[:8]
}
