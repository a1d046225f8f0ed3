// Package auth checks the bearer token of the trigger service.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HashPrefix marks a configured token given as its SHA-256 hex digest
// instead of in plain text.
const HashPrefix = "sha256:"

// HashKey returns the SHA-256 hex digest of the trimmed key.
func HashKey(key string) string {
	key = strings.TrimSpace(key)

	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// Token is the configured service credential. Only its digest is kept.
type Token struct {
	digest string
}

// ParseToken accepts a plain token or "sha256:<hex digest>". An empty
// value yields a disabled token.
func ParseToken(configured string) Token {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return Token{}
	}
	if digest, ok := strings.CutPrefix(configured, HashPrefix); ok {
		return Token{digest: strings.ToLower(digest)}
	}
	return Token{digest: HashKey(configured)}
}

// Enabled reports whether a token is configured.
func (t Token) Enabled() bool {
	return t.digest != ""
}

// Matches reports whether presented is the configured token. Digests are
// compared in constant time.
func (t Token) Matches(presented string) bool {
	if !t.Enabled() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashKey(presented)), []byte(t.digest)) == 1
}

// Fingerprint is a short, loggable identifier of the token.
func (t Token) Fingerprint() string {
	if len(t.digest) < 8 {
		return ""
	}
	return t.digest[:8]
}
