// Package pkce generates the per-attempt secrets used by the authorization code flow:
// the PKCE code verifier and its S256 challenge, plus the opaque state and nonce tokens.
package pkce

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/oauth2"
)

const (
	// MinVerifierLength and MaxVerifierLength bound a code verifier (RFC 7636 section 4.1).
	MinVerifierLength = 43
	MaxVerifierLength = 128

	// MethodS256 is the only challenge method this package produces.
	MethodS256 = "S256"

	tokenBytes = 32 // 256 bits
)

// GenerateVerifier returns a fresh 43 character base64url code verifier.
func GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

// DeriveChallenge computes BASE64URL-NOPAD(SHA256(verifier)).
func DeriveChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// NewState returns an opaque anti-CSRF token.
func NewState() string {
	return randomToken()
}

// NewNonce returns an OpenID Connect nonce.
func NewNonce() string {
	return randomToken()
}

// ValidVerifier reports whether v has a legal length and only unreserved characters.
func ValidVerifier(v string) bool {
	if len(v) < MinVerifierLength || len(v) > MaxVerifierLength {
		return false
	}
	for i := 0; i < len(v); i++ {
		if !isUnreserved(v[i]) {
			return false
		}
	}
	return true
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

// randomToken creates a random base64url string. crypto/rand.Read never fails from Go 1.24.
func randomToken() string {
	b := make([]byte, tokenBytes)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
