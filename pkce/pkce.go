// Package pkce implements RFC 7636 Proof Key for Code Exchange verification.
package pkce

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/errors"
)

// https://tools.ietf.org/html/rfc7636#section-4.1
const (
	MinVerifierLength = 43
	MaxVerifierLength = 128
)

// ValidateVerifier checks the code_verifier length and charset before any
// hashing. A violation is a malformed-input error, not a mismatch.
func ValidateVerifier(verifier string) error {
	if len(verifier) < MinVerifierLength || len(verifier) > MaxVerifierLength {
		return errors.ErrInvalidCodeVerifier
	}
	for i := 0; i < len(verifier); i++ {
		if !isUnreserved(verifier[i]) {
			return errors.ErrInvalidCodeVerifier
		}
	}
	return nil
}

// unreserved = ALPHA / DIGIT / "-" / "." / "_" / "~"
func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}
	return false
}

// Verify compares the code_verifier against the stored challenge using the
// declared transform. Comparisons are constant time for both methods.
func Verify(verifier, challenge string, method oauth2.CodeChallengeMethod) bool {
	switch method {
	case oauth2.CodeChallengeS256:
		sum := sha256.Sum256([]byte(verifier))
		computed := base64.RawURLEncoding.EncodeToString(sum[:])
		// stored challenges may carry base64url padding
		return constantTimeEqual(computed, strings.TrimRight(challenge, "="))
	case oauth2.CodeChallengePlain:
		return constantTimeEqual(verifier, challenge)
	}
	return false
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
