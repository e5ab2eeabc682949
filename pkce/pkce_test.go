package pkce

import (
	"strings"
	"testing"

	"github.com/authforge/oauth2"
)

// Appendix B of RFC 7636.
const (
	rfcVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	rfcChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
)

func TestVerifyS256(t *testing.T) {
	if !Verify(rfcVerifier, rfcChallenge, oauth2.CodeChallengeS256) {
		t.Fatal("reference verifier rejected")
	}
	if Verify(rfcVerifier+"x", rfcChallenge, oauth2.CodeChallengeS256) {
		t.Fatal("modified verifier accepted")
	}
}

func TestVerifyS256PaddedChallenge(t *testing.T) {
	// clients sometimes register the padded base64url form
	if !Verify(rfcVerifier, rfcChallenge+"=", oauth2.CodeChallengeS256) {
		t.Fatal("padded challenge rejected")
	}
}

func TestVerifyPlain(t *testing.T) {
	v := strings.Repeat("a", 43)
	if !Verify(v, v, oauth2.CodeChallengePlain) {
		t.Fatal("matching plain verifier rejected")
	}
	if Verify(v, strings.Repeat("b", 43), oauth2.CodeChallengePlain) {
		t.Fatal("mismatched plain verifier accepted")
	}
}

func TestVerifyUnknownMethod(t *testing.T) {
	if Verify(rfcVerifier, rfcChallenge, oauth2.CodeChallengeMethod("S512")) {
		t.Fatal("unknown method accepted")
	}
}

func TestValidateVerifier(t *testing.T) {
	cases := []struct {
		name     string
		verifier string
		ok       bool
	}{
		{"reference", rfcVerifier, true},
		{"min length", strings.Repeat("a", 43), true},
		{"max length", strings.Repeat("a", 128), true},
		{"all unreserved specials", strings.Repeat("-._~", 11), true},
		{"too short", strings.Repeat("a", 42), false},
		{"too long", strings.Repeat("a", 129), false},
		{"empty", "", false},
		{"bad char plus", strings.Repeat("a", 42) + "+", false},
		{"bad char space", strings.Repeat("a", 42) + " ", false},
		{"bad char slash", strings.Repeat("a", 42) + "/", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateVerifier(c.verifier)
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
