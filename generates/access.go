package generates

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/authforge/oauth2"
)

// opaque token byte length; 32 bytes gives 256 bits of entropy
const tokenEntropyBytes = 32

// NewAccessGenerate create to generate the opaque access token instance
func NewAccessGenerate() *AccessGenerate {
	return &AccessGenerate{}
}

// AccessGenerate generate opaque access and refresh tokens from
// cryptographically secure randomness.
type AccessGenerate struct{}

// Token based on crypto/rand generated token
func (ag *AccessGenerate) Token(ctx context.Context, data *oauth2.GenerateBasic, isGenRefresh bool) (string, string, error) {
	access, err := randomToken()
	if err != nil {
		return "", "", err
	}
	refresh := ""
	if isGenRefresh {
		refresh, err = randomToken()
		if err != nil {
			return "", "", err
		}
	}
	return access, refresh, nil
}

func randomToken() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
