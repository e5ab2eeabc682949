package generates

import (
	"context"

	"github.com/authforge/oauth2"
)

// NewAuthorizeGenerate create to generate the authorize code instance
func NewAuthorizeGenerate() *AuthorizeGenerate {
	return &AuthorizeGenerate{}
}

// AuthorizeGenerate generate the opaque authorization code
type AuthorizeGenerate struct{}

// Token based on crypto/rand generated code
func (ag *AuthorizeGenerate) Token(ctx context.Context, data *oauth2.GenerateBasic) (string, error) {
	return randomToken()
}
