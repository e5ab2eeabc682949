// Package clientauth verifies a client's identity at the token endpoint using
// its registered authentication method.
package clientauth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/errors"
)

// Authenticator resolves and verifies clients.
type Authenticator struct {
	clients oauth2.ClientStore
	// TokenEndpoint is the expected audience of client assertion JWTs.
	// Empty disables the audience check.
	TokenEndpoint string
}

// New create an authenticator backed by the client store.
func New(clients oauth2.ClientStore) *Authenticator {
	return &Authenticator{clients: clients}
}

// Authenticate verifies the presented credentials. A request presenting more
// than one authentication method is rejected as ambiguous, never merged.
func (a *Authenticator) Authenticate(ctx context.Context, creds *oauth2.ClientAuthCredentials) (oauth2.ClientInfo, error) {
	if creds == nil {
		return nil, errors.ErrClientNotFound
	}
	if presented(creds) > 1 {
		return nil, errors.ErrAmbiguousClientAuth
	}

	id := creds.ID
	if id == "" && creds.Assertion != "" {
		id = assertionSubject(creds.Assertion)
	}
	if id == "" {
		return nil, errors.ErrClientNotFound
	}

	cli, err := a.clients.GetByID(ctx, id)
	if err != nil {
		return nil, errors.ErrClientNotFound
	}
	if cli.IsRevoked() {
		return nil, errors.ErrClientRevoked
	}

	switch cli.GetTokenAuthMethod() {
	case oauth2.AuthMethodNone:
		if presented(creds) != 0 {
			return nil, errors.ErrAuthMethodMismatch
		}
		if !cli.IsPublic() {
			return nil, errors.ErrAuthMethodMismatch
		}
	case oauth2.AuthMethodSecretBasic:
		if !creds.BasicAuth {
			return nil, errors.ErrAuthMethodMismatch
		}
		if !VerifySecret(cli.GetSecret(), creds.Secret) {
			return nil, errors.ErrInvalidClientSecret
		}
	case oauth2.AuthMethodSecretPost:
		if !creds.FormSecret {
			return nil, errors.ErrAuthMethodMismatch
		}
		if !VerifySecret(cli.GetSecret(), creds.Secret) {
			return nil, errors.ErrInvalidClientSecret
		}
	case oauth2.AuthMethodSecretJWT, oauth2.AuthMethodPrivateKeyJWT:
		if creds.Assertion == "" || creds.AssertionType != oauth2.JWTBearerAssertionType {
			return nil, errors.ErrAuthMethodMismatch
		}
		if err := a.verifyAssertion(cli, creds.Assertion); err != nil {
			return nil, err
		}
	case oauth2.AuthMethodMTLS:
		if creds.CertThumbprint == "" {
			return nil, errors.ErrAuthMethodMismatch
		}
		cv, ok := cli.(oauth2.ClientCertVerifier)
		if !ok || !constantTimeEqual(strings.ToLower(creds.CertThumbprint), strings.ToLower(cv.GetCertThumbprint())) {
			return nil, errors.ErrInvalidClientSecret
		}
	default:
		return nil, errors.ErrAuthMethodMismatch
	}

	return cli, nil
}

// presented counts the distinct authentication methods on the request.
func presented(creds *oauth2.ClientAuthCredentials) int {
	n := 0
	if creds.BasicAuth {
		n++
	}
	if creds.FormSecret {
		n++
	}
	if creds.Assertion != "" {
		n++
	}
	if creds.CertThumbprint != "" {
		n++
	}
	return n
}

// VerifySecret compares a presented secret against the stored value. Bcrypt
// hashes are verified with bcrypt; anything else is compared in constant time
// over SHA-256 digests so length never leaks.
func VerifySecret(stored, presented string) bool {
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
	}
	a := sha256.Sum256([]byte(stored))
	b := sha256.Sum256([]byte(presented))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
