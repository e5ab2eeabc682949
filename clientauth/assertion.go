package clientauth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/errors"
)

// RFC 7523: iss and sub both name the client, aud names the token endpoint,
// exp is required.
func (a *Authenticator) verifyAssertion(cli oauth2.ClientInfo, assertion string) error {
	method := cli.GetTokenAuthMethod()

	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(cli.GetID()),
		jwt.WithSubject(cli.GetID()),
	}
	if a.TokenEndpoint != "" {
		opts = append(opts, jwt.WithAudience(a.TokenEndpoint))
	}
	if method == oauth2.AuthMethodSecretJWT {
		opts = append(opts, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	} else {
		opts = append(opts, jwt.WithValidMethods([]string{
			"RS256", "RS384", "RS512", "PS256", "PS384", "PS512",
			"ES256", "ES384", "ES512", "EdDSA",
		}))
	}

	keyfunc := func(t *jwt.Token) (interface{}, error) {
		if method == oauth2.AuthMethodSecretJWT {
			return []byte(cli.GetSecret()), nil
		}
		ak, ok := cli.(oauth2.ClientAssertionKey)
		if !ok || len(ak.GetPublicKeyPEM()) == 0 {
			return nil, errors.ErrInvalidClientAssertion
		}
		return parsePublicKey(t.Method.Alg(), ak.GetPublicKeyPEM())
	}

	tok, err := jwt.NewParser(opts...).Parse(assertion, keyfunc)
	if err != nil || !tok.Valid {
		return errors.ErrInvalidClientAssertion
	}
	return nil
}

func parsePublicKey(alg string, pem []byte) (interface{}, error) {
	switch {
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		return jwt.ParseRSAPublicKeyFromPEM(pem)
	case strings.HasPrefix(alg, "ES"):
		return jwt.ParseECPublicKeyFromPEM(pem)
	case strings.HasPrefix(alg, "Ed"):
		return jwt.ParseEdPublicKeyFromPEM(pem)
	}
	return nil, errors.ErrInvalidClientAssertion
}

// assertionSubject extracts the unverified sub claim so the client record can
// be loaded; verification happens against that record's key material.
func assertionSubject(assertion string) string {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(assertion, claims)
	if err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}
