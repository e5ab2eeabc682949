package oauth2

import (
	"net/http"
	"time"
)

type (
	// ClientInfo the client information model interface
	ClientInfo interface {
		GetID() string
		// GetSecret returns the stored secret. A bcrypt hash is verified with
		// bcrypt; any other value is compared in constant time.
		GetSecret() string
		GetRedirectURIs() []string
		GetGrantTypes() []GrantType
		GetScopes() []string
		GetTokenAuthMethod() TokenAuthMethod
		IsPublic() bool
		IsTrusted() bool
		IsRevoked() bool
	}

	// ClientAssertionKey is implemented by clients registered for
	// private_key_jwt authentication.
	ClientAssertionKey interface {
		GetPublicKeyPEM() []byte
	}

	// ClientCertVerifier is implemented by clients registered for
	// tls_client_auth; the thumbprint is the hex SHA-256 of the DER certificate.
	ClientCertVerifier interface {
		GetCertThumbprint() string
	}

	// ClientAuthCredentials carries every credential presentation found on a
	// request. Presenting more than one method is rejected as ambiguous.
	ClientAuthCredentials struct {
		ID             string
		Secret         string
		BasicAuth      bool // secret arrived via the Authorization header
		FormSecret     bool // secret arrived via the request body
		Assertion      string
		AssertionType  string
		CertThumbprint string
	}

	// TokenGenerateRequest provide to generate the token request parameters
	TokenGenerateRequest struct {
		ClientID            string
		Credentials         ClientAuthCredentials
		UserID              string
		RedirectURI         string
		Scope               string
		Code                string
		CodeChallenge       string
		CodeChallengeMethod CodeChallengeMethod
		CodeVerifier        string
		Refresh             string
		Audience            []string
		Username            string
		Password            string
		AccessTokenExp      time.Duration
		Request             *http.Request
	}

	// TokenInfo the token information model interface
	TokenInfo interface {
		New() TokenInfo

		GetClientID() string
		SetClientID(string)
		GetUserID() string
		SetUserID(string)
		GetRedirectURI() string
		SetRedirectURI(string)
		GetScope() string
		SetScope(string)
		GetAudience() []string
		SetAudience([]string)

		GetFamilyID() string
		SetFamilyID(string)
		GetGeneration() int64
		SetGeneration(int64)

		GetCode() string
		SetCode(string)
		GetCodeCreateAt() time.Time
		SetCodeCreateAt(time.Time)
		GetCodeExpiresIn() time.Duration
		SetCodeExpiresIn(time.Duration)
		GetCodeChallenge() string
		SetCodeChallenge(string)
		GetCodeChallengeMethod() CodeChallengeMethod
		SetCodeChallengeMethod(CodeChallengeMethod)
		IsCodeConsumed() bool
		SetCodeConsumed(bool)

		GetAccess() string
		SetAccess(string)
		GetAccessCreateAt() time.Time
		SetAccessCreateAt(time.Time)
		GetAccessExpiresIn() time.Duration
		SetAccessExpiresIn(time.Duration)
		IsAccessRevoked() bool
		SetAccessRevoked(bool)

		GetRefresh() string
		SetRefresh(string)
		GetRefreshCreateAt() time.Time
		SetRefreshCreateAt(time.Time)
		GetRefreshExpiresIn() time.Duration
		SetRefreshExpiresIn(time.Duration)
		IsRefreshRevoked() bool
		SetRefreshRevoked(bool)
	}

	// Introspection is the RFC 7662 response model. A token that is unknown,
	// expired or revoked yields {active:false} with no other fields, so the
	// three cases are indistinguishable to the caller.
	Introspection struct {
		Active    bool   `json:"active"`
		Scope     string `json:"scope,omitempty"`
		ClientID  string `json:"client_id,omitempty"`
		TokenType string `json:"token_type,omitempty"`
		Sub       string `json:"sub,omitempty"`
		Exp       int64  `json:"exp,omitempty"`
		Iat       int64  `json:"iat,omitempty"`
	}
)
