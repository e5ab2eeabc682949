package oauth2

// GrantType authorization model
type GrantType string

// define authorization model
const (
	AuthorizationCode   GrantType = "authorization_code"
	PasswordCredentials GrantType = "password"
	ClientCredentials   GrantType = "client_credentials"
	Refreshing          GrantType = "refresh_token"
)

func (gt GrantType) String() string {
	if gt == AuthorizationCode ||
		gt == PasswordCredentials ||
		gt == ClientCredentials ||
		gt == Refreshing {
		return string(gt)
	}
	return ""
}

// CodeChallengeMethod PKCE transform method
type CodeChallengeMethod string

const (
	// CodeChallengePlain PKCE Method
	CodeChallengePlain CodeChallengeMethod = "plain"
	// CodeChallengeS256 PKCE Method
	CodeChallengeS256 CodeChallengeMethod = "S256"
)

func (ccm CodeChallengeMethod) String() string {
	if ccm == CodeChallengePlain ||
		ccm == CodeChallengeS256 {
		return string(ccm)
	}
	return ""
}

// TokenAuthMethod identifies how a client authenticates at the token endpoint.
type TokenAuthMethod string

const (
	AuthMethodNone          TokenAuthMethod = "none"
	AuthMethodSecretBasic   TokenAuthMethod = "client_secret_basic"
	AuthMethodSecretPost    TokenAuthMethod = "client_secret_post"
	AuthMethodSecretJWT     TokenAuthMethod = "client_secret_jwt"
	AuthMethodPrivateKeyJWT TokenAuthMethod = "private_key_jwt"
	AuthMethodMTLS          TokenAuthMethod = "tls_client_auth"
)

func (am TokenAuthMethod) String() string {
	switch am {
	case AuthMethodNone, AuthMethodSecretBasic, AuthMethodSecretPost,
		AuthMethodSecretJWT, AuthMethodPrivateKeyJWT, AuthMethodMTLS:
		return string(am)
	}
	return ""
}

// JWTBearerAssertionType is the client_assertion_type for JWT client authentication.
const JWTBearerAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
