package oauth2

import "context"

// Manager authorization management interface
type Manager interface {
	// GetClient reads the client information
	GetClient(ctx context.Context, clientID string) (ClientInfo, error)

	// AuthenticateClient verifies the client credentials carried by the
	// request using the client's registered token endpoint auth method.
	AuthenticateClient(ctx context.Context, tgr *TokenGenerateRequest) (ClientInfo, error)

	// GenerateAuthorizationCode mints and persists a single-use authorization
	// code for an authenticated resource owner.
	GenerateAuthorizationCode(ctx context.Context, tgr *TokenGenerateRequest) (TokenInfo, error)

	// GenerateAccessToken executes one grant and returns the issued tokens
	GenerateAccessToken(ctx context.Context, gt GrantType, tgr *TokenGenerateRequest) (TokenInfo, error)

	// LoadAccessToken loads an access token, rejecting expired or revoked ones
	LoadAccessToken(ctx context.Context, access string) (TokenInfo, error)

	// LoadRefreshToken loads a refresh token, rejecting expired or revoked ones
	LoadRefreshToken(ctx context.Context, refresh string) (TokenInfo, error)

	// Introspect reports the current state of a token. hint is the RFC 7662
	// token_type_hint and may be empty.
	Introspect(ctx context.Context, token, hint string) (*Introspection, error)

	// Revoke invalidates a token. Unknown tokens are not an error. Revoking a
	// refresh token cascades to its whole family.
	Revoke(ctx context.Context, token, hint string) error
}
