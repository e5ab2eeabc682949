package oauth2

import "context"

type (
	// ClientStore the client information storage interface
	ClientStore interface {
		// GetByID according to the ID for the client information
		GetByID(ctx context.Context, id string) (ClientInfo, error)
	}

	// TokenStore the token information storage interface. Implementations own
	// all persisted token state; the engine never caches records beyond one
	// request. Single-use resources are guarded by conditional updates:
	// ConsumeAuthorizationCode and RotateRefreshToken must each admit at most
	// one winner under concurrent redemption.
	TokenStore interface {
		// Create persists a new token record.
		Create(ctx context.Context, info TokenInfo) error

		// GetByCode, GetByAccess and GetByRefresh look a record up by one of
		// its identifiers, returning errors.ErrTokenNotFound when absent.
		GetByCode(ctx context.Context, code string) (TokenInfo, error)
		GetByAccess(ctx context.Context, access string) (TokenInfo, error)
		GetByRefresh(ctx context.Context, refresh string) (TokenInfo, error)

		// ConsumeAuthorizationCode atomically marks the code consumed and
		// returns the record. A second call returns errors.ErrCodeConsumed;
		// a missing code returns errors.ErrTokenNotFound. Consumption is not
		// transactional with the subsequent token Create: a Create failure
		// after a successful consume leaves the code burned with no tokens
		// issued. The code never becomes redeemable again.
		ConsumeAuthorizationCode(ctx context.Context, code string) (TokenInfo, error)

		// RotateRefreshToken revokes old and creates replacement as one unit,
		// conditional on old still being the unrevoked latest generation of
		// its family. A lost race or a superseded token returns
		// errors.ErrRefreshSuperseded and writes nothing.
		RotateRefreshToken(ctx context.Context, old TokenInfo, replacement TokenInfo) error

		// RevokeByAccess marks the access token revoked. The sibling refresh
		// token is untouched; cascading is the engine's decision.
		RevokeByAccess(ctx context.Context, access string) error

		// RevokeByRefresh marks the refresh token revoked.
		RevokeByRefresh(ctx context.Context, refresh string) error

		// RevokeFamily revokes every record sharing the family id, access and
		// refresh sides both.
		RevokeFamily(ctx context.Context, familyID string) error
	}
)
