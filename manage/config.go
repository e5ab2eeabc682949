package manage

import (
	"time"

	"github.com/authforge/oauth2/scope"
)

// Config engine configuration. Constructed once and passed in explicitly;
// the engine performs no ambient lookups.
type Config struct {
	// CodeTTL authorization code lifetime, at most ten minutes
	CodeTTL time.Duration
	// AccessTTL access token lifetime
	AccessTTL time.Duration
	// RefreshTTL refresh token lifetime
	RefreshTTL time.Duration
	// ScopePolicy how unknown requested scopes are treated. Strict (the
	// default) fails closed; Intersect must be opted into explicitly.
	ScopePolicy scope.Policy
	// RevokeAccessOnRotate also revokes the parent access token when its
	// refresh token rotates
	RevokeAccessOnRotate bool
	// RevokeSiblingRefresh cascades an access-token revocation to the
	// refresh token issued alongside it
	RevokeSiblingRefresh bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		CodeTTL:              10 * time.Minute,
		AccessTTL:            time.Hour,
		RefreshTTL:           30 * 24 * time.Hour,
		ScopePolicy:          scope.Strict,
		RevokeAccessOnRotate: true,
	}
}
