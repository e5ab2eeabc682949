package manage

import (
	"context"
	"time"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/audit"
	"github.com/authforge/oauth2/errors"
	"github.com/authforge/oauth2/pkce"
	"github.com/authforge/oauth2/scope"
)

// authorizationCodeGrant exchanges a single-use code for a token pair.
// Validation runs against a read snapshot; the conditional consume decides
// the winner under concurrent redemption.
type authorizationCodeGrant struct {
	m *Manager
}

func (g *authorizationCodeGrant) Handle(ctx context.Context, cli oauth2.ClientInfo, tgr *oauth2.TokenGenerateRequest) (oauth2.TokenInfo, error) {
	if tgr.Code == "" || tgr.RedirectURI == "" {
		return nil, errors.ErrInvalidRequest
	}

	cti, err := g.m.tokens.GetByCode(ctx, tgr.Code)
	if err != nil {
		if errors.Is(err, errors.ErrTokenNotFound) {
			return nil, errors.ErrInvalidGrant
		}
		return nil, errors.ErrServerError
	}
	if cti.GetClientID() != cli.GetID() {
		return nil, errors.ErrInvalidGrant
	}
	if cti.IsCodeConsumed() {
		g.m.replayCascade(ctx, audit.EventCodeReplay, cti)
		return nil, errors.ErrInvalidGrant
	}
	if codeExpired(cti, time.Now()) {
		return nil, errors.ErrInvalidGrant
	}
	if cti.GetRedirectURI() != tgr.RedirectURI {
		return nil, errors.ErrInvalidGrant
	}

	challenge := cti.GetCodeChallenge()
	if challenge == "" && cli.IsPublic() {
		// a code issued to a public client always carries a challenge
		return nil, errors.ErrInvalidGrant
	}
	if challenge != "" {
		if tgr.CodeVerifier == "" {
			return nil, errors.ErrMissingCodeVerifier
		}
		if err := pkce.ValidateVerifier(tgr.CodeVerifier); err != nil {
			return nil, err
		}
		if !pkce.Verify(tgr.CodeVerifier, challenge, cti.GetCodeChallengeMethod()) {
			return nil, errors.ErrInvalidCodeChallenge
		}
	}

	// scopes granted at authorize time, narrowed to what the client is
	// currently allowed
	codeScopes := scope.Parse(cti.GetScope())
	granted := scope.Intersection(codeScopes, cli.GetScopes())
	if len(codeScopes) > 0 && len(granted) == 0 {
		return nil, errors.ErrInvalidScope
	}

	if _, err := g.m.tokens.ConsumeAuthorizationCode(ctx, tgr.Code); err != nil {
		if errors.Is(err, errors.ErrCodeConsumed) {
			g.m.replayCascade(ctx, audit.EventCodeReplay, cti)
			return nil, errors.ErrInvalidGrant
		}
		if errors.Is(err, errors.ErrTokenNotFound) {
			return nil, errors.ErrInvalidGrant
		}
		return nil, errors.ErrServerError
	}

	return g.m.issueTokens(ctx, issueSpec{
		client:     cli,
		userID:     cti.GetUserID(),
		scope:      scope.Join(granted),
		audience:   cti.GetAudience(),
		familyID:   cti.GetFamilyID(),
		generation: 1,
		genRefresh: true,
		accessExp:  tgr.AccessTokenExp,
		persist:    true,
	})
}

// clientCredentialsGrant issues an access token to a confidential client
// acting on its own behalf. No resource owner, no refresh token.
type clientCredentialsGrant struct {
	m *Manager
}

func (g *clientCredentialsGrant) Handle(ctx context.Context, cli oauth2.ClientInfo, tgr *oauth2.TokenGenerateRequest) (oauth2.TokenInfo, error) {
	if cli.IsPublic() {
		return nil, errors.ErrUnauthorizedClient
	}
	if tgr.Username != "" || tgr.Password != "" {
		return nil, errors.ErrInvalidRequest
	}

	granted, err := scope.Validate(tgr.Scope, cli.GetScopes(), g.m.cfg.ScopePolicy)
	if err != nil {
		return nil, err
	}

	return g.m.issueTokens(ctx, issueSpec{
		client:     cli,
		scope:      granted,
		audience:   tgr.Audience,
		generation: 1,
		genRefresh: false,
		accessExp:  tgr.AccessTokenExp,
		persist:    true,
	})
}

// passwordGrant verifies resource-owner credentials through the external
// collaborator. Restricted to trusted first-party clients.
type passwordGrant struct {
	m *Manager
}

func (g *passwordGrant) Handle(ctx context.Context, cli oauth2.ClientInfo, tgr *oauth2.TokenGenerateRequest) (oauth2.TokenInfo, error) {
	if !cli.IsTrusted() {
		return nil, errors.ErrUnauthorizedClient
	}
	if tgr.Username == "" || tgr.Password == "" {
		return nil, errors.ErrInvalidRequest
	}
	if g.m.passwordVerifier == nil {
		return nil, errors.ErrServerError
	}

	userID, err := g.m.passwordVerifier(ctx, cli.GetID(), tgr.Username, tgr.Password)
	if err != nil || userID == "" {
		return nil, errors.ErrInvalidGrant
	}

	granted, err := scope.Validate(tgr.Scope, cli.GetScopes(), g.m.cfg.ScopePolicy)
	if err != nil {
		return nil, err
	}
	if g.m.userScopes != nil {
		grantable, err := g.m.userScopes(ctx, userID)
		if err != nil {
			return nil, errors.ErrServerError
		}
		narrowed := scope.Intersection(scope.Parse(granted), grantable)
		if len(narrowed) == 0 {
			return nil, errors.ErrInvalidScope
		}
		granted = scope.Join(narrowed)
	}

	return g.m.issueTokens(ctx, issueSpec{
		client:     cli,
		userID:     userID,
		scope:      granted,
		audience:   tgr.Audience,
		generation: 1,
		genRefresh: true,
		accessExp:  tgr.AccessTokenExp,
		persist:    true,
	})
}

// refreshTokenGrant rotates a refresh token: the presented token is revoked
// and exactly one successor with generation+1 is created, atomically. Reuse
// of a superseded token revokes the whole family.
type refreshTokenGrant struct {
	m *Manager
}

func (g *refreshTokenGrant) Handle(ctx context.Context, cli oauth2.ClientInfo, tgr *oauth2.TokenGenerateRequest) (oauth2.TokenInfo, error) {
	if tgr.Refresh == "" {
		return nil, errors.ErrInvalidRequest
	}

	rti, err := g.m.tokens.GetByRefresh(ctx, tgr.Refresh)
	if err != nil {
		if errors.Is(err, errors.ErrTokenNotFound) {
			return nil, errors.ErrInvalidGrant
		}
		return nil, errors.ErrServerError
	}
	if rti.GetClientID() != cli.GetID() {
		return nil, errors.ErrInvalidGrant
	}
	if rti.IsRefreshRevoked() {
		// rotated or revoked already; reuse signals theft
		g.m.replayCascade(ctx, audit.EventRefreshReplay, rti)
		return nil, errors.ErrInvalidGrant
	}
	if refreshExpired(rti, time.Now()) {
		return nil, errors.ErrInvalidGrant
	}

	granted := rti.GetScope()
	if tgr.Scope != "" {
		requested := scope.Parse(tgr.Scope)
		if !scope.IsSubset(requested, scope.Parse(rti.GetScope())) {
			return nil, errors.ErrInvalidScope
		}
		granted = scope.Join(requested)
	}

	replacement, err := g.m.issueTokens(ctx, issueSpec{
		client:     cli,
		userID:     rti.GetUserID(),
		scope:      granted,
		audience:   rti.GetAudience(),
		familyID:   rti.GetFamilyID(),
		generation: rti.GetGeneration() + 1,
		genRefresh: true,
		accessExp:  tgr.AccessTokenExp,
		persist:    false,
	})
	if err != nil {
		return nil, err
	}

	if err := g.m.tokens.RotateRefreshToken(ctx, rti, replacement); err != nil {
		if errors.Is(err, errors.ErrRefreshSuperseded) {
			g.m.replayCascade(ctx, audit.EventRefreshReplay, rti)
			return nil, errors.ErrInvalidGrant
		}
		return nil, errors.ErrServerError
	}

	if g.m.cfg.RevokeAccessOnRotate && rti.GetAccess() != "" {
		// best effort; the rotation itself already succeeded
		_ = g.m.tokens.RevokeByAccess(ctx, rti.GetAccess())
	}

	return replacement, nil
}
