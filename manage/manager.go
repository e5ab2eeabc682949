// Package manage implements the grant engine: a registry of grant handlers
// composed with client authentication, scope validation, PKCE verification
// and token issuance.
package manage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/audit"
	"github.com/authforge/oauth2/clientauth"
	"github.com/authforge/oauth2/errors"
	"github.com/authforge/oauth2/generates"
	"github.com/authforge/oauth2/models"
	"github.com/authforge/oauth2/pkce"
	"github.com/authforge/oauth2/scope"
)

// PasswordVerifier checks resource-owner credentials with the external
// credential service and returns the owner's id.
type PasswordVerifier func(ctx context.Context, clientID, username, password string) (userID string, err error)

// UserScopeResolver returns the scopes a resource owner may grant. A nil
// resolver applies no owner-side restriction.
type UserScopeResolver func(ctx context.Context, userID string) ([]string, error)

// GrantHandler executes one grant for an already-authenticated client.
type GrantHandler interface {
	Handle(ctx context.Context, cli oauth2.ClientInfo, tgr *oauth2.TokenGenerateRequest) (oauth2.TokenInfo, error)
}

// NewManager create to authorization management instance with the default
// grant handlers registered.
func NewManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m := &Manager{
		cfg:          cfg,
		authorizeGen: generates.NewAuthorizeGenerate(),
		accessGen:    generates.NewAccessGenerate(),
		auditor:      audit.Nop{},
		handlers:     make(map[oauth2.GrantType]GrantHandler),
	}
	m.RegisterGrantHandler(oauth2.AuthorizationCode, &authorizationCodeGrant{m})
	m.RegisterGrantHandler(oauth2.ClientCredentials, &clientCredentialsGrant{m})
	m.RegisterGrantHandler(oauth2.PasswordCredentials, &passwordGrant{m})
	m.RegisterGrantHandler(oauth2.Refreshing, &refreshTokenGrant{m})
	return m
}

// Manager provide authorization management
type Manager struct {
	cfg              *Config
	clients          oauth2.ClientStore
	tokens           oauth2.TokenStore
	auth             *clientauth.Authenticator
	authorizeGen     oauth2.AuthorizeGenerate
	accessGen        oauth2.AccessGenerate
	auditor          audit.Logger
	passwordVerifier PasswordVerifier
	userScopes       UserScopeResolver
	handlers         map[oauth2.GrantType]GrantHandler
}

// MapClientStorage mapping the client store
func (m *Manager) MapClientStorage(stor oauth2.ClientStore) {
	m.clients = stor
	m.auth = clientauth.New(stor)
}

// MapTokenStorage mapping the token store
func (m *Manager) MapTokenStorage(stor oauth2.TokenStore) {
	m.tokens = stor
}

// MapAccessGenerate mapping the access token generator
func (m *Manager) MapAccessGenerate(gen oauth2.AccessGenerate) {
	m.accessGen = gen
}

// MapAuthorizeGenerate mapping the authorization code generator
func (m *Manager) MapAuthorizeGenerate(gen oauth2.AuthorizeGenerate) {
	m.authorizeGen = gen
}

// SetAuditLogger sets the security-event sink
func (m *Manager) SetAuditLogger(l audit.Logger) {
	if l == nil {
		l = audit.Nop{}
	}
	m.auditor = l
}

// SetPasswordVerifier sets the resource-owner credential collaborator
func (m *Manager) SetPasswordVerifier(fn PasswordVerifier) {
	m.passwordVerifier = fn
}

// SetUserScopeResolver sets the owner-grantable scope collaborator
func (m *Manager) SetUserScopeResolver(fn UserScopeResolver) {
	m.userScopes = fn
}

// SetTokenEndpoint sets the expected audience for client assertion JWTs
func (m *Manager) SetTokenEndpoint(url string) {
	if m.auth != nil {
		m.auth.TokenEndpoint = url
	}
}

// RegisterGrantHandler registers (or replaces) the handler for a grant type.
func (m *Manager) RegisterGrantHandler(gt oauth2.GrantType, h GrantHandler) {
	m.handlers[gt] = h
}

// GetClient reads the client information
func (m *Manager) GetClient(ctx context.Context, clientID string) (oauth2.ClientInfo, error) {
	cli, err := m.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, errors.ErrInvalidClient
	}
	return cli, nil
}

// AuthenticateClient verifies the request's client credentials against the
// client's registered auth method.
func (m *Manager) AuthenticateClient(ctx context.Context, tgr *oauth2.TokenGenerateRequest) (oauth2.ClientInfo, error) {
	creds := tgr.Credentials
	if creds.ID == "" {
		creds.ID = tgr.ClientID
	}
	cli, err := m.auth.Authenticate(ctx, &creds)
	if err != nil {
		if errors.Is(err, errors.ErrAmbiguousClientAuth) {
			return nil, errors.ErrInvalidRequest
		}
		return nil, errors.ErrInvalidClient
	}
	return cli, nil
}

// GenerateAuthorizationCode mints and persists a single-use code. The caller
// (the authorization endpoint) has already authenticated the resource owner.
func (m *Manager) GenerateAuthorizationCode(ctx context.Context, tgr *oauth2.TokenGenerateRequest) (oauth2.TokenInfo, error) {
	cli, err := m.GetClient(ctx, tgr.ClientID)
	if err != nil {
		return nil, err
	}
	if cli.IsRevoked() {
		return nil, errors.ErrInvalidClient
	}
	if !clientAllowsGrant(cli, oauth2.AuthorizationCode) {
		return nil, errors.ErrUnauthorizedClient
	}
	if tgr.UserID == "" {
		return nil, errors.ErrInvalidRequest
	}
	if !registeredRedirect(cli, tgr.RedirectURI) {
		return nil, errors.ErrInvalidRequest
	}

	challenge := tgr.CodeChallenge
	method := tgr.CodeChallengeMethod
	if challenge == "" && cli.IsPublic() {
		// public clients must bind the code to a PKCE challenge
		return nil, errors.ErrInvalidRequest
	}
	if challenge != "" {
		if len(challenge) < pkce.MinVerifierLength || len(challenge) > pkce.MaxVerifierLength {
			return nil, errors.ErrInvalidRequest
		}
		if method == "" {
			method = oauth2.CodeChallengePlain
		}
		if method.String() == "" {
			return nil, errors.ErrInvalidRequest
		}
	}

	granted, err := scope.Validate(tgr.Scope, cli.GetScopes(), m.cfg.ScopePolicy)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ti := models.NewToken()
	ti.SetClientID(cli.GetID())
	ti.SetUserID(tgr.UserID)
	ti.SetRedirectURI(tgr.RedirectURI)
	ti.SetScope(granted)
	ti.SetAudience(tgr.Audience)
	ti.SetFamilyID(uuid.NewString())
	ti.SetCodeCreateAt(now)
	ti.SetCodeExpiresIn(m.cfg.CodeTTL)
	if challenge != "" {
		ti.SetCodeChallenge(challenge)
		ti.SetCodeChallengeMethod(method)
	}

	code, err := m.authorizeGen.Token(ctx, &oauth2.GenerateBasic{Client: cli, UserID: tgr.UserID, CreateAt: now, TokenInfo: ti})
	if err != nil {
		return nil, errors.ErrServerError
	}
	ti.SetCode(code)

	if err := m.tokens.Create(ctx, ti); err != nil {
		return nil, errors.ErrServerError
	}
	return ti, nil
}

// GenerateAccessToken executes one grant: authenticate the client, check the
// grant is permitted, then dispatch to the registered handler.
func (m *Manager) GenerateAccessToken(ctx context.Context, gt oauth2.GrantType, tgr *oauth2.TokenGenerateRequest) (oauth2.TokenInfo, error) {
	handler, ok := m.handlers[gt]
	if !ok {
		return nil, errors.ErrUnsupportedGrantType
	}

	cli, err := m.AuthenticateClient(ctx, tgr)
	if err != nil {
		return nil, err
	}
	if !clientAllowsGrant(cli, gt) {
		return nil, errors.ErrUnauthorizedClient
	}

	ti, err := handler.Handle(ctx, cli, tgr)
	if err != nil {
		return nil, m.grantError(err)
	}
	return ti, nil
}

// LoadAccessToken loads an access token, rejecting expired or revoked ones.
func (m *Manager) LoadAccessToken(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	if access == "" {
		return nil, errors.ErrInvalidAccessToken
	}
	ti, err := m.tokens.GetByAccess(ctx, access)
	if err != nil {
		if errors.Is(err, errors.ErrTokenNotFound) {
			return nil, errors.ErrInvalidAccessToken
		}
		return nil, err
	}
	if ti.IsAccessRevoked() {
		return nil, errors.ErrRevokedAccessToken
	}
	if accessExpired(ti, time.Now()) {
		return nil, errors.ErrExpiredAccessToken
	}
	return ti, nil
}

// LoadRefreshToken loads a refresh token, rejecting expired or revoked ones.
func (m *Manager) LoadRefreshToken(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	if refresh == "" {
		return nil, errors.ErrInvalidRefreshToken
	}
	ti, err := m.tokens.GetByRefresh(ctx, refresh)
	if err != nil {
		if errors.Is(err, errors.ErrTokenNotFound) {
			return nil, errors.ErrInvalidRefreshToken
		}
		return nil, err
	}
	if ti.IsRefreshRevoked() {
		return nil, errors.ErrRevokedRefreshToken
	}
	if refreshExpired(ti, time.Now()) {
		return nil, errors.ErrExpiredRefreshToken
	}
	return ti, nil
}

// Introspect reports the current state of a token. Unknown, expired and
// revoked tokens all yield the same inactive result.
func (m *Manager) Introspect(ctx context.Context, token, hint string) (*oauth2.Introspection, error) {
	inactive := &oauth2.Introspection{Active: false}

	lookupAccess := func() (*oauth2.Introspection, error) {
		ti, err := m.LoadAccessToken(ctx, token)
		if err != nil {
			return nil, err
		}
		return &oauth2.Introspection{
			Active:    true,
			Scope:     ti.GetScope(),
			ClientID:  ti.GetClientID(),
			TokenType: "Bearer",
			Sub:       ti.GetUserID(),
			Iat:       ti.GetAccessCreateAt().Unix(),
			Exp:       ti.GetAccessCreateAt().Add(ti.GetAccessExpiresIn()).Unix(),
		}, nil
	}
	lookupRefresh := func() (*oauth2.Introspection, error) {
		ti, err := m.LoadRefreshToken(ctx, token)
		if err != nil {
			return nil, err
		}
		return &oauth2.Introspection{
			Active:   true,
			Scope:    ti.GetScope(),
			ClientID: ti.GetClientID(),
			Sub:      ti.GetUserID(),
			Iat:      ti.GetRefreshCreateAt().Unix(),
			Exp:      ti.GetRefreshCreateAt().Add(ti.GetRefreshExpiresIn()).Unix(),
		}, nil
	}

	var order []func() (*oauth2.Introspection, error)
	switch hint {
	case "refresh_token":
		order = append(order, lookupRefresh, lookupAccess)
	default:
		order = append(order, lookupAccess, lookupRefresh)
	}

	for _, fn := range order {
		res, err := fn()
		if err == nil {
			return res, nil
		}
		if !isTokenStateError(err) {
			return nil, errors.ErrServerError
		}
	}
	return inactive, nil
}

// Revoke invalidates a token. Unknown tokens are acknowledged silently.
// Refresh-token revocation cascades to the whole family.
func (m *Manager) Revoke(ctx context.Context, token, hint string) error {
	if token == "" {
		return nil
	}

	revokeAccess := func() (bool, error) {
		ti, err := m.tokens.GetByAccess(ctx, token)
		if err != nil {
			if errors.Is(err, errors.ErrTokenNotFound) {
				return false, nil
			}
			return false, errors.ErrServerError
		}
		if err := m.tokens.RevokeByAccess(ctx, token); err != nil {
			return false, errors.ErrServerError
		}
		if m.cfg.RevokeSiblingRefresh && ti.GetRefresh() != "" {
			if err := m.tokens.RevokeByRefresh(ctx, ti.GetRefresh()); err != nil {
				return false, errors.ErrServerError
			}
		}
		return true, nil
	}
	revokeRefresh := func() (bool, error) {
		ti, err := m.tokens.GetByRefresh(ctx, token)
		if err != nil {
			if errors.Is(err, errors.ErrTokenNotFound) {
				return false, nil
			}
			return false, errors.ErrServerError
		}
		if fid := ti.GetFamilyID(); fid != "" {
			if err := m.tokens.RevokeFamily(ctx, fid); err != nil {
				return false, errors.ErrServerError
			}
			m.auditor.Event(ctx, audit.EventFamilyRevoked, map[string]any{
				"family_id": fid,
				"client_id": ti.GetClientID(),
				"reason":    "revocation_request",
			})
			return true, nil
		}
		if err := m.tokens.RevokeByRefresh(ctx, token); err != nil {
			return false, errors.ErrServerError
		}
		return true, nil
	}

	var order []func() (bool, error)
	switch hint {
	case "refresh_token":
		order = append(order, revokeRefresh, revokeAccess)
	default:
		order = append(order, revokeAccess, revokeRefresh)
	}
	for _, fn := range order {
		done, err := fn()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return nil
}

// issueSpec describes one access/refresh issuance.
type issueSpec struct {
	client     oauth2.ClientInfo
	userID     string
	scope      string
	audience   []string
	familyID   string
	generation int64
	genRefresh bool
	accessExp  time.Duration
	persist    bool
}

// issueTokens mints an access token (and optionally a refresh token) and,
// when spec.persist is set, writes the record through the store port.
func (m *Manager) issueTokens(ctx context.Context, spec issueSpec) (oauth2.TokenInfo, error) {
	now := time.Now()

	ti := models.NewToken()
	ti.SetClientID(spec.client.GetID())
	ti.SetUserID(spec.userID)
	ti.SetScope(spec.scope)
	ti.SetAudience(spec.audience)
	if spec.familyID == "" {
		spec.familyID = uuid.NewString()
	}
	ti.SetFamilyID(spec.familyID)
	ti.SetGeneration(spec.generation)

	ti.SetAccessCreateAt(now)
	exp := m.cfg.AccessTTL
	if spec.accessExp > 0 {
		exp = spec.accessExp
	}
	ti.SetAccessExpiresIn(exp)
	if spec.genRefresh {
		ti.SetRefreshCreateAt(now)
		ti.SetRefreshExpiresIn(m.cfg.RefreshTTL)
	}

	gb := &oauth2.GenerateBasic{Client: spec.client, UserID: spec.userID, CreateAt: now, TokenInfo: ti}
	access, refresh, err := m.accessGen.Token(ctx, gb, spec.genRefresh)
	if err != nil {
		return nil, errors.ErrServerError
	}
	ti.SetAccess(access)
	if refresh != "" {
		ti.SetRefresh(refresh)
	}

	if spec.persist {
		if err := m.tokens.Create(ctx, ti); err != nil {
			return nil, errors.ErrServerError
		}
	}
	return ti, nil
}

// replayCascade handles reuse of a single-use or superseded credential:
// audit the event and revoke the whole token family. The caller still
// returns plain invalid_grant; detection drives side effects only.
func (m *Manager) replayCascade(ctx context.Context, event string, ti oauth2.TokenInfo) {
	fields := map[string]any{
		"client_id": ti.GetClientID(),
		"family_id": ti.GetFamilyID(),
	}
	if uid := ti.GetUserID(); uid != "" {
		fields["user_id"] = uid
	}
	m.auditor.Event(ctx, event, fields)

	fid := ti.GetFamilyID()
	if fid == "" {
		return
	}
	if err := m.tokens.RevokeFamily(ctx, fid); err != nil {
		return
	}
	m.auditor.Event(ctx, audit.EventFamilyRevoked, map[string]any{
		"family_id": fid,
		"client_id": ti.GetClientID(),
		"reason":    "replay_detected",
	})
}

// grantError maps internal sentinels to response errors; anything unknown
// becomes server_error so no detail leaks.
func (m *Manager) grantError(err error) error {
	switch {
	case err == nil:
		return nil
	case isResponseError(err):
		return err
	case errors.Is(err, errors.ErrMissingCodeVerifier),
		errors.Is(err, errors.ErrInvalidCodeVerifier):
		return errors.ErrInvalidRequest
	case errors.Is(err, errors.ErrTokenNotFound),
		errors.Is(err, errors.ErrInvalidAuthorizeCode),
		errors.Is(err, errors.ErrExpiredAuthorizeCode),
		errors.Is(err, errors.ErrCodeConsumed),
		errors.Is(err, errors.ErrInvalidRedirectURI),
		errors.Is(err, errors.ErrInvalidCodeChallenge),
		errors.Is(err, errors.ErrInvalidRefreshToken),
		errors.Is(err, errors.ErrExpiredRefreshToken),
		errors.Is(err, errors.ErrRevokedRefreshToken),
		errors.Is(err, errors.ErrRefreshSuperseded):
		return errors.ErrInvalidGrant
	default:
		return errors.ErrServerError
	}
}

func isResponseError(err error) bool {
	_, ok := errors.StatusCodes[err]
	return ok
}

func isTokenStateError(err error) bool {
	switch {
	case errors.Is(err, errors.ErrInvalidAccessToken),
		errors.Is(err, errors.ErrExpiredAccessToken),
		errors.Is(err, errors.ErrRevokedAccessToken),
		errors.Is(err, errors.ErrInvalidRefreshToken),
		errors.Is(err, errors.ErrExpiredRefreshToken),
		errors.Is(err, errors.ErrRevokedRefreshToken):
		return true
	}
	return false
}

func clientAllowsGrant(cli oauth2.ClientInfo, gt oauth2.GrantType) bool {
	for _, v := range cli.GetGrantTypes() {
		if v == gt {
			return true
		}
	}
	return false
}

func registeredRedirect(cli oauth2.ClientInfo, uri string) bool {
	if uri == "" {
		return false
	}
	for _, v := range cli.GetRedirectURIs() {
		if v == uri {
			return true
		}
	}
	return false
}

func accessExpired(ti oauth2.TokenInfo, now time.Time) bool {
	return ti.GetAccess() == "" || ti.GetAccessCreateAt().Add(ti.GetAccessExpiresIn()).Before(now)
}

func refreshExpired(ti oauth2.TokenInfo, now time.Time) bool {
	return ti.GetRefresh() == "" || ti.GetRefreshCreateAt().Add(ti.GetRefreshExpiresIn()).Before(now)
}

func codeExpired(ti oauth2.TokenInfo, now time.Time) bool {
	return ti.GetCode() == "" || ti.GetCodeCreateAt().Add(ti.GetCodeExpiresIn()).Before(now)
}
