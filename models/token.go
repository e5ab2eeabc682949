package models

import (
	"time"

	"github.com/authforge/oauth2"
)

// NewToken create to token model instance
func NewToken() *Token {
	return &Token{}
}

// Token token model. One record covers one issuance event: either an
// authorization code, or an access/refresh pair sharing a family id.
type Token struct {
	ClientID    string    `json:"client_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	RedirectURI string    `json:"redirect_uri,omitempty"`
	Scope       string    `json:"scope,omitempty"`
	Audience    []string  `json:"audience,omitempty"`
	FamilyID    string    `json:"family_id,omitempty"`
	Generation  int64     `json:"generation,omitempty"`

	Code                string                     `json:"code,omitempty"`
	CodeCreateAt        time.Time                  `json:"code_create_at,omitempty"`
	CodeExpiresIn       time.Duration              `json:"code_expires_in,omitempty"`
	CodeChallenge       string                     `json:"code_challenge,omitempty"`
	CodeChallengeMethod oauth2.CodeChallengeMethod `json:"code_challenge_method,omitempty"`
	CodeConsumed        bool                       `json:"code_consumed,omitempty"`

	Access          string        `json:"access,omitempty"`
	AccessCreateAt  time.Time     `json:"access_create_at,omitempty"`
	AccessExpiresIn time.Duration `json:"access_expires_in,omitempty"`
	AccessRevoked   bool          `json:"access_revoked,omitempty"`

	Refresh          string        `json:"refresh,omitempty"`
	RefreshCreateAt  time.Time     `json:"refresh_create_at,omitempty"`
	RefreshExpiresIn time.Duration `json:"refresh_expires_in,omitempty"`
	RefreshRevoked   bool          `json:"refresh_revoked,omitempty"`
}

// New create to token model instance
func (t *Token) New() oauth2.TokenInfo {
	return NewToken()
}

// GetClientID the client id
func (t *Token) GetClientID() string {
	return t.ClientID
}

// SetClientID the client id
func (t *Token) SetClientID(clientID string) {
	t.ClientID = clientID
}

// GetUserID the user id
func (t *Token) GetUserID() string {
	return t.UserID
}

// SetUserID the user id
func (t *Token) SetUserID(userID string) {
	t.UserID = userID
}

// GetRedirectURI redirect URI
func (t *Token) GetRedirectURI() string {
	return t.RedirectURI
}

// SetRedirectURI redirect URI
func (t *Token) SetRedirectURI(redirectURI string) {
	t.RedirectURI = redirectURI
}

// GetScope get scope of authorization
func (t *Token) GetScope() string {
	return t.Scope
}

// SetScope get scope of authorization
func (t *Token) SetScope(scope string) {
	t.Scope = scope
}

// GetAudience resource indicators
func (t *Token) GetAudience() []string {
	return t.Audience
}

// SetAudience resource indicators
func (t *Token) SetAudience(aud []string) {
	t.Audience = aud
}

// GetFamilyID token family id
func (t *Token) GetFamilyID() string {
	return t.FamilyID
}

// SetFamilyID token family id
func (t *Token) SetFamilyID(id string) {
	t.FamilyID = id
}

// GetGeneration rotation generation counter
func (t *Token) GetGeneration() int64 {
	return t.Generation
}

// SetGeneration rotation generation counter
func (t *Token) SetGeneration(g int64) {
	t.Generation = g
}

// GetCode authorization code
func (t *Token) GetCode() string {
	return t.Code
}

// SetCode authorization code
func (t *Token) SetCode(code string) {
	t.Code = code
}

// GetCodeCreateAt create Time
func (t *Token) GetCodeCreateAt() time.Time {
	return t.CodeCreateAt
}

// SetCodeCreateAt create Time
func (t *Token) SetCodeCreateAt(createAt time.Time) {
	t.CodeCreateAt = createAt
}

// GetCodeExpiresIn the lifetime in seconds of the authorization code
func (t *Token) GetCodeExpiresIn() time.Duration {
	return t.CodeExpiresIn
}

// SetCodeExpiresIn the lifetime in seconds of the authorization code
func (t *Token) SetCodeExpiresIn(exp time.Duration) {
	t.CodeExpiresIn = exp
}

// GetCodeChallenge challenge code
func (t *Token) GetCodeChallenge() string {
	return t.CodeChallenge
}

// SetCodeChallenge challenge code
func (t *Token) SetCodeChallenge(code string) {
	t.CodeChallenge = code
}

// GetCodeChallengeMethod challenge method
func (t *Token) GetCodeChallengeMethod() oauth2.CodeChallengeMethod {
	return t.CodeChallengeMethod
}

// SetCodeChallengeMethod challenge method
func (t *Token) SetCodeChallengeMethod(method oauth2.CodeChallengeMethod) {
	t.CodeChallengeMethod = method
}

// IsCodeConsumed single-use flag
func (t *Token) IsCodeConsumed() bool {
	return t.CodeConsumed
}

// SetCodeConsumed single-use flag
func (t *Token) SetCodeConsumed(v bool) {
	t.CodeConsumed = v
}

// GetAccess access Token
func (t *Token) GetAccess() string {
	return t.Access
}

// SetAccess access Token
func (t *Token) SetAccess(access string) {
	t.Access = access
}

// GetAccessCreateAt create Time
func (t *Token) GetAccessCreateAt() time.Time {
	return t.AccessCreateAt
}

// SetAccessCreateAt create Time
func (t *Token) SetAccessCreateAt(createAt time.Time) {
	t.AccessCreateAt = createAt
}

// GetAccessExpiresIn the lifetime in seconds of the access token
func (t *Token) GetAccessExpiresIn() time.Duration {
	return t.AccessExpiresIn
}

// SetAccessExpiresIn the lifetime in seconds of the access token
func (t *Token) SetAccessExpiresIn(exp time.Duration) {
	t.AccessExpiresIn = exp
}

// IsAccessRevoked revoked flag
func (t *Token) IsAccessRevoked() bool {
	return t.AccessRevoked
}

// SetAccessRevoked revoked flag
func (t *Token) SetAccessRevoked(v bool) {
	t.AccessRevoked = v
}

// GetRefresh refresh Token
func (t *Token) GetRefresh() string {
	return t.Refresh
}

// SetRefresh refresh Token
func (t *Token) SetRefresh(refresh string) {
	t.Refresh = refresh
}

// GetRefreshCreateAt create Time
func (t *Token) GetRefreshCreateAt() time.Time {
	return t.RefreshCreateAt
}

// SetRefreshCreateAt create Time
func (t *Token) SetRefreshCreateAt(createAt time.Time) {
	t.RefreshCreateAt = createAt
}

// GetRefreshExpiresIn the lifetime in seconds of the refresh token
func (t *Token) GetRefreshExpiresIn() time.Duration {
	return t.RefreshExpiresIn
}

// SetRefreshExpiresIn the lifetime in seconds of the refresh token
func (t *Token) SetRefreshExpiresIn(exp time.Duration) {
	t.RefreshExpiresIn = exp
}

// IsRefreshRevoked revoked flag
func (t *Token) IsRefreshRevoked() bool {
	return t.RefreshRevoked
}

// SetRefreshRevoked revoked flag
func (t *Token) SetRefreshRevoked(v bool) {
	t.RefreshRevoked = v
}
