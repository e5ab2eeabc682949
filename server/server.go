// Package server is the HTTP boundary: the token, introspection and
// revocation endpoints over the grant engine.
package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/errors"
)

// ExtensionFieldsHandler in response to the access token with the extension of the field
type ExtensionFieldsHandler func(ti oauth2.TokenInfo) (fieldsValue map[string]interface{})

// ResponseErrorHandler observes response errors before they are written
type ResponseErrorHandler func(re *errors.Response)

// InternalErrorHandler observes internal faults; the wire still carries server_error
type InternalErrorHandler func(err error) (re *errors.Response)

// NewDefaultServer create a default authorization server
func NewDefaultServer(manager oauth2.Manager) *Server {
	return NewServer(NewConfig(), manager)
}

// NewServer create authorization server
func NewServer(cfg *Config, manager oauth2.Manager) *Server {
	return &Server{
		Config:  cfg,
		Manager: manager,
	}
}

// Server Provide authorization server
type Server struct {
	Config                 *Config
	Manager                oauth2.Manager
	ExtensionFieldsHandler ExtensionFieldsHandler
	InternalErrorHandler   InternalErrorHandler
	ResponseErrorHandler   ResponseErrorHandler
}

// ClientCredentialsFromRequest collects every credential presentation on the
// request. The authenticator rejects requests presenting more than one.
func (s *Server) ClientCredentialsFromRequest(r *http.Request) oauth2.ClientAuthCredentials {
	creds := oauth2.ClientAuthCredentials{}

	if id, secret, ok := r.BasicAuth(); ok {
		// RFC 6749 2.3.1: both values are form-urlencoded inside the header
		if u, err := url.QueryUnescape(id); err == nil {
			id = u
		}
		if u, err := url.QueryUnescape(secret); err == nil {
			secret = u
		}
		creds.ID = id
		creds.Secret = secret
		creds.BasicAuth = true
	}
	if creds.ID == "" {
		creds.ID = r.FormValue("client_id")
	}
	if secret := r.FormValue("client_secret"); secret != "" {
		if !creds.BasicAuth {
			creds.Secret = secret
		}
		creds.FormSecret = true
	}
	creds.Assertion = r.FormValue("client_assertion")
	creds.AssertionType = r.FormValue("client_assertion_type")
	if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
		sum := sha256.Sum256(r.TLS.PeerCertificates[0].Raw)
		creds.CertThumbprint = hex.EncodeToString(sum[:])
	}
	return creds
}

// CheckGrantType check allows grant type
func (s *Server) CheckGrantType(gt oauth2.GrantType) bool {
	for _, agt := range s.Config.AllowedGrantTypes {
		if agt == gt {
			return true
		}
	}
	return false
}

// ValidationTokenRequest the token request validation
func (s *Server) ValidationTokenRequest(r *http.Request) (oauth2.GrantType, *oauth2.TokenGenerateRequest, error) {
	if r.Method != http.MethodPost {
		return "", nil, errors.ErrInvalidRequest
	}

	gtv := r.FormValue("grant_type")
	if gtv == "" {
		return "", nil, errors.ErrInvalidRequest
	}
	gt := oauth2.GrantType(gtv)
	if gt.String() == "" || !s.CheckGrantType(gt) {
		return "", nil, errors.ErrUnsupportedGrantType
	}

	creds := s.ClientCredentialsFromRequest(r)
	tgr := &oauth2.TokenGenerateRequest{
		ClientID:    creds.ID,
		Credentials: creds,
		Scope:       r.FormValue("scope"),
		Request:     r,
	}
	if aud := r.FormValue("audience"); aud != "" {
		tgr.Audience = strings.Fields(aud)
	}

	switch gt {
	case oauth2.AuthorizationCode:
		tgr.Code = r.FormValue("code")
		tgr.RedirectURI = r.FormValue("redirect_uri")
		tgr.CodeVerifier = r.FormValue("code_verifier")
	case oauth2.PasswordCredentials:
		tgr.Username = r.FormValue("username")
		tgr.Password = r.FormValue("password")
	case oauth2.Refreshing:
		tgr.Refresh = r.FormValue("refresh_token")
	}
	return gt, tgr, nil
}

// HandleTokenRequest token request handling
func (s *Server) HandleTokenRequest(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	gt, tgr, err := s.ValidationTokenRequest(r)
	if err != nil {
		observeToken(gt.String(), "error")
		return s.tokenError(w, err)
	}

	ti, err := s.Manager.GenerateAccessToken(ctx, gt, tgr)
	if err != nil {
		observeToken(gt.String(), "error")
		return s.tokenError(w, err)
	}

	observeToken(gt.String(), "ok")
	return s.token(w, s.GetTokenData(ti), nil)
}

// GetTokenData token data
func (s *Server) GetTokenData(ti oauth2.TokenInfo) map[string]interface{} {
	data := map[string]interface{}{
		"access_token": ti.GetAccess(),
		"token_type":   s.Config.TokenType,
		"expires_in":   int64(ti.GetAccessExpiresIn() / time.Second),
	}
	if scope := ti.GetScope(); scope != "" {
		data["scope"] = scope
	}
	if refresh := ti.GetRefresh(); refresh != "" {
		data["refresh_token"] = refresh
	}
	if fn := s.ExtensionFieldsHandler; fn != nil {
		ext := fn(ti)
		for k, v := range ext {
			if k == "access_token" || k == "expires_in" || k == "refresh_token" || k == "token_type" {
				continue
			}
			data[k] = v
		}
	}
	return data
}

// HandleIntrospectionRequest the introspection request handling (RFC 7662).
// Callers authenticate like any confidential client; the result never
// distinguishes missing, expired and revoked tokens.
func (s *Server) HandleIntrospectionRequest(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		return s.tokenError(w, errors.ErrInvalidRequest)
	}
	creds := s.ClientCredentialsFromRequest(r)
	if _, err := s.Manager.AuthenticateClient(ctx, &oauth2.TokenGenerateRequest{ClientID: creds.ID, Credentials: creds, Request: r}); err != nil {
		return s.tokenError(w, err)
	}

	token := r.FormValue("token")
	if token == "" {
		return s.tokenError(w, errors.ErrInvalidRequest)
	}
	hint := r.FormValue("token_type_hint")

	in, err := s.Manager.Introspect(ctx, token, hint)
	if err != nil {
		return s.tokenError(w, err)
	}
	observeIntrospection(in.Active)

	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(in)
}

// HandleRevocationRequest the revocation request handling (RFC 7009). Unknown
// tokens are acknowledged with 200 like everything else.
func (s *Server) HandleRevocationRequest(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		return s.tokenError(w, errors.ErrInvalidRequest)
	}
	creds := s.ClientCredentialsFromRequest(r)
	if _, err := s.Manager.AuthenticateClient(ctx, &oauth2.TokenGenerateRequest{ClientID: creds.ID, Credentials: creds, Request: r}); err != nil {
		return s.tokenError(w, err)
	}

	token := r.FormValue("token")
	hint := r.FormValue("token_type_hint")

	if err := s.Manager.Revoke(ctx, token, hint); err != nil {
		return s.tokenError(w, err)
	}
	observeRevocation()

	w.WriteHeader(http.StatusOK)
	return nil
}

// GetErrorData get error response data
func (s *Server) GetErrorData(err error) (map[string]interface{}, int, http.Header) {
	var re errors.Response
	if v, ok := errors.Descriptions[err]; ok {
		re.Error = err
		re.Description = v
		re.StatusCode = errors.StatusCodes[err]
	} else {
		if fn := s.InternalErrorHandler; fn != nil {
			if v := fn(err); v != nil {
				re = *v
			}
		}
		if re.Error == nil {
			re.Error = errors.ErrServerError
			re.Description = errors.Descriptions[errors.ErrServerError]
			re.StatusCode = errors.StatusCodes[errors.ErrServerError]
		}
	}

	if fn := s.ResponseErrorHandler; fn != nil {
		fn(&re)
	}

	data := make(map[string]interface{})
	if err := re.Error; err != nil {
		data["error"] = err.Error()
	}
	if v := re.Description; v != "" {
		data["error_description"] = v
	}
	if v := re.URI; v != "" {
		data["error_uri"] = v
	}

	statusCode := http.StatusInternalServerError
	if v := re.StatusCode; v > 0 {
		statusCode = v
	}
	return data, statusCode, re.Header
}

func (s *Server) tokenError(w http.ResponseWriter, err error) error {
	data, statusCode, header := s.GetErrorData(err)
	return s.token(w, data, header, statusCode)
}

func (s *Server) token(w http.ResponseWriter, data map[string]interface{}, header http.Header, statusCode ...int) error {
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	for key := range header {
		w.Header().Set(key, header.Get(key))
	}

	status := http.StatusOK
	if len(statusCode) > 0 && statusCode[0] > 0 {
		status = statusCode[0]
	}

	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}
