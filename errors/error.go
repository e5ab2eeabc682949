package errors

import (
	"errors"
	"net/http"
)

// New returns an error that formats as the given text.
var New = errors.New

// Is reports whether any error in err's chain matches target.
var Is = errors.Is

// Response error response
type Response struct {
	Error       error
	ErrorCode   int
	Description string
	URI         string
	StatusCode  int
	Header      http.Header
}

// NewResponse create the response pointer
func NewResponse(err error, statusCode int) *Response {
	return &Response{
		Error:      err,
		StatusCode: statusCode,
	}
}

// SetHeader sets the header entries associated with key to the single element value.
func (r *Response) SetHeader(key, value string) {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
}

// https://tools.ietf.org/html/rfc6749#section-5.2
var (
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrInvalidGrant         = errors.New("invalid_grant")
	ErrUnauthorizedClient   = errors.New("unauthorized_client")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
	ErrInvalidScope         = errors.New("invalid_scope")
	ErrServerError          = errors.New("server_error")
)

// Descriptions error description
var Descriptions = map[error]string{
	ErrInvalidRequest:       "The request is missing a required parameter, includes an invalid parameter value, includes a parameter more than once, or is otherwise malformed",
	ErrInvalidClient:        "Client authentication failed",
	ErrInvalidGrant:         "The provided authorization grant (e.g., authorization code, resource owner credentials) or refresh token is invalid, expired, revoked, does not match the redirection URI used in the authorization request, or was issued to another client",
	ErrUnauthorizedClient:   "The client is not authorized to request an authorization code using this method",
	ErrUnsupportedGrantType: "The authorization grant type is not supported by the authorization server",
	ErrInvalidScope:         "The requested scope is invalid, unknown, or malformed",
	ErrServerError:          "The authorization server encountered an unexpected condition that prevented it from fulfilling the request",
}

// StatusCodes response error HTTP status code
var StatusCodes = map[error]int{
	ErrInvalidRequest:       http.StatusBadRequest,
	ErrInvalidClient:        http.StatusUnauthorized,
	ErrInvalidGrant:         http.StatusBadRequest,
	ErrUnauthorizedClient:   http.StatusBadRequest,
	ErrUnsupportedGrantType: http.StatusBadRequest,
	ErrInvalidScope:         http.StatusBadRequest,
	ErrServerError:          http.StatusInternalServerError,
}

// Internal sentinels. These never reach the wire: the engine maps each one to
// a response error above before returning to the boundary.
var (
	ErrTokenNotFound            = errors.New("token not found")
	ErrClientNotFound           = errors.New("client not found")
	ErrClientRevoked            = errors.New("client revoked")
	ErrAmbiguousClientAuth      = errors.New("ambiguous client authentication")
	ErrAuthMethodMismatch       = errors.New("client auth method mismatch")
	ErrInvalidClientSecret      = errors.New("invalid client secret")
	ErrInvalidClientAssertion   = errors.New("invalid client assertion")
	ErrInvalidAuthorizeCode     = errors.New("invalid authorize code")
	ErrExpiredAuthorizeCode     = errors.New("expired authorize code")
	ErrCodeConsumed             = errors.New("authorize code already consumed")
	ErrInvalidRedirectURI       = errors.New("invalid redirect uri")
	ErrMissingCodeVerifier      = errors.New("missing code verifier")
	ErrMissingCodeChallenge     = errors.New("missing code challenge")
	ErrInvalidCodeVerifier      = errors.New("invalid code verifier")
	ErrInvalidCodeChallenge     = errors.New("invalid code challenge")
	ErrInvalidRefreshToken      = errors.New("invalid refresh token")
	ErrExpiredRefreshToken      = errors.New("expired refresh token")
	ErrRevokedRefreshToken      = errors.New("revoked refresh token")
	ErrRefreshSuperseded        = errors.New("refresh token superseded")
	ErrInvalidAccessToken       = errors.New("invalid access token")
	ErrExpiredAccessToken       = errors.New("expired access token")
	ErrRevokedAccessToken       = errors.New("revoked access token")
)
