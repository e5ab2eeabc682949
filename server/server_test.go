package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gavv/httpexpect/v2"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/manage"
	"github.com/authforge/oauth2/models"
	"github.com/authforge/oauth2/server"
	"github.com/authforge/oauth2/store"
)

const (
	clientID     = "web-client"
	clientSecret = "web-secret"
)

func newTestServer(t *testing.T) (*server.Server, *manage.Manager) {
	t.Helper()

	ts, err := store.NewMemoryTokenStore()
	if err != nil {
		t.Fatal(err)
	}

	cs := store.NewClientStore()
	_ = cs.Set(clientID, &models.Client{
		ID:     clientID,
		Secret: clientSecret,
		GrantTypes: []oauth2.GrantType{
			oauth2.AuthorizationCode,
			oauth2.ClientCredentials,
			oauth2.PasswordCredentials,
			oauth2.Refreshing,
		},
		RedirectURIs: []string{"http://localhost:9094/oauth2/callback"},
		Scopes:       []string{"read", "write"},
		Trusted:      true,
	})

	m := manage.NewManager(nil)
	m.MapTokenStorage(ts)
	m.MapClientStorage(cs)
	m.SetPasswordVerifier(func(ctx context.Context, clientID, username, password string) (string, error) {
		if username == "alice" && password == "wonder" {
			return "u-alice", nil
		}
		return "", errors.New("invalid resource owner credentials")
	})

	return server.NewDefaultServer(m), m
}

func mountEndpoints(srv *server.Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = srv.HandleTokenRequest(w, r)
	})
	mux.HandleFunc("/oauth/introspect", func(w http.ResponseWriter, r *http.Request) {
		_ = srv.HandleIntrospectionRequest(w, r)
	})
	mux.HandleFunc("/oauth/revoke", func(w http.ResponseWriter, r *http.Request) {
		_ = srv.HandleRevocationRequest(w, r)
	})
	return mux
}

func TestClientCredentialsTokenRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	tsrv := httptest.NewServer(mountEndpoints(srv))
	defer tsrv.Close()

	e := httpexpect.Default(t, tsrv.URL)

	resp := e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "client_credentials").
		WithFormField("scope", "read").
		Expect().
		Status(http.StatusOK)

	resp.Header("Cache-Control").IsEqual("no-store")
	resp.Header("Pragma").IsEqual("no-cache")
	resp.Header("Content-Type").Contains("application/json")

	obj := resp.JSON().Object()
	obj.Value("access_token").String().NotEmpty()
	obj.Value("token_type").IsEqual("Bearer")
	obj.Value("expires_in").Number().Gt(0)
	obj.Value("scope").IsEqual("read")
	obj.NotContainsKey("refresh_token")
}

func TestPasswordTokenRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	tsrv := httptest.NewServer(mountEndpoints(srv))
	defer tsrv.Close()

	e := httpexpect.Default(t, tsrv.URL)

	obj := e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "password").
		WithFormField("username", "alice").
		WithFormField("password", "wonder").
		WithFormField("scope", "read write").
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	obj.Value("access_token").String().NotEmpty()
	obj.Value("refresh_token").String().NotEmpty()
	obj.Value("scope").IsEqual("read write")
}

func TestRefreshTokenRotationOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	tsrv := httptest.NewServer(mountEndpoints(srv))
	defer tsrv.Close()

	e := httpexpect.Default(t, tsrv.URL)

	first := e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "password").
		WithFormField("username", "alice").
		WithFormField("password", "wonder").
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	refresh := first.Value("refresh_token").String().Raw()

	second := e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "refresh_token").
		WithFormField("refresh_token", refresh).
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	second.Value("refresh_token").String().NotEmpty().NotEqual(refresh)

	// replaying the rotated-out token is a plain invalid_grant on the wire
	e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "refresh_token").
		WithFormField("refresh_token", refresh).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").IsEqual("invalid_grant")

	// and the cascade killed the successor too
	e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "refresh_token").
		WithFormField("refresh_token", second.Value("refresh_token").String().Raw()).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").IsEqual("invalid_grant")
}

func TestTokenRequestErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	tsrv := httptest.NewServer(mountEndpoints(srv))
	defer tsrv.Close()

	e := httpexpect.Default(t, tsrv.URL)

	// wrong secret
	resp := e.POST("/oauth/token").
		WithBasicAuth(clientID, "wrong").
		WithFormField("grant_type", "client_credentials").
		Expect().
		Status(http.StatusUnauthorized)
	obj := resp.JSON().Object()
	obj.Value("error").IsEqual("invalid_client")
	obj.Value("error_description").String().NotEmpty()

	// unknown grant type
	e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "device_code").
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").IsEqual("unsupported_grant_type")

	// missing grant type
	e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").IsEqual("invalid_request")

	// GET is not acceptable
	e.GET("/oauth/token").
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").IsEqual("invalid_request")

	// secret in both the header and the body
	e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "client_credentials").
		WithFormField("client_secret", clientSecret).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").IsEqual("invalid_request")

	// scope outside the registration
	e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "client_credentials").
		WithFormField("scope", "admin").
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").IsEqual("invalid_scope")
}

func TestAuthorizationCodeOverHTTP(t *testing.T) {
	srv, m := newTestServer(t)
	tsrv := httptest.NewServer(mountEndpoints(srv))
	defer tsrv.Close()

	code, err := m.GenerateAuthorizationCode(context.Background(), &oauth2.TokenGenerateRequest{
		ClientID:    clientID,
		UserID:      "u-alice",
		RedirectURI: "http://localhost:9094/oauth2/callback",
		Scope:       "read",
	})
	if err != nil {
		t.Fatal(err)
	}

	e := httpexpect.Default(t, tsrv.URL)

	obj := e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "authorization_code").
		WithFormField("code", code.GetCode()).
		WithFormField("redirect_uri", "http://localhost:9094/oauth2/callback").
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	obj.Value("access_token").String().NotEmpty()
	obj.Value("refresh_token").String().NotEmpty()

	// a second redemption of the same code is refused
	e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "authorization_code").
		WithFormField("code", code.GetCode()).
		WithFormField("redirect_uri", "http://localhost:9094/oauth2/callback").
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").IsEqual("invalid_grant")
}

func TestIntrospectionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	tsrv := httptest.NewServer(mountEndpoints(srv))
	defer tsrv.Close()

	e := httpexpect.Default(t, tsrv.URL)

	access := e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "client_credentials").
		WithFormField("scope", "read").
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("access_token").String().Raw()

	resp := e.POST("/oauth/introspect").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("token", access).
		Expect().
		Status(http.StatusOK)

	resp.Header("Cache-Control").IsEqual("no-store")
	obj := resp.JSON().Object()
	obj.Value("active").IsEqual(true)
	obj.Value("client_id").IsEqual(clientID)
	obj.Value("scope").IsEqual("read")
	obj.Value("token_type").IsEqual("Bearer")

	// unknown tokens are a flat inactive object
	inactive := e.POST("/oauth/introspect").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("token", "no-such-token").
		Expect().
		Status(http.StatusOK).
		JSON().Object()
	inactive.Value("active").IsEqual(false)
	inactive.NotContainsKey("scope")
	inactive.NotContainsKey("client_id")

	// the caller must authenticate
	e.POST("/oauth/introspect").
		WithBasicAuth(clientID, "wrong").
		WithFormField("token", access).
		Expect().
		Status(http.StatusUnauthorized)

	// and supply a token
	e.POST("/oauth/introspect").
		WithBasicAuth(clientID, clientSecret).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").IsEqual("invalid_request")
}

func TestRevocationEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	tsrv := httptest.NewServer(mountEndpoints(srv))
	defer tsrv.Close()

	e := httpexpect.Default(t, tsrv.URL)

	access := e.POST("/oauth/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "client_credentials").
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("access_token").String().Raw()

	e.POST("/oauth/revoke").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("token", access).
		WithFormField("token_type_hint", "access_token").
		Expect().
		Status(http.StatusOK)

	e.POST("/oauth/introspect").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("token", access).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("active").IsEqual(false)

	// revocation is idempotent, unknown tokens included
	e.POST("/oauth/revoke").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("token", access).
		Expect().
		Status(http.StatusOK)
	e.POST("/oauth/revoke").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("token", "no-such-token").
		Expect().
		Status(http.StatusOK)

	// but the caller still has to authenticate
	e.POST("/oauth/revoke").
		WithBasicAuth(clientID, "wrong").
		WithFormField("token", access).
		Expect().
		Status(http.StatusUnauthorized)
}
