// An example machine-to-machine client: obtains a token via the
// client_credentials grant, introspects it, then revokes it.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2/clientcredentials"
)

func main() {
	base := env("AUTH_BASE_URL", "http://localhost:9096")
	clientID := env("CLIENT_ID", "dev-client")
	clientSecret := env("CLIENT_SECRET", "dev-secret")

	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     base + "/oauth/token",
		Scopes:       []string{"read"},
	}

	ctx := context.Background()
	token, err := cfg.Token(ctx)
	if err != nil {
		log.Fatalf("token: %v", err)
	}
	fmt.Printf("access_token: %s\n", token.AccessToken)
	fmt.Printf("token_type:   %s\n", token.TokenType)
	fmt.Printf("expires:      %s\n", token.Expiry)

	introspect(base, clientID, clientSecret, token.AccessToken)
	revoke(base, clientID, clientSecret, token.AccessToken)
	introspect(base, clientID, clientSecret, token.AccessToken)
}

func introspect(base, id, secret, token string) {
	resp, err := postForm(base+"/oauth/introspect", id, secret, url.Values{
		"token": {token},
	})
	if err != nil {
		log.Fatalf("introspect: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("introspect -> %s\n", body)
}

func revoke(base, id, secret, token string) {
	resp, err := postForm(base+"/oauth/revoke", id, secret, url.Values{
		"token": {token},
	})
	if err != nil {
		log.Fatalf("revoke: %v", err)
	}
	resp.Body.Close()
	fmt.Printf("revoke -> %d\n", resp.StatusCode)
}

func postForm(endpoint, id, secret string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(id, secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return http.DefaultClient.Do(req)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
