package models

import "github.com/authforge/oauth2"

// Client client model
type Client struct {
	ID              string
	Secret          string // bcrypt hash, or plain for legacy clients
	RedirectURIs    []string
	GrantTypes      []oauth2.GrantType
	Scopes          []string
	TokenAuthMethod oauth2.TokenAuthMethod
	Public          bool
	Trusted         bool // first-party, allowed the password grant
	Revoked         bool
	PublicKeyPEM    []byte // private_key_jwt verification key
	CertThumbprint  string // hex SHA-256 of the DER client certificate
}

// GetID client id
func (c *Client) GetID() string {
	return c.ID
}

// GetSecret client secret
func (c *Client) GetSecret() string {
	return c.Secret
}

// GetRedirectURIs registered redirect uris, matched exactly
func (c *Client) GetRedirectURIs() []string {
	return c.RedirectURIs
}

// GetGrantTypes grant types the client may use
func (c *Client) GetGrantTypes() []oauth2.GrantType {
	return c.GrantTypes
}

// GetScopes scopes the client may request
func (c *Client) GetScopes() []string {
	return c.Scopes
}

// GetTokenAuthMethod token endpoint auth method
func (c *Client) GetTokenAuthMethod() oauth2.TokenAuthMethod {
	if c.TokenAuthMethod == "" {
		if c.Public {
			return oauth2.AuthMethodNone
		}
		return oauth2.AuthMethodSecretBasic
	}
	return c.TokenAuthMethod
}

// IsPublic public
func (c *Client) IsPublic() bool {
	return c.Public
}

// IsTrusted first-party
func (c *Client) IsTrusted() bool {
	return c.Trusted
}

// IsRevoked soft-revoked; blocks future grants only
func (c *Client) IsRevoked() bool {
	return c.Revoked
}

// GetPublicKeyPEM assertion verification key
func (c *Client) GetPublicKeyPEM() []byte {
	return c.PublicKeyPEM
}

// GetCertThumbprint registered certificate thumbprint
func (c *Client) GetCertThumbprint() string {
	return c.CertThumbprint
}

// AllowsGrantType reports whether the client may use the grant type.
func (c *Client) AllowsGrantType(gt oauth2.GrantType) bool {
	for _, v := range c.GrantTypes {
		if v == gt {
			return true
		}
	}
	return false
}
