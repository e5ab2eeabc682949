package server

import "github.com/authforge/oauth2"

// Config configuration parameters
type Config struct {
	// TokenType token type
	TokenType string
	// AllowedGrantTypes allow the grant types
	AllowedGrantTypes []oauth2.GrantType
}

// NewConfig create to configuration instance
func NewConfig() *Config {
	return &Config{
		TokenType: "Bearer",
		AllowedGrantTypes: []oauth2.GrantType{
			oauth2.AuthorizationCode,
			oauth2.PasswordCredentials,
			oauth2.ClientCredentials,
			oauth2.Refreshing,
		},
	}
}
