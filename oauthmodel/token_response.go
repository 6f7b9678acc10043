package oauthmodel

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// AuthTokens is the token set returned by the login, register and refresh
// exchanges (inside the envelope's "data" field).
type AuthTokens struct {
	// AccessToken is the bearer credential sent on every API call.
	// Lifespan: short-lived; held in memory only, never persisted.
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged, together with SessionID, for a new token set.
	// Lifespan: long-lived; persisted so a new process can rehydrate.
	RefreshToken string `json:"refresh_token"`

	// SessionID correlates the server-side device session. The backend requires
	// it alongside the refresh token and for logout.
	SessionID string `json:"session_id"`

	// TokenType is "bearer".
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds. A hint only.
	ExpiresIn int `json:"expires_in,omitempty"`
}

// Validate checks the set can be stored without leaving partial durable state.
func (t AuthTokens) Validate() error {
	if strings.TrimSpace(t.AccessToken) == "" {
		return ErrMissingAccessToken
	}
	if (t.RefreshToken == "") != (t.SessionID == "") {
		return ErrPartialTokenSet
	}
	return nil
}

// HasRefreshState reports whether the set carries durable refresh material.
func (t AuthTokens) HasRefreshState() bool {
	return t.RefreshToken != "" && t.SessionID != ""
}

// Type returns the token type, defaulting to Bearer.
func (t AuthTokens) Type() string {
	if t.TokenType == "" {
		return "Bearer"
	}
	return t.TokenType
}

// OAuth2Token converts the set for use with golang.org/x/oauth2 transports.
// issuedAt anchors ExpiresIn; a zero ExpiresIn leaves the expiry unset.
func (t AuthTokens) OAuth2Token(issuedAt time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.Type(),
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresIn > 0 {
		tok.Expiry = issuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return tok.WithExtra(map[string]any{"session_id": t.SessionID})
}
