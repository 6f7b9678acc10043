package token

import (
	"github.com/jrsteele09/taskflow-client/internal/errors"
	"github.com/jrsteele09/taskflow-client/oauthmodel"
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*Store)(nil)

// Token implements oauth2.TokenSource over the current credentials. It never
// refreshes; a zero Expiry means the lifetime is unknown. The JWT exp claim,
// when readable, takes precedence over the expires_in hint.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	tokens := oauthmodel.AuthTokens{
		AccessToken: s.accessToken,
		TokenType:   s.tokenType,
		ExpiresIn:   s.expiresIn,
	}
	issuedAt := s.issuedAt
	s.mu.RUnlock()

	if tokens.AccessToken == "" {
		return nil, errors.ErrNoAccessToken
	}
	tokens.RefreshToken, _ = s.RefreshToken()
	tokens.SessionID, _ = s.SessionID()

	tok := tokens.OAuth2Token(issuedAt)
	if claims, err := InspectAccessToken(tokens.AccessToken); err == nil && !claims.ExpiresAt.IsZero() {
		tok.Expiry = claims.ExpiresAt
	}
	return tok, nil
}
