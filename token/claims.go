package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the fields the backend puts in an access token.
type AccessClaims struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

type accessTokenClaims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// InspectAccessToken reads the claims of an access token without verifying
// its signature. The client never holds the signing key, so the result is
// advisory and must not be used for authorization decisions.
func InspectAccessToken(raw string) (*AccessClaims, error) {
	claims := &accessTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("[InspectAccessToken] %w", err)
	}

	ac := &AccessClaims{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
	}
	if ac.UserID == "" {
		ac.UserID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		ac.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		ac.IssuedAt = claims.IssuedAt.Time
	}
	return ac, nil
}
