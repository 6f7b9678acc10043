package fakebackend

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type accessClaims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// hmacSigner issues and verifies the access tokens of the fake backend
// using symmetric HMAC-SHA256.
type hmacSigner struct {
	secret []byte
	ttl    time.Duration
}

func newHMACSigner(secret string, ttl time.Duration) *hmacSigner {
	return &hmacSigner{secret: []byte(secret), ttl: ttl}
}

func (h *hmacSigner) Issue(userID, sessionID uuid.UUID, now time.Time) (string, *accessClaims, error) {
	claims := &accessClaims{
		UserID:    userID.String(),
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token with HMAC: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature. Expiry is not enforced here: like the real
// backend, an access token stays valid until its session is revoked or the
// token itself is expired through ExpireAccessTokens.
func (h *hmacSigner) Verify(raw string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	return claims, nil
}
