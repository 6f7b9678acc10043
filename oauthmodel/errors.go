package oauthmodel

import "errors"

var (
	ErrMissingAccessToken = errors.New("token set has no access token")
	ErrPartialTokenSet    = errors.New("refresh token and session id must be supplied together")
	ErrNoTokens           = errors.New("server did not return tokens")
	ErrEmptyEnvelope      = errors.New("response envelope has no data")
)
