package auth

import (
	"context"

	"github.com/jrsteele09/taskflow-client/gateway"
	"github.com/jrsteele09/taskflow-client/internal/errors"
	"github.com/jrsteele09/taskflow-client/oauthmodel"
)

// RefreshAccessToken exchanges the stored refresh token and session id for a
// new token set and stores it. Without both, it fails before any network
// call. A 401 from the refresh route is returned as-is, never recovered.
func (s *Service) RefreshAccessToken(ctx context.Context) (oauthmodel.AuthTokens, error) {
	refreshToken, ok := s.store.RefreshToken()
	if !ok {
		return oauthmodel.AuthTokens{}, errors.ErrNoRefreshToken
	}
	sessionID, ok := s.store.SessionID()
	if !ok {
		return oauthmodel.AuthTokens{}, errors.ErrNoRefreshToken
	}

	var tokens oauthmodel.AuthTokens
	req := gateway.Post(RouteRefresh, oauthmodel.RefreshRequest{
		RefreshToken: refreshToken,
		SessionID:    sessionID,
	}).NoRefresh()
	env, err := s.client.DoEnvelope(ctx, req, &tokens)
	if err != nil {
		return oauthmodel.AuthTokens{}, errors.Join(errors.ErrRefreshRejected, err)
	}
	if env == nil || !env.HasData() {
		return oauthmodel.AuthTokens{}, errors.Join(errors.ErrRefreshRejected, oauthmodel.ErrNoTokens)
	}
	if err := s.store.StoreTokens(tokens, nil); err != nil {
		return oauthmodel.AuthTokens{}, err
	}
	return tokens, nil
}

// CoordinateRefresh refreshes through the single-flight coordinator, so
// concurrent 401s cause one exchange.
func (s *Service) CoordinateRefresh(ctx context.Context) error {
	return s.refresher.Refresh(ctx)
}

func (s *Service) refreshExchange(ctx context.Context) error {
	_, err := s.RefreshAccessToken(ctx)
	return err
}

// Rehydrate restores an access token from the durable refresh material, as
// done at startup. Any failure is a terminal loss of the session: local
// credentials are erased and nothing is retried.
func (s *Service) Rehydrate(ctx context.Context) error {
	if _, ok := s.store.RefreshToken(); !ok {
		return errors.ErrNotRecoverable
	}
	if _, ok := s.store.SessionID(); !ok {
		return errors.ErrNotRecoverable
	}

	if err := s.CoordinateRefresh(ctx); err != nil {
		// The caller stopped waiting; the exchange itself has not failed.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if clearErr := s.store.Clear(); clearErr != nil {
			s.logger.Err(clearErr).Msg("Failed to clear credentials after rehydration failure")
		}
		return errors.Join(errors.ErrNotRecoverable, err)
	}
	return nil
}
