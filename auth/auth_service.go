package auth

import (
	"context"
	"fmt"

	"github.com/jrsteele09/taskflow-client/auth/sessions"
	"github.com/jrsteele09/taskflow-client/gateway"
	"github.com/jrsteele09/taskflow-client/internal/config"
	"github.com/jrsteele09/taskflow-client/internal/errors"
	"github.com/jrsteele09/taskflow-client/oauthmodel"
	"github.com/jrsteele09/taskflow-client/token"
	"github.com/jrsteele09/taskflow-client/token/refresh"
	"github.com/jrsteele09/taskflow-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Backend routes under the API prefix.
const (
	RouteLogin     = "/auth/login"
	RouteRegister  = "/auth/register"
	RouteRefresh   = "/auth/refresh"
	RouteLogout    = "/auth/logout"
	RouteLogoutAll = "/auth/logout_all"
	RouteSessions  = "/auth/sessions"
	RouteMe        = "/auth/me"
)

// Session is the outcome of a successful login or registration.
type Session struct {
	oauthmodel.AuthTokens
	User *users.StoredUser
}

// Service owns the session lifecycle: the credential exchanges, rehydration
// after a restart and the refresh used by the gateway to recover from a 401.
type Service struct {
	store     *token.Store
	client    *gateway.Client
	refresher *refresh.Coordinator
	validator *Validator
	logger    zerolog.Logger

	gatewayOptions []gateway.Option
	refreshOptions []refresh.Option
}

var _ gateway.SessionHandler = (*Service)(nil)

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithGatewayOptions passes options through to the request gateway.
func WithGatewayOptions(opts ...gateway.Option) ServiceOption {
	return func(s *Service) {
		s.gatewayOptions = append(s.gatewayOptions, opts...)
	}
}

// WithRefreshOptions passes options through to the refresh coordinator.
func WithRefreshOptions(opts ...refresh.Option) ServiceOption {
	return func(s *Service) {
		s.refreshOptions = append(s.refreshOptions, opts...)
	}
}

// New wires a Service, its gateway and its refresh coordinator over store.
func New(cfg config.APIConfig, store *token.Store, options ...ServiceOption) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("[auth.New] API config is required")
	}
	if store == nil {
		return nil, errors.New("[auth.New] token store is required")
	}

	s := &Service{
		store:     store,
		validator: NewValidator(),
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}

	refreshOpts := append([]refresh.Option{
		refresh.WithTimeout(cfg.GetRefreshTimeout()),
		refresh.WithLogger(s.logger),
	}, s.refreshOptions...)
	refresher, err := refresh.NewCoordinator(s.refreshExchange, refreshOpts...)
	if err != nil {
		return nil, fmt.Errorf("[auth.New] %w", err)
	}
	s.refresher = refresher

	gatewayOpts := append([]gateway.Option{gateway.WithLogger(s.logger)}, s.gatewayOptions...)
	gatewayOpts = append(gatewayOpts, gateway.WithSessionHandler(s))
	client, err := gateway.New(cfg, store, gatewayOpts...)
	if err != nil {
		return nil, fmt.Errorf("[auth.New] %w", err)
	}
	s.client = client

	return s, nil
}

// Client is the authenticated gateway for resource calls.
func (s *Service) Client() *gateway.Client {
	return s.client
}

func (s *Service) Store() *token.Store {
	return s.store
}

// Refresher exposes the coordinator for diagnostics.
func (s *Service) Refresher() *refresh.Coordinator {
	return s.refresher
}

// Login exchanges credentials for a token set, then caches the profile.
// If the profile cannot be loaded the tokens stay stored and the error is
// returned.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if err := s.validator.ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	var tokens oauthmodel.AuthTokens
	env, err := s.client.DoEnvelope(ctx, gateway.Post(RouteLogin, oauthmodel.LoginForm(email, password)).NoRefresh(), &tokens)
	if err != nil {
		return nil, err
	}
	if env == nil || !env.HasData() {
		return nil, oauthmodel.ErrNoTokens
	}
	return s.establish(ctx, tokens)
}

// Register creates an account. The backend answers without tokens, in which
// case the new account is logged in with the same credentials.
func (s *Service) Register(ctx context.Context, req oauthmodel.RegisterRequest) (*Session, error) {
	if err := s.validator.ValidateRegistration(req); err != nil {
		return nil, err
	}

	var tokens oauthmodel.AuthTokens
	env, err := s.client.DoEnvelope(ctx, gateway.Post(RouteRegister, req).NoRefresh(), &tokens)
	if err != nil {
		return nil, err
	}
	if env == nil || !env.HasData() {
		s.logger.Debug().Str("email", req.Email).Msg("Registration returned no tokens, logging in")
		return s.Login(ctx, req.Email, req.Password)
	}
	return s.establish(ctx, tokens)
}

func (s *Service) establish(ctx context.Context, tokens oauthmodel.AuthTokens) (*Session, error) {
	if err := tokens.Validate(); err != nil {
		return nil, errors.Join(InvalidLoginResponseErr, err)
	}
	if err := s.store.StoreTokens(tokens, nil); err != nil {
		return nil, err
	}

	user, err := s.FetchProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("[Service establish] load profile: %w", err)
	}
	if err := s.store.StoreTokens(tokens, user); err != nil {
		return nil, err
	}
	return &Session{AuthTokens: tokens, User: user}, nil
}

// FetchProfile loads the current user with the in-memory access token. It
// does not attempt refresh recovery.
func (s *Service) FetchProfile(ctx context.Context) (*users.StoredUser, error) {
	if _, ok := s.store.AccessToken(); !ok {
		return nil, oauthmodel.ErrMissingAccessToken
	}

	var user users.StoredUser
	env, err := s.client.DoEnvelope(ctx, gateway.Get(RouteMe).NoRefresh(), &user)
	if err != nil {
		return nil, err
	}
	if env != nil && !env.HasData() {
		return nil, InvalidProfileResponseErr
	}
	if err := user.Validate(); err != nil {
		return nil, errors.Join(InvalidProfileResponseErr, err)
	}
	return &user, nil
}

// Logout ends the current device session. The remote call is best effort:
// local credentials are erased whatever it returns, and its error is
// returned for information only.
func (s *Service) Logout(ctx context.Context) error {
	var remoteErr error
	if sid, ok := s.store.SessionID(); ok {
		_, remoteErr = s.client.Do(ctx, gateway.Post(RouteLogout, oauthmodel.LogoutRequest{SessionID: sid}).NoRefresh(), nil)
		if remoteErr != nil {
			s.logger.Warn().Err(remoteErr).Msg("Remote logout failed, clearing local credentials")
		}
	}
	return errors.Join(remoteErr, s.store.Clear())
}

// LogoutAll ends every session of the current user, then clears locally.
func (s *Service) LogoutAll(ctx context.Context) error {
	_, remoteErr := s.client.Do(ctx, gateway.Post(RouteLogoutAll, nil), nil)
	if remoteErr != nil {
		s.logger.Warn().Err(remoteErr).Msg("Remote logout of all sessions failed")
	}
	return errors.Join(remoteErr, s.store.Clear())
}

// ExpireSession is called by the gateway when a 401 could not be recovered.
func (s *Service) ExpireSession(ctx context.Context) {
	if err := s.Logout(ctx); err != nil {
		s.logger.Err(err).Msg("Session expired; logout reported an error")
	}
}

// Sessions lists the signed-in devices of the current user.
func (s *Service) Sessions(ctx context.Context) ([]sessions.Device, error) {
	var devices []sessions.Device
	if _, err := s.client.DoEnvelope(ctx, gateway.Get(RouteSessions), &devices); err != nil {
		return nil, err
	}
	return devices, nil
}
