// Package fakebackend is an in-memory TaskFlow API used by tests and by the
// development server. It mirrors the routes, payload shapes and permission
// rules of the real backend closely enough to exercise the client end to end.
package fakebackend

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/taskflow-client/api"
	"github.com/jrsteele09/taskflow-client/auth/sessions"
	"github.com/jrsteele09/taskflow-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type userRecord struct {
	api.User
	passwordHash []byte
}

type sessionRecord struct {
	sessions.Device
	UserID       uuid.UUID
	RefreshToken string
}

type Server struct {
	router *mux.Router
	signer *hmacSigner
	tokens *revokedTokens
	logger zerolog.Logger
	env    string

	nowFunc    func() time.Time
	bcryptCost int

	mu       sync.RWMutex
	users    map[uuid.UUID]*userRecord
	byEmail  map[string]uuid.UUID
	sessions map[uuid.UUID]*sessionRecord
	projects map[uuid.UUID]*api.Project
	tasks    map[uuid.UUID]*api.Task
	requests map[string]int

	refreshes     atomic.Int32
	refreshDelay  atomic.Int64
	rejectRefresh atomic.Bool
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithEnv enables colourised request logging when env is "DEV".
func WithEnv(env string) Option {
	return func(s *Server) {
		s.env = env
	}
}

func WithAccessTokenTTL(d time.Duration) Option {
	return func(s *Server) {
		s.signer.ttl = d
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

func New(options ...Option) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		signer:     newHMACSigner(uuid.NewString(), 30*time.Minute),
		tokens:     newRevokedTokens(),
		logger:     log.Logger,
		nowFunc:    time.Now,
		bcryptCost: bcrypt.MinCost,
		users:      make(map[uuid.UUID]*userRecord),
		byEmail:    make(map[string]uuid.UUID),
		sessions:   make(map[uuid.UUID]*sessionRecord),
		projects:   make(map[uuid.UUID]*api.Project),
		tasks:      make(map[uuid.UUID]*api.Task),
		requests:   make(map[string]int),
	}
	for _, opt := range options {
		opt(s)
	}
	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves on a loopback port until the returned server is closed.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s)
}

// SeedUser creates an account directly, bypassing registration.
func (s *Server) SeedUser(email, password string, role users.RoleType) uuid.UUID {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		panic(err)
	}
	now := s.nowFunc().UTC()
	username := strings.SplitN(email, "@", 2)[0]
	rec := &userRecord{
		User: api.User{
			ID:        uuid.New(),
			Email:     email,
			Username:  username,
			FullName:  username,
			Role:      role,
			CreatedAt: &now,
		},
		passwordHash: hash,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[rec.ID] = rec
	s.byEmail[strings.ToLower(email)] = rec.ID
	return rec.ID
}

// RefreshCount is the number of refresh requests received.
func (s *Server) RefreshCount() int {
	return int(s.refreshes.Load())
}

// SetRefreshDelay holds every refresh request for d before answering.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.refreshDelay.Store(int64(d))
}

// RejectRefresh makes every refresh request fail with 401.
func (s *Server) RejectRefresh(reject bool) {
	s.rejectRefresh.Store(reject)
}

// ExpireAccessTokens invalidates every access token issued so far, as if
// they had all expired. Sessions and refresh tokens are unaffected.
func (s *Server) ExpireAccessTokens() int {
	return s.tokens.RevokeAll()
}

// Requests counts the requests received for method and route path (relative
// to the API prefix, e.g. "GET /auth/me").
func (s *Server) Requests(method, path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests[method+" "+path]
}

// ActiveSessions counts the active sessions of the user with email.
func (s *Server) ActiveSessions(email string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := s.byEmail[strings.ToLower(email)]
	n := 0
	for _, sess := range s.sessions {
		if sess.UserID == id && sess.IsActive {
			n++
		}
	}
	return n
}

func (s *Server) newSession(r *http.Request, userID uuid.UUID) (*sessionRecord, error) {
	refreshToken, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.nowFunc().UTC()
	ua := r.UserAgent()
	ip := r.RemoteAddr
	name, osName := deviceFromUserAgent(ua)
	sess := &sessionRecord{
		Device: sessions.Device{
			ID:         uuid.New(),
			DeviceName: &name,
			DeviceOS:   &osName,
			UserAgent:  &ua,
			IPAddress:  &ip,
			IsActive:   true,
			CreatedAt:  now,
			LastUsedAt: &now,
		},
		UserID:       userID,
		RefreshToken: refreshToken,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *Server) issueTokens(sess sessionRecord) (map[string]any, error) {
	access, claims, err := s.signer.Issue(sess.UserID, sess.ID, s.nowFunc())
	if err != nil {
		return nil, err
	}
	s.tokens.Issued(claims.ID, claims.ExpiresAt.Time)
	return map[string]any{
		"access_token":  access,
		"refresh_token": sess.RefreshToken,
		"session_id":    sess.ID.String(),
		"token_type":    "bearer",
	}, nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func deviceFromUserAgent(ua string) (name, osName string) {
	name, osName = "Unknown device", "Unknown OS"
	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "windows"):
		osName = "Windows"
	case strings.Contains(lower, "mac os"):
		osName = "macOS"
	case strings.Contains(lower, "linux"):
		osName = "Linux"
	}
	if ua != "" {
		name = strings.SplitN(ua, "/", 2)[0]
	}
	return name, osName
}
