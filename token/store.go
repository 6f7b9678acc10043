package token

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/taskflow-client/oauthmodel"
	"github.com/jrsteele09/taskflow-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store is the single source of truth for credential material. The access
// token is volatile (process memory); refresh token, session id and the cached
// profile go to the durable Repo.
//
// A Store is owned by whatever owns the session context and shared by pointer
// with the gateway and the auth service.
type Store struct {
	mu          sync.RWMutex
	accessToken string
	tokenType   string
	issuedAt    time.Time
	expiresIn   int

	repo    Repo
	logger  zerolog.Logger
	nowFunc func() time.Time
}

type StoreOption func(*Store)

func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// NewStore creates a Store over repo. A nil repo behaves as NopRepo.
func NewStore(repo Repo, options ...StoreOption) *Store {
	if repo == nil {
		repo = NopRepo{}
	}
	s := &Store{
		repo:    repo,
		logger:  log.Logger,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// StoreTokens persists the refresh token and session id (and the profile, only
// when user is non-nil) in one atomic write, then replaces the in-memory access
// token. Nothing changes if the set is partial or the write fails.
func (s *Store) StoreTokens(tokens oauthmodel.AuthTokens, user *users.StoredUser) error {
	if err := tokens.Validate(); err != nil {
		return fmt.Errorf("[Store StoreTokens] %w", err)
	}

	entries := make(map[string]string, 3)
	if tokens.HasRefreshState() {
		entries[KeyRefreshToken] = tokens.RefreshToken
		entries[KeySessionID] = tokens.SessionID
	}
	if user != nil {
		raw, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("[Store StoreTokens] encode user: %w", err)
		}
		entries[KeyUser] = string(raw)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) > 0 {
		if err := s.repo.Save(entries); err != nil {
			return fmt.Errorf("[Store StoreTokens] save: %w", err)
		}
	}

	s.accessToken = tokens.AccessToken
	s.tokenType = tokens.Type()
	s.expiresIn = tokens.ExpiresIn
	s.issuedAt = s.nowFunc()
	return nil
}

// AccessToken returns the in-memory access token. It never performs I/O.
func (s *Store) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.accessToken != ""
}

func (s *Store) RefreshToken() (string, bool) {
	return s.load(KeyRefreshToken)
}

func (s *Store) SessionID() (string, bool) {
	return s.load(KeySessionID)
}

// StoredUser decodes the cached profile. A corrupt entry is erased and
// reported as absent.
func (s *Store) StoredUser() (*users.StoredUser, bool) {
	raw, ok := s.load(KeyUser)
	if !ok {
		return nil, false
	}
	u, err := decodeUser(raw)
	if err == nil {
		return u, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A StoreTokens may have replaced the entry since it was read.
	current, found, loadErr := s.repo.Load(KeyUser)
	if loadErr != nil || !found || current == "" {
		return nil, false
	}
	if current != raw {
		if u, err := decodeUser(current); err == nil {
			return u, true
		}
	}

	s.logger.Warn().Err(err).Msg("Discarding corrupt cached user profile")
	if delErr := s.repo.Delete(KeyUser); delErr != nil {
		s.logger.Err(delErr).Msg("Failed to erase corrupt cached user profile")
	}
	return nil, false
}

func decodeUser(raw string) (*users.StoredUser, error) {
	var u users.StoredUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return &u, nil
}

// IsAuthenticated requires the access token, the refresh token and the
// session id to all be present.
func (s *Store) IsAuthenticated() bool {
	if _, ok := s.AccessToken(); !ok {
		return false
	}
	if _, ok := s.RefreshToken(); !ok {
		return false
	}
	_, ok := s.SessionID()
	return ok
}

// Clear erases the access token and every durable entry. Safe to call when
// nothing is stored. The in-memory token is cleared even if the durable
// delete fails.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = ""
	s.tokenType = ""
	s.expiresIn = 0
	s.issuedAt = time.Time{}

	if err := s.repo.Delete(AllKeys...); err != nil {
		return fmt.Errorf("[Store Clear] %w", err)
	}
	return nil
}

func (s *Store) load(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, found, err := s.repo.Load(key)
	if err != nil {
		s.logger.Err(err).Str("key", key).Msg("Credential read failed, treating as absent")
		return "", false
	}
	if !found || value == "" {
		return "", false
	}
	return value, true
}
