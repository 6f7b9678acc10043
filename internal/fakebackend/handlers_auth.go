package fakebackend

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/taskflow-client/auth/sessions"
	"github.com/jrsteele09/taskflow-client/oauthmodel"
	"github.com/jrsteele09/taskflow-client/users"
	"golang.org/x/crypto/bcrypt"
)

// handleRegister creates a developer account. Like the backend it does not
// log the new user in: the reply carries no tokens.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req oauthmodel.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var missing []oauthmodel.FieldError
	for name, v := range map[string]string{"email": req.Email, "username": req.Username, "full_name": req.FullName, "password": req.Password} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, missingField("body", name))
		}
	}
	if len(missing) > 0 {
		writeValidation(w, missing...)
		return
	}

	s.mu.RLock()
	_, exists := s.byEmail[strings.ToLower(req.Email)]
	s.mu.RUnlock()
	if exists {
		writeDetail(w, http.StatusConflict, "Email already registered")
		return
	}

	id := s.SeedUser(req.Email, req.Password, users.RoleDeveloper)
	s.mu.Lock()
	s.users[id].Username = req.Username
	s.users[id].FullName = req.FullName
	s.mu.Unlock()

	writeSuccess(w, http.StatusCreated, "Registration successful. Please log in.", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	email, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if email == "" || password == "" {
		writeValidation(w, missingField("body", "username"), missingField("body", "password"))
		return
	}

	s.mu.RLock()
	var user *userRecord
	if id, ok := s.byEmail[strings.ToLower(email)]; ok {
		user = s.users[id]
	}
	s.mu.RUnlock()

	if user == nil || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	sess, err := s.newSession(r, user.ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Login failed")
		return
	}
	tokens, err := s.issueTokens(*sess)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Login failed")
		return
	}
	writeSuccess(w, http.StatusOK, "Login successful", tokens)
}

// handleRefresh validates the session and refresh token, rotates the refresh
// token and issues a new access token.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshes.Add(1)

	var req oauthmodel.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeValidation(w, oauthmodel.FieldError{Loc: []any{"body", "session_id"}, Msg: "Input should be a valid UUID", Type: "uuid_parsing"})
		return
	}

	var snapshot sessionRecord
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	valid := ok && sess.IsActive && sess.RefreshToken == req.RefreshToken && !s.rejectRefresh.Load()
	if valid {
		rotated, err := newRefreshToken()
		if err != nil {
			s.mu.Unlock()
			writeDetail(w, http.StatusInternalServerError, "Refresh failed")
			return
		}
		now := s.nowFunc().UTC()
		sess.RefreshToken = rotated
		sess.LastUsedAt = &now
		snapshot = *sess
	}
	s.mu.Unlock()

	if !valid {
		writeDetail(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	tokens, err := s.issueTokens(snapshot)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Refresh failed")
		return
	}
	writeSuccess(w, http.StatusOK, "Token refreshed", tokens)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req oauthmodel.LogoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeValidation(w, oauthmodel.FieldError{Loc: []any{"body", "session_id"}, Msg: "Input should be a valid UUID", Type: "uuid_parsing"})
		return
	}

	user := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	if sess.UserID != user.ID {
		writeDetail(w, http.StatusForbidden, "Forbidden")
		return
	}
	sess.IsActive = false
	writeSuccess(w, http.StatusOK, "Logged out from this device", nil)
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	s.mu.Lock()
	for _, sess := range s.sessions {
		if sess.UserID == user.ID {
			sess.IsActive = false
		}
	}
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, "Logged out from all devices", nil)
}

func (s *Server) handleAuthSessions(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "Active sessions", s.userSessions(currentUser(r).ID, false))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "User profile", currentUser(r).User)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	devices := s.userSessions(currentUser(r).ID, q.Get("include_inactive") == "true")

	filtered := devices[:0]
	for _, d := range devices {
		if v := q.Get("device_os"); v != "" && (d.DeviceOS == nil || !strings.EqualFold(*d.DeviceOS, v)) {
			continue
		}
		if v := q.Get("device_name"); v != "" && (d.DeviceName == nil || !strings.EqualFold(*d.DeviceName, v)) {
			continue
		}
		filtered = append(filtered, d)
	}

	page, limit := pageParams(r)
	items, p := paginate(filtered, page, limit)
	writePage(w, "Session list", items, p)
}

func (s *Server) userSessions(userID uuid.UUID, includeInactive bool) []sessions.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []sessions.Device{}
	for _, sess := range s.sessions {
		if sess.UserID == userID && (sess.IsActive || includeInactive) {
			out = append(out, sess.Device)
		}
	}
	slices.SortFunc(out, func(a, b sessions.Device) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
