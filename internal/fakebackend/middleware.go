package fakebackend

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/taskflow-client/users"
)

type contextKey int

const currentUserKey contextKey = iota

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	return append([]func(http.HandlerFunc) http.HandlerFunc{
		s.RecoverMiddleware,
		s.LoggingMiddleware,
		s.CountingMiddleware,
	}, mw...)
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method := r.Method
		if s.env == "DEV" {
			method = colourMethod(method)
		}
		s.logger.Debug().Str("method", method).Str("path", r.URL.Path).Msg("Fake backend request")
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Recovered from panic")
				writeDetail(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next(w, r)
	}
}

// CountingMiddleware records the request under its route template.
func (s *Server) CountingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		path = strings.TrimPrefix(path, APIPrefix)

		s.mu.Lock()
		s.requests[r.Method+" "+path]++
		s.mu.Unlock()
		next(w, r)
	}
}

// Authenticated resolves the bearer token to a user. The checks match the
// backend: a valid signature, an active session and an existing user.
func (s *Server) Authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeDetail(w, http.StatusUnauthorized, "Missing Authorization header")
			return
		}
		parts := strings.Split(header, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeDetail(w, http.StatusUnauthorized, "Invalid Authorization header")
			return
		}

		claims, err := s.signer.Verify(parts[1])
		if err != nil || s.tokens.IsRevoked(claims.ID) {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		userID, uerr := uuid.Parse(claims.UserID)
		sessionID, serr := uuid.Parse(claims.SessionID)
		if uerr != nil || serr != nil {
			writeDetail(w, http.StatusUnauthorized, "Token missing user/session ID")
			return
		}

		s.mu.RLock()
		sess, sessOK := s.sessions[sessionID]
		active := sessOK && sess.IsActive
		user, userOK := s.users[userID]
		s.mu.RUnlock()

		if !active {
			writeDetail(w, http.StatusUnauthorized, "Session is inactive")
			return
		}
		if !userOK {
			writeDetail(w, http.StatusUnauthorized, "User not found")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), currentUserKey, user)))
	}
}

// RequireRoles must run after Authenticated.
func (s *Server) RequireRoles(roles ...users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user := currentUser(r)
			for _, role := range roles {
				if user.Role == role {
					next(w, r)
					return
				}
			}
			writeDetail(w, http.StatusForbidden, "Not enough permissions")
		}
	}
}

func currentUser(r *http.Request) *userRecord {
	u, _ := r.Context().Value(currentUserKey).(*userRecord)
	return u
}
