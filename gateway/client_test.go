package gateway_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/taskflow-client/gateway"
	"github.com/jrsteele09/taskflow-client/internal/config"
	"github.com/jrsteele09/taskflow-client/internal/errors"
	"github.com/jrsteele09/taskflow-client/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type memTokens struct {
	mu     sync.Mutex
	access string
}

func (m *memTokens) AccessToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.access != ""
}

func (m *memTokens) set(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = v
}

// fakeSession refreshes through a real Coordinator so concurrent 401s share
// one exchange.
type fakeSession struct {
	tokens    *memTokens
	next      string
	fail      error
	exchanges atomic.Int32
	expired   atomic.Int32
	coord     *refresh.Coordinator
	gate      chan struct{}
}

func newFakeSession(t *testing.T, tokens *memTokens, next string, fail error) *fakeSession {
	s := &fakeSession{tokens: tokens, next: next, fail: fail}
	coord, err := refresh.NewCoordinator(func(ctx context.Context) error {
		s.exchanges.Add(1)
		if s.gate != nil {
			<-s.gate
		}
		if s.fail != nil {
			return s.fail
		}
		s.tokens.set(s.next)
		return nil
	})
	require.NoError(t, err)
	s.coord = coord
	return s
}

func (s *fakeSession) CoordinateRefresh(ctx context.Context) error {
	return s.coord.Refresh(ctx)
}

func (s *fakeSession) ExpireSession(context.Context) {
	s.expired.Add(1)
	s.tokens.set("")
}

func newClient(t *testing.T, srv *httptest.Server, tokens *memTokens, opts ...gateway.Option) *gateway.Client {
	t.Helper()
	c, err := gateway.New(config.API{BaseURL: srv.URL + "/"}, tokens, opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestRequestShape(t *testing.T) {
	type seen struct {
		path, query, auth, contentType, requestID, body string
	}
	var (
		mu  sync.Mutex
		got []seen
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		got = append(got, seen{
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			requestID:   r.Header.Get(gateway.HeaderRequestID),
			body:        string(b),
		})
		writeJSON(w, http.StatusOK, `{"ok":true}`)
	}))
	defer srv.Close()

	tokens := &memTokens{}
	c := newClient(t, srv, tokens)
	ctx := context.Background()

	_, err := c.Do(ctx, gateway.Get("projects/").WithQuery(url.Values{"page": {"2"}}), nil)
	require.NoError(t, err)

	tokens.set("abc")
	var out struct {
		OK bool `json:"ok"`
	}
	_, err = c.Do(ctx, gateway.Post("/tasks/", map[string]string{"title": "t"}), &out)
	require.NoError(t, err)
	require.True(t, out.OK)

	_, err = c.Do(ctx, gateway.Post("/auth/login", url.Values{"username": {"a"}}), nil)
	require.NoError(t, err)

	_, err = c.Do(ctx, gateway.Post("/raw", "plain").WithHeader("Content-Type", "text/plain"), nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 4)
	require.Equal(t, "/api/v1/projects/", got[0].path)
	require.Equal(t, "page=2", got[0].query)
	require.Empty(t, got[0].auth)
	require.Empty(t, got[0].contentType)
	require.NotEmpty(t, got[0].requestID)

	require.Equal(t, "/api/v1/tasks/", got[1].path)
	require.Equal(t, "Bearer abc", got[1].auth)
	require.Equal(t, "application/json", got[1].contentType)
	require.JSONEq(t, `{"title":"t"}`, got[1].body)

	require.Equal(t, "application/x-www-form-urlencoded", got[2].contentType)
	require.Equal(t, "username=a", got[2].body)

	require.Equal(t, "text/plain", got[3].contentType)
	require.Equal(t, "plain", got[3].body)
	require.NotEqual(t, got[0].requestID, got[1].requestID)
}

func TestURL(t *testing.T) {
	c, err := gateway.New(config.API{BaseURL: "http://localhost:8000/"}, &memTokens{})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000/api/v1/auth/me", c.URL("auth/me"))
	require.Equal(t, "http://localhost:8000/api/v1/auth/me", c.URL("/auth/me"))
}

func TestUnauthorizedRefreshesAndReplaysOnce(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
			return
		}
		writeJSON(w, http.StatusCreated, `{"id":"p-1"}`)
	}))
	defer srv.Close()

	tokens := &memTokens{access: "stale"}
	session := newFakeSession(t, tokens, "fresh", nil)
	c := newClient(t, srv, tokens, gateway.WithSessionHandler(session))

	payload, err := c.Do(context.Background(), gateway.Post("/projects/", map[string]string{"name": "x"}), nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"p-1"}`, string(payload))
	require.Equal(t, int32(1), session.exchanges.Load())
	require.Zero(t, session.expired.Load())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	require.Equal(t, bodies[0], bodies[1])
}

func TestRefreshFailureExpiresSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"expired"}`)
	}))
	defer srv.Close()

	tokens := &memTokens{access: "stale"}
	session := newFakeSession(t, tokens, "", errors.ErrRefreshRejected)
	c := newClient(t, srv, tokens, gateway.WithSessionHandler(session))

	_, err := c.Do(context.Background(), gateway.Get("/tasks/"), nil)
	require.ErrorIs(t, err, gateway.ErrSessionExpired)

	var apiErr *gateway.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, gateway.SessionExpiredMessage, apiErr.Message)
	require.True(t, apiErr.SessionExpired())
	require.Equal(t, int32(1), session.expired.Load())
	_, ok := tokens.AccessToken()
	require.False(t, ok)
}

func TestUnauthorizedOnReplayIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, `{"detail":"still no"}`)
	}))
	defer srv.Close()

	tokens := &memTokens{access: "stale"}
	session := newFakeSession(t, tokens, "fresh", nil)
	c := newClient(t, srv, tokens, gateway.WithSessionHandler(session))

	_, err := c.Do(context.Background(), gateway.Get("/users/"), nil)
	require.Error(t, err)
	require.False(t, errors.Is(err, gateway.ErrSessionExpired))
	require.Equal(t, http.StatusUnauthorized, gateway.StatusOf(err))
	require.Equal(t, "still no", err.Error())
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, int32(1), session.exchanges.Load())
	require.Zero(t, session.expired.Load())
}

func TestSkipRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"Invalid refresh token"}`)
	}))
	defer srv.Close()

	tokens := &memTokens{}
	session := newFakeSession(t, tokens, "fresh", nil)
	c := newClient(t, srv, tokens, gateway.WithSessionHandler(session))

	_, err := c.Do(context.Background(), gateway.Post("/auth/refresh", map[string]string{}).NoRefresh(), nil)
	require.Equal(t, http.StatusUnauthorized, gateway.StatusOf(err))
	require.Zero(t, session.exchanges.Load())
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, `[]`)
	}))
	defer srv.Close()

	tokens := &memTokens{access: "stale"}
	session := newFakeSession(t, tokens, "fresh", nil)
	session.gate = make(chan struct{})
	c := newClient(t, srv, tokens, gateway.WithSessionHandler(session))

	const callers = 3
	errs := make(chan error, callers)
	for range callers {
		go func() {
			_, err := c.Do(context.Background(), gateway.Get("/projects/"), nil)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return session.coord.Waiting() == callers }, 2*time.Second, time.Millisecond)
	close(session.gate)
	for range callers {
		require.NoError(t, <-errs)
	}
	require.Equal(t, int32(1), session.exchanges.Load())
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "string detail", status: 400, body: `{"detail":"Email already registered"}`, message: "Email already registered"},
		{name: "validation list", status: 422, body: `{"detail":[{"loc":["body","email"],"msg":"field required"},{"msg":"bad"}]}`, message: "body.email: field required, Error: bad"},
		{name: "message field", status: 500, body: `{"message":"boom"}`, message: "boom"},
		{name: "unknown object", status: 409, body: `{"code":7}`, message: `{"code":7}`},
		{name: "empty body", status: 404, body: ``, message: "Not Found"},
		{name: "unknown status", status: 599, body: ``, message: "Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))
			defer srv.Close()

			_, err := newClient(t, srv, &memTokens{}).Do(context.Background(), gateway.Get("/x"), nil)
			var apiErr *gateway.APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tt.status, apiErr.Status)
			require.Equal(t, tt.message, apiErr.Message)
			if tt.body != "" {
				require.JSONEq(t, tt.body, string(apiErr.Data))
			}
		})
	}
}

func TestNotFoundMatchesSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"detail":"Project not found"}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv, &memTokens{}).Do(context.Background(), gateway.Get("/projects/1"), nil)
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLenientParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/empty":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "<html>oops</html>")
		}
	}))
	defer srv.Close()

	c := newClient(t, srv, &memTokens{})
	payload, err := c.Do(context.Background(), gateway.Delete("/empty"), nil)
	require.NoError(t, err)
	require.Nil(t, payload)

	_, err = c.Do(context.Background(), gateway.Get("/html"), nil)
	var parseErr *gateway.ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, http.StatusOK, parseErr.Status)
}

func TestTransportFailurePropagatesUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	tokens := &memTokens{access: "a"}
	session := newFakeSession(t, tokens, "b", nil)
	_, err := newClient(t, srv, tokens, gateway.WithSessionHandler(session)).Do(context.Background(), gateway.Get("/x"), nil)

	var urlErr *url.Error
	require.True(t, errors.As(err, &urlErr))
	require.Zero(t, session.exchanges.Load())
	require.Zero(t, session.expired.Load())
}

func TestDoEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/wrapped":
			writeJSON(w, http.StatusOK, `{"message":"ok","data":[{"id":"1"}],"pagination":{"page":1,"limit":10,"total":1,"pages":1}}`)
		default:
			writeJSON(w, http.StatusOK, `{"id":"2"}`)
		}
	}))
	defer srv.Close()

	c := newClient(t, srv, &memTokens{})
	var list []map[string]string
	env, err := c.DoEnvelope(context.Background(), gateway.Get("/wrapped"), &list)
	require.NoError(t, err)
	require.NotNil(t, env)
	require.Equal(t, 1, env.Pagination.Total)
	require.Equal(t, "1", list[0]["id"])

	var bare map[string]string
	env, err = c.DoEnvelope(context.Background(), gateway.Get("/bare"), &bare)
	require.NoError(t, err)
	require.Nil(t, env)
	require.Equal(t, "2", bare["id"])
}

func TestMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{}`)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	tokens := &memTokens{access: "a"}
	session := newFakeSession(t, tokens, "", errors.ErrRefreshRejected)
	c := newClient(t, srv, tokens, gateway.WithSessionHandler(session), gateway.WithMetrics(reg))

	_, err := c.Do(context.Background(), gateway.Get("/x"), nil)
	require.ErrorIs(t, err, gateway.ErrSessionExpired)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if m.GetCounter() != nil {
				values[f.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	require.Equal(t, 1.0, values["taskflow_client_requests_total"])
	require.Equal(t, 1.0, values["taskflow_client_refresh_attempts_total"])
	require.Equal(t, 1.0, values["taskflow_client_sessions_expired_total"])
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	}))
	defer srv.Close()

	c := newClient(t, srv, &memTokens{}, gateway.WithRateLimit(0.001, 1))
	_, err := c.Do(context.Background(), gateway.Get("/x"), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Do(ctx, gateway.Get("/x"), nil)
	require.Error(t, err)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := gateway.New(nil, &memTokens{})
	require.Error(t, err)
	_, err = gateway.New(config.API{}, nil)
	require.Error(t, err)
}
