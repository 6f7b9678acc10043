package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/taskflow-client/internal/config"
	"github.com/jrsteele09/taskflow-client/oauthmodel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const HeaderRequestID = "X-Request-ID"

// AccessTokenSource yields the volatile access token. *token.Store satisfies it.
type AccessTokenSource interface {
	AccessToken() (string, bool)
}

// SessionHandler recovers from, or ends, a session after a 401.
type SessionHandler interface {
	// CoordinateRefresh obtains a new access token, sharing one in-flight
	// exchange between concurrent callers.
	CoordinateRefresh(ctx context.Context) error
	// ExpireSession performs a full logout, erasing all credentials.
	ExpireSession(ctx context.Context)
}

// Client is the single outbound path to the backend API. Every call gets the
// bearer token attached and a 401 is recovered at most once by refreshing.
type Client struct {
	baseURL   string
	prefix    string
	http      *http.Client
	tokens    AccessTokenSource
	session   SessionHandler
	limiter   *rate.Limiter
	metrics   *metrics
	logger    zerolog.Logger
	userAgent string
}

func New(cfg config.APIConfig, tokens AccessTokenSource, options ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("[gateway.New] API config is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("[gateway.New] access token source is required")
	}

	c := &Client{
		baseURL:   cfg.GetBaseURL(),
		prefix:    cfg.GetAPIPrefix(),
		tokens:    tokens,
		logger:    log.Logger,
		userAgent: "taskflow-client",
	}
	if limit := cfg.GetRateLimit(); limit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(limit), cfg.GetRateBurst())
	}

	for _, opt := range options {
		opt(c)
	}

	if c.http == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("[gateway.New] cookie jar: %w", err)
		}
		c.http = &http.Client{Timeout: cfg.GetRequestTimeout(), Jar: jar}
	}
	return c, nil
}

// URL returns the absolute URL for path under the API prefix.
func (c *Client) URL(path string) string {
	return joinURL(c.baseURL, c.prefix, path, nil)
}

// Do sends req and returns the parsed payload (nil for an empty body). When
// out is non-nil the payload is also decoded into it.
//
// A 401 on the first attempt triggers one coordinated refresh followed by a
// single replay; when the refresh fails the session is expired and an
// *APIError matching ErrSessionExpired is returned.
func (c *Client) Do(ctx context.Context, req Request, out any) (json.RawMessage, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("[Client Do] %w", err)
	}
	return c.do(ctx, req, body, contentType, out, 0)
}

// DoEnvelope is Do for endpoints that reply with {message, data, pagination}.
// The inner data is decoded into out; bare (non-enveloped) payloads are
// decoded into out directly and the returned envelope is nil.
func (c *Client) DoEnvelope(ctx context.Context, req Request, out any) (*oauthmodel.Envelope, error) {
	payload, err := c.Do(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	data, env := oauthmodel.UnwrapData(payload)
	if out != nil && len(data) > 0 && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		if err := json.Unmarshal(data, out); err != nil {
			return env, fmt.Errorf("[Client DoEnvelope] decode %s: %w", req.Path, err)
		}
	}
	return env, nil
}

func (c *Client) do(ctx context.Context, req Request, body []byte, contentType string, out any, attempt int) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	method := req.method()
	url := joinURL(c.baseURL, c.prefix, req.Path, req.Query)
	httpReq, err := http.NewRequestWithContext(ctx, method, url, newBodyReader(body))
	if err != nil {
		c.logger.Err(err).Str("method", method).Str("url", url).Msg("Invalid API request")
		return nil, err
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", contentTypeJSON)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(HeaderRequestID, requestID)
	if access, ok := c.tokens.AccessToken(); ok {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.observeRequest(method, 0, time.Since(start))
		c.logger.Err(err).Str("method", method).Str("url", url).Str("request_id", requestID).Msg("API request failed")
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.metrics.observeRequest(method, resp.StatusCode, time.Since(start))
	if err != nil {
		c.logger.Err(err).Str("method", method).Str("url", url).Str("request_id", requestID).Msg("API response read failed")
		return nil, err
	}

	payload, err := parsePayload(resp.StatusCode, raw)
	if err != nil {
		c.logger.Err(err).Str("method", method).Str("url", url).Str("request_id", requestID).Msg("API response is not JSON")
		return nil, err
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("attempt", attempt).
		Str("request_id", requestID).
		Msg("API request")

	if resp.StatusCode == http.StatusUnauthorized && attempt == 0 && !req.SkipRefresh && c.session != nil {
		return c.recover(ctx, req, body, contentType, out)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp, payload)
	}

	if out != nil && payload != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return payload, fmt.Errorf("[Client Do] decode %s: %w", req.Path, err)
		}
	}
	return payload, nil
}

func (c *Client) recover(ctx context.Context, req Request, body []byte, contentType string, out any) (json.RawMessage, error) {
	err := c.session.CoordinateRefresh(ctx)
	c.metrics.observeRefresh(err)
	if err == nil {
		return c.do(ctx, req, body, contentType, out, 1)
	}

	// This caller gave up waiting; the shared exchange may still succeed for
	// others, so the session is left alone.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	c.logger.Warn().Err(err).Str("path", req.Path).Msg("Token refresh failed, ending session")
	c.session.ExpireSession(ctx)
	c.metrics.observeExpired()
	return nil, newSessionExpiredError()
}

func parsePayload(status int, raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		var probe any
		err := json.Unmarshal(trimmed, &probe)
		return nil, &ParseError{Status: status, Body: raw, Err: err}
	}
	return json.RawMessage(trimmed), nil
}

func newAPIError(resp *http.Response, payload json.RawMessage) *APIError {
	fallback := http.StatusText(resp.StatusCode)
	if fallback == "" {
		fallback = "Request failed"
	}
	return &APIError{
		Status:  resp.StatusCode,
		Message: oauthmodel.ParseErrorPayload(payload).Text(fallback),
		Data:    payload,
	}
}
