package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Option func(*Client)

func WithSessionHandler(h SessionHandler) Option {
	return func(c *Client) {
		c.session = h
	}
}

// WithHTTPClient replaces the default client (request timeout plus cookie
// jar). The caller's client is used as-is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRateLimit throttles outbound requests; rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		if reg != nil {
			c.metrics = newMetrics(reg)
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}
