package config

import (
	"strings"
	"time"
)

type APIConfig interface {
	GetBaseURL() string
	GetAPIPrefix() string
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
	GetRateLimit() float64
	GetRateBurst() int
}

type API struct {
	BaseURL        string        `yaml:"base_url" env:"TASKFLOW_API_URL" env-default:"http://localhost:8000"`
	Prefix         string        `yaml:"prefix" env:"TASKFLOW_API_PREFIX" env-default:"/api/v1"`
	RequestTimeout time.Duration `yaml:"timeout" env:"TASKFLOW_TIMEOUT" env-default:"15s"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"TASKFLOW_REFRESH_TIMEOUT" env-default:"30s"`
	RateLimit      float64       `yaml:"rate_limit" env:"TASKFLOW_RATE_LIMIT" env-default:"0"`
	RateBurst      int           `yaml:"rate_burst" env:"TASKFLOW_RATE_BURST" env-default:"1"`
}

var _ APIConfig = API{}

// GetBaseURL returns the backend origin without a trailing slash
// (e.g. "http://localhost:8000").
func (a API) GetBaseURL() string {
	if a.BaseURL == "" {
		return "http://localhost:8000"
	}
	return strings.TrimRight(a.BaseURL, "/")
}

// GetAPIPrefix returns the version segment joined onto every request path.
func (a API) GetAPIPrefix() string {
	prefix := a.Prefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	return "/" + strings.Trim(prefix, "/")
}

func (a API) GetRequestTimeout() time.Duration {
	if a.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return a.RequestTimeout
}

func (a API) GetRefreshTimeout() time.Duration {
	if a.RefreshTimeout <= 0 {
		return 30 * time.Second
	}
	return a.RefreshTimeout
}

func (a API) GetRateLimit() float64 {
	return a.RateLimit
}

func (a API) GetRateBurst() int {
	if a.RateBurst < 1 {
		return 1
	}
	return a.RateBurst
}
