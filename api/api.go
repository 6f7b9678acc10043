package api

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/taskflow-client/gateway"
	"github.com/jrsteele09/taskflow-client/oauthmodel"
)

// Client groups the resource APIs. Every call goes through the gateway, so
// it carries the bearer token and recovers from an expired access token.
type Client struct {
	Projects *Projects
	Tasks    *Tasks
	Users    *Users
	Stats    *Stats
	Sessions *Sessions
}

func New(gw *gateway.Client) *Client {
	return &Client{
		Projects: &Projects{gw: gw},
		Tasks:    &Tasks{gw: gw},
		Users:    &Users{gw: gw},
		Stats:    &Stats{gw: gw},
		Sessions: &Sessions{gw: gw},
	}
}

// Page is one page of a list endpoint. Pagination is nil for routes that do
// not paginate.
type Page[T any] struct {
	Items      []T
	Pagination *oauthmodel.Pagination
}

// PageOptions is embedded in every list filter. Zero values are omitted so
// the backend applies its defaults (page 1, limit 20).
type PageOptions struct {
	Page  int
	Limit int
}

// DateRange filters on creation date.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

type query url.Values

func (q query) setString(key, v string) {
	if v != "" {
		url.Values(q).Set(key, v)
	}
}

func (q query) setInt(key string, v int) {
	if v > 0 {
		url.Values(q).Set(key, strconv.Itoa(v))
	}
}

func (q query) setID(key string, v *uuid.UUID) {
	if v != nil {
		url.Values(q).Set(key, v.String())
	}
}

func (q query) setTime(key string, v *time.Time) {
	if v != nil {
		url.Values(q).Set(key, v.UTC().Format(time.RFC3339))
	}
}

func (q query) page(p PageOptions) {
	q.setInt("page", p.Page)
	q.setInt("limit", p.Limit)
}

func (q query) dates(r DateRange) {
	q.setTime("date_from", r.From)
	q.setTime("date_to", r.To)
}

func list[T any](ctx context.Context, gw *gateway.Client, path string, q query) (*Page[T], error) {
	var items []T
	env, err := gw.DoEnvelope(ctx, gateway.Get(path).WithQuery(url.Values(q)), &items)
	if err != nil {
		return nil, err
	}
	page := &Page[T]{Items: items}
	if env != nil {
		page.Pagination = env.Pagination
	}
	return page, nil
}

func get[T any](ctx context.Context, gw *gateway.Client, req gateway.Request) (*T, error) {
	var out T
	if _, err := gw.DoEnvelope(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
