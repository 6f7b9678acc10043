package api

import (
	"context"
	"strconv"

	"github.com/jrsteele09/taskflow-client/auth/sessions"
	"github.com/jrsteele09/taskflow-client/gateway"
)

type SessionFilter struct {
	PageOptions
	DateRange
	DeviceName      string
	DeviceOS        string
	IP              string
	Search          string
	IncludeInactive bool
}

// Sessions lists the caller's device sessions with filtering; admins see
// their own sessions too.
type Sessions struct {
	gw *gateway.Client
}

func (s *Sessions) List(ctx context.Context, f SessionFilter) (*Page[sessions.Device], error) {
	q := query{}
	q.page(f.PageOptions)
	q.dates(f.DateRange)
	q.setString("device_name", f.DeviceName)
	q.setString("device_os", f.DeviceOS)
	q.setString("ip", f.IP)
	q.setString("search", f.Search)
	if f.IncludeInactive {
		q.setString("include_inactive", strconv.FormatBool(true))
	}
	return list[sessions.Device](ctx, s.gw, "/sessions/", q)
}
