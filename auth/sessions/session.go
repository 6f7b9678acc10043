package sessions

import (
	"time"

	"github.com/google/uuid"
)

// Device is one server-side login session (one per signed-in device). The
// session id stored next to the refresh token names one of these.
type Device struct {
	ID         uuid.UUID  `json:"id"`
	DeviceName *string    `json:"device_name"`
	DeviceOS   *string    `json:"device_os"`
	UserAgent  *string    `json:"user_agent"`
	IPAddress  *string    `json:"ip_address"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

// IsCurrent reports whether d is the session identified by sessionID.
func (d Device) IsCurrent(sessionID string) bool {
	id, err := uuid.Parse(sessionID)
	return err == nil && id == d.ID
}
