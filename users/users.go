package users

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jrsteele09/taskflow-client/internal/utils"
)

var ErrUnknownRole = errors.New("unknown role")

// RoleType is one of the closed set of roles the backend assigns.
type RoleType string

const (
	RoleAdmin     RoleType = "admin"     // Full access, including user administration
	RoleManager   RoleType = "manager"   // Manages projects and tasks
	RoleDeveloper RoleType = "developer" // Works assigned tasks; default for public signup
)

var roles = []RoleType{RoleAdmin, RoleManager, RoleDeveloper}

// Roles returns every known role.
func Roles() []RoleType {
	return append([]RoleType(nil), roles...)
}

func (r RoleType) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r RoleType) String() string {
	return string(r)
}

// ParseRole maps a role name (case-insensitive) onto the closed set.
func ParseRole(s string) (RoleType, error) {
	r := RoleType(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// UnmarshalText rejects roles outside the closed set, so a cached profile
// carrying an unknown role decodes as an error.
func (r *RoleType) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r RoleType) MarshalText() ([]byte, error) {
	return []byte(r), nil
}

// StoredUser is the profile cached next to the credentials. It only saves a
// round-trip to /auth/me; the server remains authoritative for authorization.
type StoredUser struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Username *string  `json:"username"`
	FullName *string  `json:"full_name"`
	Role     RoleType `json:"role"`
}

// Validate reports whether the profile has the fields a cached copy must carry.
func (u *StoredUser) Validate() error {
	if u == nil {
		return errors.New("nil user")
	}
	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id is required")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, u.Role)
	}
	return nil
}

// HasRole returns true if the user holds any of the given roles.
func (u *StoredUser) HasRole(roles ...RoleType) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// DisplayName prefers the full name, then the username, then the email.
func (u *StoredUser) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(utils.Value(u.FullName)); name != "" {
		return name
	}
	return utils.ValueOr(utils.NonEmpty(utils.Value(u.Username)), u.Email)
}
