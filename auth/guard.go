package auth

import (
	"context"
	"fmt"

	"github.com/jrsteele09/taskflow-client/internal/errors"
	"github.com/jrsteele09/taskflow-client/users"
)

// RequireUser returns the cached profile of an authenticated user, restoring
// the access token from durable state first when needed. With roles given,
// the user must hold one of them.
func (s *Service) RequireUser(ctx context.Context, roles ...users.RoleType) (*users.StoredUser, error) {
	if _, ok := s.store.AccessToken(); !ok {
		if err := s.Rehydrate(ctx); err != nil {
			return nil, err
		}
	}

	user, ok := s.store.StoredUser()
	if !ok {
		return nil, errors.ErrMissingProfile
	}
	if len(roles) > 0 && !user.HasRole(roles...) {
		return nil, fmt.Errorf("%w: %s", errors.ErrForbiddenRole, user.Role)
	}
	return user, nil
}

// RequireCapability is RequireUser for the roles allowed capability c.
func (s *Service) RequireCapability(ctx context.Context, c users.Capability) (*users.StoredUser, error) {
	roles := users.RolesFor(c)
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: unknown capability %q", errors.ErrForbiddenRole, c)
	}
	return s.RequireUser(ctx, roles...)
}
