package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/taskflow-client/gateway"
	"github.com/jrsteele09/taskflow-client/users"
)

const routeUsers = "/users/"

type User struct {
	ID        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	Username  string         `json:"username"`
	FullName  string         `json:"full_name"`
	Role      users.RoleType `json:"role"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

type UserCreate struct {
	Email    string         `json:"email"`
	Username string         `json:"username"`
	FullName string         `json:"full_name"`
	Password string         `json:"password"`
	Role     users.RoleType `json:"role"`
}

type UserUpdate struct {
	FullName *string         `json:"full_name,omitempty"`
	Role     *users.RoleType `json:"role,omitempty"`
}

type UserFilter struct {
	PageOptions
	DateRange
	Role   users.RoleType
	Search string
}

// RoleChange is the backend's reply to ChangeRole.
type RoleChange struct {
	ID      uuid.UUID      `json:"id"`
	OldRole users.RoleType `json:"old_role"`
	NewRole users.RoleType `json:"new_role"`
}

// Users lists and reads for admins and managers; writes are admin only.
type Users struct {
	gw *gateway.Client
}

func (u *Users) List(ctx context.Context, f UserFilter) (*Page[User], error) {
	q := query{}
	q.page(f.PageOptions)
	q.dates(f.DateRange)
	q.setString("role", string(f.Role))
	q.setString("search", f.Search)
	return list[User](ctx, u.gw, routeUsers, q)
}

func (u *Users) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return get[User](ctx, u.gw, gateway.Get(routeUsers+id.String()))
}

func (u *Users) Create(ctx context.Context, in UserCreate) (*User, error) {
	if _, err := users.ParseRole(string(in.Role)); err != nil {
		return nil, err
	}
	return get[User](ctx, u.gw, gateway.Post(routeUsers, in))
}

func (u *Users) Update(ctx context.Context, id uuid.UUID, in UserUpdate) (*User, error) {
	return get[User](ctx, u.gw, gateway.Put(routeUsers+id.String(), in))
}

func (u *Users) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := u.gw.Do(ctx, gateway.Delete(routeUsers+id.String()), nil)
	return err
}

func (u *Users) ChangeRole(ctx context.Context, id uuid.UUID, role users.RoleType) (*RoleChange, error) {
	if !role.Valid() {
		return nil, users.ErrUnknownRole
	}
	body := struct {
		Role users.RoleType `json:"role"`
	}{role}
	return get[RoleChange](ctx, u.gw, gateway.Put(routeUsers+id.String()+"/role", body))
}

// Tasks lists the tasks assigned to a user.
func (u *Users) Tasks(ctx context.Context, id uuid.UUID) ([]TaskListItem, error) {
	page, err := list[TaskListItem](ctx, u.gw, routeUsers+id.String()+"/tasks", query{})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}
