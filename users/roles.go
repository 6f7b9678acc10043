package users

// Capability names an action the UI offers or hides based on the cached role.
// The backend enforces the same rules; these are hints only.
type Capability string

const (
	CapViewProjects   Capability = "projects:view"
	CapManageProjects Capability = "projects:manage"
	CapManageTasks    Capability = "tasks:manage"
	CapUpdateStatus   Capability = "tasks:status"
	CapViewUsers      Capability = "users:view"
	CapManageUsers    Capability = "users:manage"
	CapViewStats      Capability = "stats:view"
)

var capabilities = map[Capability][]RoleType{
	CapViewProjects:   {RoleAdmin, RoleManager, RoleDeveloper},
	CapManageProjects: {RoleManager},
	CapManageTasks:    {RoleAdmin, RoleManager},
	CapUpdateStatus:   {RoleAdmin, RoleManager, RoleDeveloper},
	CapViewUsers:      {RoleAdmin, RoleManager},
	CapManageUsers:    {RoleAdmin},
	CapViewStats:      {RoleAdmin},
}

// RolesFor returns the roles allowed to exercise c.
func RolesFor(c Capability) []RoleType {
	return append([]RoleType(nil), capabilities[c]...)
}

// Can reports whether the cached role allows c. Unknown capabilities are denied.
func (u *StoredUser) Can(c Capability) bool {
	return u.HasRole(capabilities[c]...)
}
