package fakebackend

// Route path constants, relative to APIPrefix.
const (
	APIPrefix = "/api/v1"

	// Auth routes
	RouteAuthRegister  = "/auth/register"
	RouteAuthLogin     = "/auth/login"
	RouteAuthRefresh   = "/auth/refresh"
	RouteAuthLogout    = "/auth/logout"
	RouteAuthLogoutAll = "/auth/logout_all"
	RouteAuthSessions  = "/auth/sessions"
	RouteAuthMe        = "/auth/me"

	// Project routes
	RouteProjects       = "/projects/"
	RouteProject        = "/projects/{id}"
	RouteProjectSummary = "/projects/{id}/summary"

	// Task routes
	RouteTasks          = "/tasks/"
	RouteTaskBoard      = "/tasks/board"
	RouteTasksByProject = "/tasks/project/{id}"
	RouteTask           = "/tasks/{id}"
	RouteTaskStatus     = "/tasks/{id}/status"

	// User routes
	RouteUsers     = "/users/"
	RouteUser      = "/users/{id}"
	RouteUserRole  = "/users/{id}/role"
	RouteUserTasks = "/users/{id}/tasks"

	// Stats and session routes
	RouteStats    = "/stats/"
	RouteSessions = "/sessions/"
)
