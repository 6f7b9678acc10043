package fakebackend

import (
	"net/http"

	"github.com/jrsteele09/taskflow-client/users"
)

func (s *Server) initRoutes() {
	api := s.router.PathPrefix(APIPrefix).Subrouter()
	public := s.APIMiddleware()
	authed := s.APIMiddleware(s.Authenticated)
	withRoles := func(roles ...users.RoleType) []func(http.HandlerFunc) http.HandlerFunc {
		return s.APIMiddleware(s.Authenticated, s.RequireRoles(roles...))
	}
	admin := withRoles(users.RoleAdmin)
	adminOrManager := withRoles(users.RoleAdmin, users.RoleManager)
	manager := withRoles(users.RoleManager)

	api.HandleFunc(RouteAuthRegister, ChainMiddleware(s.handleRegister, public...)).Methods(http.MethodPost)
	api.HandleFunc(RouteAuthLogin, ChainMiddleware(s.handleLogin, public...)).Methods(http.MethodPost)
	api.HandleFunc(RouteAuthRefresh, ChainMiddleware(s.handleRefresh, public...)).Methods(http.MethodPost)
	api.HandleFunc(RouteAuthLogout, ChainMiddleware(s.handleLogout, authed...)).Methods(http.MethodPost)
	api.HandleFunc(RouteAuthLogoutAll, ChainMiddleware(s.handleLogoutAll, authed...)).Methods(http.MethodPost)
	api.HandleFunc(RouteAuthSessions, ChainMiddleware(s.handleAuthSessions, authed...)).Methods(http.MethodGet)
	api.HandleFunc(RouteAuthMe, ChainMiddleware(s.handleMe, authed...)).Methods(http.MethodGet)

	api.HandleFunc(RouteProjects, ChainMiddleware(s.handleListProjects, authed...)).Methods(http.MethodGet)
	api.HandleFunc(RouteProjects, ChainMiddleware(s.handleCreateProject, manager...)).Methods(http.MethodPost)
	api.HandleFunc(RouteProjectSummary, ChainMiddleware(s.handleProjectSummary, authed...)).Methods(http.MethodGet)
	api.HandleFunc(RouteProject, ChainMiddleware(s.handleGetProject, authed...)).Methods(http.MethodGet)
	api.HandleFunc(RouteProject, ChainMiddleware(s.handleUpdateProject, manager...)).Methods(http.MethodPut)
	api.HandleFunc(RouteProject, ChainMiddleware(s.handleDeleteProject, manager...)).Methods(http.MethodDelete)

	// Fixed task routes are registered before "/tasks/{id}".
	api.HandleFunc(RouteTaskBoard, ChainMiddleware(s.handleTaskBoard, authed...)).Methods(http.MethodGet)
	api.HandleFunc(RouteTasksByProject, ChainMiddleware(s.handleTasksByProject, authed...)).Methods(http.MethodGet)
	api.HandleFunc(RouteTasks, ChainMiddleware(s.handleListTasks, authed...)).Methods(http.MethodGet)
	api.HandleFunc(RouteTasks, ChainMiddleware(s.handleCreateTask, adminOrManager...)).Methods(http.MethodPost)
	api.HandleFunc(RouteTaskStatus, ChainMiddleware(s.handleUpdateTaskStatus, authed...)).Methods(http.MethodPatch)
	api.HandleFunc(RouteTask, ChainMiddleware(s.handleGetTask, authed...)).Methods(http.MethodGet)
	api.HandleFunc(RouteTask, ChainMiddleware(s.handleUpdateTask, adminOrManager...)).Methods(http.MethodPatch)
	api.HandleFunc(RouteTask, ChainMiddleware(s.handleDeleteTask, adminOrManager...)).Methods(http.MethodDelete)

	api.HandleFunc(RouteUsers, ChainMiddleware(s.handleListUsers, adminOrManager...)).Methods(http.MethodGet)
	api.HandleFunc(RouteUsers, ChainMiddleware(s.handleCreateUser, admin...)).Methods(http.MethodPost)
	api.HandleFunc(RouteUserRole, ChainMiddleware(s.handleChangeRole, admin...)).Methods(http.MethodPut)
	api.HandleFunc(RouteUserTasks, ChainMiddleware(s.handleUserTasks, admin...)).Methods(http.MethodGet)
	api.HandleFunc(RouteUser, ChainMiddleware(s.handleGetUser, adminOrManager...)).Methods(http.MethodGet)
	api.HandleFunc(RouteUser, ChainMiddleware(s.handleUpdateUser, admin...)).Methods(http.MethodPut)
	api.HandleFunc(RouteUser, ChainMiddleware(s.handleDeleteUser, admin...)).Methods(http.MethodDelete)

	api.HandleFunc(RouteStats, ChainMiddleware(s.handleStats, admin...)).Methods(http.MethodGet)
	api.HandleFunc(RouteSessions, ChainMiddleware(s.handleListSessions, authed...)).Methods(http.MethodGet)
}
