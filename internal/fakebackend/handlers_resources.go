package fakebackend

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/taskflow-client/api"
	"github.com/jrsteele09/taskflow-client/users"
)

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func queryID(r *http.Request, key string) *uuid.UUID {
	id, err := uuid.Parse(r.URL.Query().Get(key))
	if err != nil {
		return nil
	}
	return &id
}

// createdWithin applies the date_from and date_to filters shared by the list
// routes.
func createdWithin(r *http.Request, created time.Time) bool {
	q := r.URL.Query()
	if from, err := time.Parse(time.RFC3339, q.Get("date_from")); err == nil && created.Before(from) {
		return false
	}
	if to, err := time.Parse(time.RFC3339, q.Get("date_to")); err == nil && created.After(to) {
		return false
	}
	return true
}

func byCreated[T any](items []T, created func(T) time.Time) {
	slices.SortStableFunc(items, func(a, b T) int {
		return created(a).Compare(created(b))
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, search := q.Get("status"), strings.ToLower(q.Get("search"))

	s.mu.RLock()
	var found []*api.Project
	for _, p := range s.projects {
		if status != "" && string(p.Status) != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if !createdWithin(r, *p.CreatedAt) {
			continue
		}
		found = append(found, p)
	}
	s.mu.RUnlock()
	byCreated(found, func(p *api.Project) time.Time { return *p.CreatedAt })

	items := make([]api.ProjectListItem, 0, len(found))
	for _, p := range found {
		items = append(items, api.ProjectListItem{ID: p.ID, Name: p.Name, Status: p.Status})
	}
	page, limit := pageParams(r)
	paged, pagination := paginate(items, page, limit)
	writePage(w, "Project list", paged, pagination)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in api.ProjectCreate
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Name == "" {
		writeValidation(w, missingField("body", "name"))
		return
	}
	if in.Status == "" {
		in.Status = api.ProjectPlanning
	}
	now := s.nowFunc().UTC()
	p := &api.Project{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		OwnerID:     currentUser(r).ID,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}
	s.mu.Lock()
	s.projects[p.ID] = p
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, "Project created successfully", p)
}

func (s *Server) project(w http.ResponseWriter, r *http.Request) (*api.Project, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	s.mu.RLock()
	p, ok := s.projects[id]
	s.mu.RUnlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return nil, false
	}
	return p, true
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.project(w, r); ok {
		writeSuccess(w, http.StatusOK, "Project details", p)
	}
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.project(w, r)
	if !ok {
		return
	}
	var in api.ProjectUpdate
	if !decodeBody(w, r, &in) {
		return
	}

	s.mu.Lock()
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = in.Description
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.StartDate != nil {
		p.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		p.EndDate = in.EndDate
	}
	now := s.nowFunc().UTC()
	p.UpdatedAt = &now
	out := *p
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, "Project updated successfully", out)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.project(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.projects, p.ID)
	for id, t := range s.tasks {
		if t.ProjectID == p.ID {
			delete(s.tasks, id)
		}
	}
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, "Project deleted successfully", nil)
}

func (s *Server) handleProjectSummary(w http.ResponseWriter, r *http.Request) {
	p, ok := s.project(w, r)
	if !ok {
		return
	}
	now := s.nowFunc()
	summary := api.ProjectSummary{
		ProjectID:    p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Status:       p.Status,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		TaskOverview: api.TaskOverview{ByStatus: map[string]int{}},
	}
	for _, st := range api.TaskStatuses {
		summary.TaskOverview.ByStatus[string(st)] = 0
	}

	s.mu.RLock()
	for _, t := range s.tasks {
		if t.ProjectID != p.ID {
			continue
		}
		ov := &summary.TaskOverview
		ov.Total++
		ov.ByStatus[string(t.Status)]++
		hours := 0
		if t.EstimatedHours != nil {
			hours = *t.EstimatedHours
		}
		summary.Estimates.TotalEstimatedHours += hours
		if t.Status == api.TaskDone {
			summary.Estimates.CompletedEstimatedHours += hours
			continue
		}
		if t.DueDate != nil {
			switch {
			case t.DueDate.Before(now):
				ov.Overdue++
			case t.DueDate.Before(now.Add(7 * 24 * time.Hour)):
				ov.DueNext7Days++
			}
		}
	}
	s.mu.RUnlock()

	if total := summary.TaskOverview.Total; total > 0 {
		summary.TaskOverview.CompletedPercentage = float64(summary.TaskOverview.ByStatus[string(api.TaskDone)]) * 100 / float64(total)
	}
	writeSuccess(w, http.StatusOK, "Project summary", summary)
}

func taskItem(t *api.Task) api.TaskListItem {
	return api.TaskListItem{ID: t.ID, Title: t.Title, Status: t.Status, Priority: t.Priority, ProjectID: t.ProjectID}
}

func (s *Server) filterTasks(match func(*api.Task) bool) []api.TaskListItem {
	s.mu.RLock()
	var found []*api.Task
	for _, t := range s.tasks {
		if match(t) {
			found = append(found, t)
		}
	}
	s.mu.RUnlock()
	byCreated(found, func(t *api.Task) time.Time { return t.CreatedAt })

	items := make([]api.TaskListItem, 0, len(found))
	for _, t := range found {
		items = append(items, taskItem(t))
	}
	return items
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID, assignedTo := queryID(r, "project_id"), queryID(r, "assigned_to")
	search := strings.ToLower(q.Get("search"))

	items := s.filterTasks(func(t *api.Task) bool {
		switch {
		case q.Get("status") != "" && string(t.Status) != q.Get("status"):
			return false
		case q.Get("priority") != "" && string(t.Priority) != q.Get("priority"):
			return false
		case projectID != nil && t.ProjectID != *projectID:
			return false
		case assignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *assignedTo):
			return false
		case search != "" && !strings.Contains(strings.ToLower(t.Title), search):
			return false
		case !createdWithin(r, t.CreatedAt):
			return false
		}
		return true
	})
	page, limit := pageParams(r)
	paged, pagination := paginate(items, page, limit)
	writePage(w, "Task list", paged, pagination)
}

func (s *Server) handleTasksByProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, "Task list", s.filterTasks(func(t *api.Task) bool { return t.ProjectID == id }))
}

func (s *Server) handleTaskBoard(w http.ResponseWriter, r *http.Request) {
	projectID := queryID(r, "project_id")
	if projectID == nil {
		writeValidation(w, missingField("query", "project_id"))
		return
	}
	assignedTo := queryID(r, "assigned_to")

	items := s.filterTasks(func(t *api.Task) bool {
		if t.ProjectID != *projectID {
			return false
		}
		return assignedTo == nil || (t.AssignedTo != nil && *t.AssignedTo == *assignedTo)
	})

	board := make([]api.BoardColumn, 0, len(api.TaskStatuses))
	for _, st := range api.TaskStatuses {
		col := api.BoardColumn{Status: st, Tasks: []api.TaskListItem{}}
		for _, it := range items {
			if it.Status == st {
				col.Tasks = append(col.Tasks, it)
			}
		}
		board = append(board, col)
	}
	writeSuccess(w, http.StatusOK, "Task board", board)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in api.TaskCreate
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Title == "" {
		writeValidation(w, missingField("body", "title"))
		return
	}
	if in.Status == "" {
		in.Status = api.TaskTodo
	}
	if in.Priority == "" {
		in.Priority = api.PriorityMedium
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[in.ProjectID]; !ok {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	now := s.nowFunc().UTC()
	t := &api.Task{
		ID:             uuid.New(),
		Title:          in.Title,
		Description:    in.Description,
		Status:         in.Status,
		Priority:       in.Priority,
		ProjectID:      in.ProjectID,
		AssignedTo:     in.AssignedTo,
		CreatedBy:      currentUser(r).ID,
		DueDate:        in.DueDate,
		EstimatedHours: in.EstimatedHours,
		CreatedAt:      now,
		UpdatedAt:      &now,
	}
	s.tasks[t.ID] = t
	writeSuccess(w, http.StatusOK, "Task created successfully", t)
}

func (s *Server) task(w http.ResponseWriter, r *http.Request) (*api.Task, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	s.mu.RLock()
	t, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return nil, false
	}
	return t, true
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if t, ok := s.task(w, r); ok {
		writeSuccess(w, http.StatusOK, "Task details", t)
	}
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.task(w, r)
	if !ok {
		return
	}
	var in api.TaskUpdate
	if !decodeBody(w, r, &in) {
		return
	}

	s.mu.Lock()
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = in.Description
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.AssignedTo != nil {
		t.AssignedTo = in.AssignedTo
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.EstimatedHours != nil {
		t.EstimatedHours = in.EstimatedHours
	}
	now := s.nowFunc().UTC()
	t.UpdatedAt = &now
	out := *t
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, "Task updated successfully", out)
}

func (s *Server) handleUpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := s.task(w, r)
	if !ok {
		return
	}
	var in struct {
		Status api.TaskStatus `json:"status"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if !in.Status.Valid() {
		writeValidation(w, missingField("body", "status"))
		return
	}

	user := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.Role == users.RoleDeveloper && (t.AssignedTo == nil || *t.AssignedTo != user.ID) {
		writeDetail(w, http.StatusForbidden, "You can only update your own tasks")
		return
	}
	t.Status = in.Status
	now := s.nowFunc().UTC()
	t.UpdatedAt = &now
	writeSuccess(w, http.StatusOK, "Task status updated", *t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.task(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.tasks, t.ID)
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, "Task deleted successfully", nil)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	role, search := q.Get("role"), strings.ToLower(q.Get("search"))

	s.mu.RLock()
	items := []api.User{}
	for _, u := range s.users {
		if role != "" && string(u.Role) != role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Email+" "+u.Username+" "+u.FullName), search) {
			continue
		}
		if !createdWithin(r, *u.CreatedAt) {
			continue
		}
		items = append(items, u.User)
	}
	s.mu.RUnlock()
	byCreated(items, func(u api.User) time.Time { return *u.CreatedAt })

	page, limit := pageParams(r)
	paged, pagination := paginate(items, page, limit)
	writePage(w, "User list", paged, pagination)
}

func (s *Server) user(w http.ResponseWriter, r *http.Request) (*userRecord, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return nil, false
	}
	return u, true
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if u, ok := s.user(w, r); ok {
		writeSuccess(w, http.StatusOK, "User details", u.User)
	}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in api.UserCreate
	if !decodeBody(w, r, &in) {
		return
	}
	if !in.Role.Valid() {
		writeValidation(w, missingField("body", "role"))
		return
	}
	s.mu.RLock()
	_, exists := s.byEmail[strings.ToLower(in.Email)]
	s.mu.RUnlock()
	if exists {
		writeDetail(w, http.StatusConflict, "Email already registered")
		return
	}

	id := s.SeedUser(in.Email, in.Password, in.Role)
	s.mu.Lock()
	u := s.users[id]
	u.Username, u.FullName = in.Username, in.FullName
	out := u.User
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, "User created", out)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.user(w, r)
	if !ok {
		return
	}
	var in api.UserUpdate
	if !decodeBody(w, r, &in) {
		return
	}
	s.mu.Lock()
	if in.FullName != nil {
		u.FullName = *in.FullName
	}
	if in.Role != nil && in.Role.Valid() {
		u.Role = *in.Role
	}
	now := s.nowFunc().UTC()
	u.UpdatedAt = &now
	out := u.User
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, "User updated", out)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.user(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.users, u.ID)
	delete(s.byEmail, strings.ToLower(u.Email))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "User deleted", "id": u.ID.String()})
}

func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	u, ok := s.user(w, r)
	if !ok {
		return
	}
	var in struct {
		Role users.RoleType `json:"role"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	s.mu.Lock()
	old := u.Role
	u.Role = in.Role
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Role updated",
		"id":       u.ID.String(),
		"old_role": old,
		"new_role": in.Role,
	})
}

func (s *Server) handleUserTasks(w http.ResponseWriter, r *http.Request) {
	u, ok := s.user(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, "User tasks", s.filterTasks(func(t *api.Task) bool {
		return t.AssignedTo != nil && *t.AssignedTo == u.ID
	}))
}

// handleStats replies with a bare object next to the message, as the
// backend does for dictionaries.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := map[string]any{
		"message":        "Dashboard stats",
		"total_users":    len(s.users),
		"total_projects": len(s.projects),
		"total_tasks":    len(s.tasks),
	}
	counts := map[api.TaskStatus]int{}
	for _, t := range s.tasks {
		counts[t.Status]++
	}
	s.mu.RUnlock()
	for _, st := range api.TaskStatuses {
		out["tasks_"+string(st)] = counts[st]
	}
	writeJSON(w, http.StatusOK, out)
}
