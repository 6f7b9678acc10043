package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/taskflow-client/api"
	"github.com/jrsteele09/taskflow-client/auth"
	"github.com/jrsteele09/taskflow-client/gateway"
	"github.com/jrsteele09/taskflow-client/internal/config"
	"github.com/jrsteele09/taskflow-client/internal/errors"
	"github.com/jrsteele09/taskflow-client/internal/fakebackend"
	"github.com/jrsteele09/taskflow-client/internal/utils"
	"github.com/jrsteele09/taskflow-client/token"
	"github.com/jrsteele09/taskflow-client/users"
	"github.com/stretchr/testify/require"
)

const password = "password123"

type accounts struct {
	backend *fakebackend.Server
	admin   *api.Client
	manager *api.Client
	dev     *api.Client
	devID   uuid.UUID
}

func signIn(t *testing.T, baseURL, email string) *api.Client {
	t.Helper()
	svc, err := auth.New(config.API{BaseURL: baseURL}, token.NewStore(nil))
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), email, password)
	require.NoError(t, err)
	return api.New(svc.Client())
}

func setup(t *testing.T) *accounts {
	t.Helper()
	backend := fakebackend.New()
	ts := backend.Start()
	t.Cleanup(ts.Close)

	backend.SeedUser("admin@example.com", password, users.RoleAdmin)
	backend.SeedUser("pm@example.com", password, users.RoleManager)
	devID := backend.SeedUser("dev@example.com", password, users.RoleDeveloper)

	return &accounts{
		backend: backend,
		admin:   signIn(t, ts.URL, "admin@example.com"),
		manager: signIn(t, ts.URL, "pm@example.com"),
		dev:     signIn(t, ts.URL, "dev@example.com"),
		devID:   devID,
	}
}

func TestProjects_Lifecycle(t *testing.T) {
	a := setup(t)
	ctx := context.Background()

	created, err := a.manager.Projects.Create(ctx, api.ProjectCreate{
		Name:        "Apollo",
		Description: utils.Ptr("Moon landing"),
		Status:      api.ProjectActive,
	})
	require.NoError(t, err)
	require.Equal(t, "Apollo", created.Name)
	require.NotEqual(t, uuid.Nil, created.OwnerID)

	got, err := a.dev.Projects.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "Moon landing", utils.Value(got.Description))

	updated, err := a.manager.Projects.Update(ctx, created.ID, api.ProjectUpdate{Status: utils.Ptr(api.ProjectOnHold)})
	require.NoError(t, err)
	require.Equal(t, api.ProjectOnHold, updated.Status)
	require.Equal(t, "Apollo", updated.Name)

	page, err := a.dev.Projects.List(ctx, api.ProjectFilter{Status: api.ProjectOnHold})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Pagination)
	require.Equal(t, 1, page.Pagination.Total)

	require.NoError(t, a.manager.Projects.Delete(ctx, created.ID))
	_, err = a.dev.Projects.Get(ctx, created.ID)
	require.ErrorIs(t, err, errors.ErrNotFound)
	require.Equal(t, "Project not found", err.Error())
}

func TestProjects_CreateRejectsUnknownStatusLocally(t *testing.T) {
	a := setup(t)
	_, err := a.manager.Projects.Create(context.Background(), api.ProjectCreate{Name: "X", Status: "paused"})
	require.Error(t, err)
	require.Zero(t, a.backend.Requests(http.MethodPost, "/projects/"))
}

func TestProjects_DeveloperCannotCreate(t *testing.T) {
	a := setup(t)
	_, err := a.dev.Projects.Create(context.Background(), api.ProjectCreate{Name: "X", Status: api.ProjectPlanning})
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, gateway.StatusOf(err))
	require.Equal(t, "Not enough permissions", err.Error())
}

func TestTasks_BoardAndSummary(t *testing.T) {
	a := setup(t)
	ctx := context.Background()

	project, err := a.manager.Projects.Create(ctx, api.ProjectCreate{Name: "Gemini", Status: api.ProjectActive})
	require.NoError(t, err)

	due := time.Now().Add(48 * time.Hour)
	first, err := a.manager.Tasks.Create(ctx, api.TaskCreate{
		Title:          "Design capsule",
		Status:         api.TaskTodo,
		Priority:       api.PriorityHigh,
		ProjectID:      project.ID,
		AssignedTo:     &a.devID,
		DueDate:        &due,
		EstimatedHours: utils.Ptr(8),
	})
	require.NoError(t, err)
	_, err = a.manager.Tasks.Create(ctx, api.TaskCreate{
		Title:          "Write checklist",
		Status:         api.TaskDone,
		Priority:       api.PriorityLow,
		ProjectID:      project.ID,
		EstimatedHours: utils.Ptr(2),
	})
	require.NoError(t, err)

	moved, err := a.dev.Tasks.UpdateStatus(ctx, first.ID, api.TaskReview)
	require.NoError(t, err)
	require.Equal(t, api.TaskReview, moved.Status)

	board, err := a.dev.Tasks.Board(ctx, project.ID, nil)
	require.NoError(t, err)
	require.Len(t, board, len(api.TaskStatuses))
	for i, col := range board {
		require.Equal(t, api.TaskStatuses[i], col.Status)
	}
	require.Len(t, board[2].Tasks, 1)
	require.Equal(t, "Design capsule", board[2].Tasks[0].Title)
	require.Len(t, board[3].Tasks, 1)

	mine, err := a.dev.Tasks.Board(ctx, project.ID, &a.devID)
	require.NoError(t, err)
	require.Len(t, mine[3].Tasks, 0)

	summary, err := a.dev.Projects.Summary(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, 2, summary.TaskOverview.Total)
	require.Equal(t, 1, summary.TaskOverview.DueNext7Days)
	require.InDelta(t, 50.0, summary.TaskOverview.CompletedPercentage, 0.001)
	require.Equal(t, 10, summary.Estimates.TotalEstimatedHours)
	require.Equal(t, 2, summary.Estimates.CompletedEstimatedHours)

	byProject, err := a.dev.Tasks.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, byProject, 2)

	page, err := a.dev.Tasks.List(ctx, api.TaskFilter{Priority: api.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, first.ID, page.Items[0].ID)
}

func TestTasks_DeveloperCanOnlyMoveOwnTasks(t *testing.T) {
	a := setup(t)
	ctx := context.Background()

	project, err := a.manager.Projects.Create(ctx, api.ProjectCreate{Name: "Mercury", Status: api.ProjectActive})
	require.NoError(t, err)
	task, err := a.manager.Tasks.Create(ctx, api.TaskCreate{
		Title:     "Unassigned",
		Status:    api.TaskTodo,
		Priority:  api.PriorityMedium,
		ProjectID: project.ID,
	})
	require.NoError(t, err)

	_, err = a.dev.Tasks.UpdateStatus(ctx, task.ID, api.TaskInProgress)
	require.Equal(t, http.StatusForbidden, gateway.StatusOf(err))

	_, err = a.dev.Tasks.UpdateStatus(ctx, task.ID, "blocked")
	require.Error(t, err)
	require.Zero(t, gateway.StatusOf(err))
}

func TestUsers_AdminOperations(t *testing.T) {
	a := setup(t)
	ctx := context.Background()

	page, err := a.admin.Users.List(ctx, api.UserFilter{Role: users.RoleDeveloper})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, a.devID, page.Items[0].ID)

	change, err := a.admin.Users.ChangeRole(ctx, a.devID, users.RoleManager)
	require.NoError(t, err)
	require.Equal(t, users.RoleDeveloper, change.OldRole)
	require.Equal(t, users.RoleManager, change.NewRole)

	created, err := a.admin.Users.Create(ctx, api.UserCreate{
		Email:    "qa@example.com",
		Username: "qa_user",
		FullName: "Q A",
		Password: password,
		Role:     users.RoleDeveloper,
	})
	require.NoError(t, err)
	require.Equal(t, "qa_user", created.Username)

	_, err = a.manager.Users.ChangeRole(ctx, created.ID, users.RoleAdmin)
	require.Equal(t, http.StatusForbidden, gateway.StatusOf(err))

	_, err = a.admin.Users.ChangeRole(ctx, created.ID, "superuser")
	require.ErrorIs(t, err, users.ErrUnknownRole)
}

func TestStats_Dashboard(t *testing.T) {
	a := setup(t)
	ctx := context.Background()

	stats, err := a.admin.Stats.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalUsers)
	require.Zero(t, stats.TotalTasks)

	_, err = a.dev.Stats.Dashboard(ctx)
	require.Equal(t, http.StatusForbidden, gateway.StatusOf(err))
}

func TestSessions_List(t *testing.T) {
	a := setup(t)

	page, err := a.dev.Sessions.List(context.Background(), api.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.True(t, page.Items[0].IsActive)
	require.NotNil(t, page.Pagination)
}

func TestEnums_Parse(t *testing.T) {
	s, err := api.ParseTaskStatus("in_progress")
	require.NoError(t, err)
	require.Equal(t, api.TaskInProgress, s)

	_, err = api.ParseTaskPriority("urgent")
	require.Error(t, err)

	_, err = api.ParseProjectStatus("on_hold")
	require.NoError(t, err)
}
