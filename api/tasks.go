package api

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/taskflow-client/gateway"
)

const routeTasks = "/tasks/"

type Task struct {
	ID             uuid.UUID    `json:"id"`
	Title          string       `json:"title"`
	Description    *string      `json:"description"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	ProjectID      uuid.UUID    `json:"project_id"`
	AssignedTo     *uuid.UUID   `json:"assigned_to"`
	CreatedBy      uuid.UUID    `json:"created_by"`
	DueDate        *time.Time   `json:"due_date"`
	EstimatedHours *int         `json:"estimated_hours"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      *time.Time   `json:"updated_at"`
}

type TaskListItem struct {
	ID        uuid.UUID    `json:"id"`
	Title     string       `json:"title"`
	Status    TaskStatus   `json:"status"`
	Priority  TaskPriority `json:"priority"`
	ProjectID uuid.UUID    `json:"project_id"`
}

type TaskCreate struct {
	Title          string       `json:"title"`
	Description    *string      `json:"description,omitempty"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	ProjectID      uuid.UUID    `json:"project_id"`
	AssignedTo     *uuid.UUID   `json:"assigned_to,omitempty"`
	DueDate        *time.Time   `json:"due_date,omitempty"`
	EstimatedHours *int         `json:"estimated_hours,omitempty"`
}

// TaskUpdate cannot change the status; use UpdateStatus.
type TaskUpdate struct {
	Title          *string       `json:"title,omitempty"`
	Description    *string       `json:"description,omitempty"`
	Priority       *TaskPriority `json:"priority,omitempty"`
	AssignedTo     *uuid.UUID    `json:"assigned_to,omitempty"`
	DueDate        *time.Time    `json:"due_date,omitempty"`
	EstimatedHours *int          `json:"estimated_hours,omitempty"`
}

type TaskFilter struct {
	PageOptions
	DateRange
	Status     TaskStatus
	Priority   TaskPriority
	ProjectID  *uuid.UUID
	AssignedTo *uuid.UUID
	Search     string
}

type BoardColumn struct {
	Status TaskStatus     `json:"status"`
	Tasks  []TaskListItem `json:"tasks"`
}

// Tasks requires admin or manager for create, update and delete; any role
// may move a task between statuses.
type Tasks struct {
	gw *gateway.Client
}

func (t *Tasks) List(ctx context.Context, f TaskFilter) (*Page[TaskListItem], error) {
	q := query{}
	q.page(f.PageOptions)
	q.dates(f.DateRange)
	q.setString("status", string(f.Status))
	q.setString("priority", string(f.Priority))
	q.setID("project_id", f.ProjectID)
	q.setID("assigned_to", f.AssignedTo)
	q.setString("search", f.Search)
	return list[TaskListItem](ctx, t.gw, routeTasks, q)
}

func (t *Tasks) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	return get[Task](ctx, t.gw, gateway.Get(routeTasks+id.String()))
}

func (t *Tasks) Create(ctx context.Context, in TaskCreate) (*Task, error) {
	if !in.Status.Valid() || !in.Priority.Valid() {
		return nil, fmt.Errorf("[Tasks Create] invalid status %q or priority %q", in.Status, in.Priority)
	}
	return get[Task](ctx, t.gw, gateway.Post(routeTasks, in))
}

func (t *Tasks) Update(ctx context.Context, id uuid.UUID, in TaskUpdate) (*Task, error) {
	return get[Task](ctx, t.gw, gateway.Patch(routeTasks+id.String(), in))
}

func (t *Tasks) UpdateStatus(ctx context.Context, id uuid.UUID, status TaskStatus) (*Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("[Tasks UpdateStatus] invalid status %q", status)
	}
	body := struct {
		Status TaskStatus `json:"status"`
	}{status}
	return get[Task](ctx, t.gw, gateway.Patch(routeTasks+id.String()+"/status", body))
}

func (t *Tasks) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := t.gw.Do(ctx, gateway.Delete(routeTasks+id.String()), nil)
	return err
}

// Board groups a project's tasks into one column per status.
func (t *Tasks) Board(ctx context.Context, projectID uuid.UUID, assignedTo *uuid.UUID) ([]BoardColumn, error) {
	q := query{}
	q.setID("project_id", &projectID)
	q.setID("assigned_to", assignedTo)

	var cols []BoardColumn
	if _, err := t.gw.DoEnvelope(ctx, gateway.Get(routeTasks+"board").WithQuery(url.Values(q)), &cols); err != nil {
		return nil, err
	}
	return cols, nil
}

func (t *Tasks) ListByProject(ctx context.Context, projectID uuid.UUID) ([]TaskListItem, error) {
	page, err := list[TaskListItem](ctx, t.gw, routeTasks+"project/"+projectID.String(), query{})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}
