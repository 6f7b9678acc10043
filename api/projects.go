package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/taskflow-client/gateway"
)

const routeProjects = "/projects/"

type Project struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Status      ProjectStatus `json:"status"`
	StartDate   *time.Time    `json:"start_date"`
	EndDate     *time.Time    `json:"end_date"`
	OwnerID     uuid.UUID     `json:"owner_id"`
	CreatedAt   *time.Time    `json:"created_at,omitempty"`
	UpdatedAt   *time.Time    `json:"updated_at,omitempty"`
}

type ProjectListItem struct {
	ID     uuid.UUID     `json:"id"`
	Name   string        `json:"name"`
	Status ProjectStatus `json:"status"`
}

type ProjectCreate struct {
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	StartDate   *time.Time    `json:"start_date,omitempty"`
	EndDate     *time.Time    `json:"end_date,omitempty"`
}

// ProjectUpdate only sends the fields that are set.
type ProjectUpdate struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
	StartDate   *time.Time     `json:"start_date,omitempty"`
	EndDate     *time.Time     `json:"end_date,omitempty"`
}

type ProjectFilter struct {
	PageOptions
	DateRange
	Status ProjectStatus
	Search string
}

type TaskOverview struct {
	Total               int            `json:"total"`
	ByStatus            map[string]int `json:"by_status"`
	CompletedPercentage float64        `json:"completed_percentage"`
	Overdue             int            `json:"overdue"`
	DueNext7Days        int            `json:"due_next_7_days"`
}

type Estimates struct {
	TotalEstimatedHours     int `json:"total_estimated_hours"`
	CompletedEstimatedHours int `json:"completed_estimated_hours"`
}

type ProjectSummary struct {
	ProjectID    uuid.UUID     `json:"project_id"`
	Name         string        `json:"name"`
	Description  *string       `json:"description"`
	Status       ProjectStatus `json:"status"`
	StartDate    *time.Time    `json:"start_date"`
	EndDate      *time.Time    `json:"end_date"`
	TaskOverview TaskOverview  `json:"task_overview"`
	Estimates    Estimates     `json:"estimates"`
}

// Projects requires the manager role for writes.
type Projects struct {
	gw *gateway.Client
}

func (p *Projects) List(ctx context.Context, f ProjectFilter) (*Page[ProjectListItem], error) {
	q := query{}
	q.page(f.PageOptions)
	q.dates(f.DateRange)
	q.setString("status", string(f.Status))
	q.setString("search", f.Search)
	return list[ProjectListItem](ctx, p.gw, routeProjects, q)
}

func (p *Projects) Get(ctx context.Context, id uuid.UUID) (*Project, error) {
	return get[Project](ctx, p.gw, gateway.Get(routeProjects+id.String()))
}

func (p *Projects) Create(ctx context.Context, in ProjectCreate) (*Project, error) {
	if !in.Status.Valid() {
		return nil, fmt.Errorf("[Projects Create] invalid status %q", in.Status)
	}
	return get[Project](ctx, p.gw, gateway.Post(routeProjects, in))
}

func (p *Projects) Update(ctx context.Context, id uuid.UUID, in ProjectUpdate) (*Project, error) {
	return get[Project](ctx, p.gw, gateway.Put(routeProjects+id.String(), in))
}

func (p *Projects) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := p.gw.Do(ctx, gateway.Delete(routeProjects+id.String()), nil)
	return err
}

func (p *Projects) Summary(ctx context.Context, id uuid.UUID) (*ProjectSummary, error) {
	return get[ProjectSummary](ctx, p.gw, gateway.Get(routeProjects+id.String()+"/summary"))
}
