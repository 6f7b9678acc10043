package api

import (
	"context"

	"github.com/jrsteele09/taskflow-client/gateway"
)

type DashboardStats struct {
	TotalUsers      int `json:"total_users"`
	TotalProjects   int `json:"total_projects"`
	TotalTasks      int `json:"total_tasks"`
	TasksTodo       int `json:"tasks_todo"`
	TasksInProgress int `json:"tasks_in_progress"`
	TasksReview     int `json:"tasks_review"`
	TasksDone       int `json:"tasks_done"`
}

// Stats is admin only.
type Stats struct {
	gw *gateway.Client
}

func (s *Stats) Dashboard(ctx context.Context) (*DashboardStats, error) {
	return get[DashboardStats](ctx, s.gw, gateway.Get("/stats/"))
}
