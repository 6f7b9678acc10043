package api

import (
	"fmt"
	"slices"
)

type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
)

var projectStatuses = []ProjectStatus{ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted}

func (s ProjectStatus) Valid() bool {
	return slices.Contains(projectStatuses, s)
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
)

// TaskStatuses is the board column order.
var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskReview, TaskDone}

func (s TaskStatus) Valid() bool {
	return slices.Contains(TaskStatuses, s)
}

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

var taskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p TaskPriority) Valid() bool {
	return slices.Contains(taskPriorities, p)
}

// ParseProjectStatus, ParseTaskStatus and ParseTaskPriority validate user
// input such as CLI flags.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	if v := ProjectStatus(s); v.Valid() {
		return v, nil
	}
	return "", fmt.Errorf("unknown project status %q", s)
}

func ParseTaskStatus(s string) (TaskStatus, error) {
	if v := TaskStatus(s); v.Valid() {
		return v, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

func ParseTaskPriority(s string) (TaskPriority, error) {
	if v := TaskPriority(s); v.Valid() {
		return v, nil
	}
	return "", fmt.Errorf("unknown task priority %q", s)
}
