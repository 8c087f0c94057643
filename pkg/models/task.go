package models

import "time"

// TaskStatus is the lifecycle state of a checkout task.
type TaskStatus string

const (
	TaskIdle    TaskStatus = "idle"
	TaskRunning TaskStatus = "running"
	TaskSuccess TaskStatus = "success"
	TaskFailed  TaskStatus = "failed"
	TaskStopped TaskStatus = "stopped"
)

// Task is a checkout task as tracked by the remote service.
type Task struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Store      string     `json:"store"`
	ProductURL string     `json:"product_url,omitempty"`
	Status     TaskStatus `json:"status"`
	Message    string     `json:"message,omitempty"`
	Attempts   int        `json:"attempts"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TaskPatch carries the fields of a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Status    *TaskStatus `json:"status,omitempty"`
	Message   *string     `json:"message,omitempty"`
	Attempts  *int        `json:"attempts,omitempty"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

// TaskUpdate is the task_update payload: a patch addressed to one task.
type TaskUpdate struct {
	TaskID string `json:"task_id"`
	TaskPatch
}

// Merge returns a copy of t with every provided field of p applied.
func (t Task) Merge(p TaskPatch) Task {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Message != nil {
		t.Message = *p.Message
	}
	if p.Attempts != nil {
		t.Attempts = *p.Attempts
	}
	if p.UpdatedAt != nil {
		t.UpdatedAt = *p.UpdatedAt
	}
	return t
}

// IsActive reports whether the task is currently executing.
func (t Task) IsActive() bool {
	return t.Status == TaskRunning
}
