package model

import "time"

// TaskStatus is the workflow state of a task on the server.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

// TaskPriority is the server-side priority level of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

// Task mirrors the task resource exposed by the server API.
type Task struct {
	// ID is the server-assigned unique identifier.
	ID int64 `json:"id" db:"id"`

	// Title is the short task summary.
	Title string `json:"title" db:"title"`

	// Description is the full task body.
	Description string `json:"description" db:"description"`

	// Status is the current workflow state.
	Status TaskStatus `json:"status" db:"status"`

	// Priority is the assigned priority level.
	Priority TaskPriority `json:"priority" db:"priority"`

	// Category is the category this task belongs to, if any.
	Category *Category `json:"category,omitempty" db:"-"`

	// AssignedUser is the user the task is assigned to, if any.
	AssignedUser *UserSummary `json:"assignedUser,omitempty" db:"-"`

	// CreatedBy is the user who created the task.
	CreatedBy *UserSummary `json:"createdBy,omitempty" db:"-"`

	// DueDate is when the task is due, if a deadline was set.
	DueDate *time.Time `json:"dueDate,omitempty" db:"due_date"`

	// CreatedAt and UpdatedAt are server clock timestamps.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Overdue reports whether the task has a due date in the past and is
// not yet done.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusDone
}

// CreateTaskRequest is the payload for creating or updating a task.
type CreateTaskRequest struct {
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Priority       TaskPriority `json:"priority"`
	DueDate        *time.Time   `json:"dueDate,omitempty"`
	CategoryID     int64        `json:"categoryId,omitempty"`
	AssignedUserID int64        `json:"assignedUserId,omitempty"`
}

// TaskFilter narrows a task list request. Nil fields are unfiltered.
type TaskFilter struct {
	Status     *TaskStatus
	Priority   *TaskPriority
	CategoryID *int64
}
