package database

import (
	"errors"
	"fmt"
	"time"
)

// Priority levels recognized on a task.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Event types published on the live channel after each committed
// mutation. Created and updated events carry the full task, deleted
// events carry only the id.
const (
	EventTaskCreated = "taskCreated"
	EventTaskUpdated = "taskUpdated"
	EventTaskDeleted = "taskDeleted"
)

// ErrNotFound is returned when a mutation targets an id that does not
// exist in the store.
var ErrNotFound = errors.New("task not found")

// ValidationError reports a rejected field on a create or update
// request. The store is left untouched when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Task is the shared unit of work. Every connected client sees the
// same set of tasks; OwnerID records who created a task but grants no
// special rights over it.
type Task struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority"`
	AssignedTo  string     `json:"assignedTo"`
	Course      string     `json:"course"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskFields carries the caller-supplied fields of a create request.
// Omitted optional fields get defaults: Medium priority, the first
// configured course, everything else empty.
type TaskFields struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     *string `json:"dueDate"`
	Priority    string  `json:"priority"`
	AssignedTo  string  `json:"assignedTo"`
	Course      string  `json:"course"`
}

// TaskPatch is a partial update. Nil pointers mean "leave the field
// alone"; a pointer to a zero value is a real overwrite (an empty
// AssignedTo clears the assignment, an empty DueDate clears the date).
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	AssignedTo  *string `json:"assignedTo,omitempty"`
	Course      *string `json:"course,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// User is an account that can authenticate against the REST surface.
type User struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	EmailVerified     bool
	VerificationToken string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
