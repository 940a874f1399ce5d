package database

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Broadcaster publishes a committed mutation to every connected
// client. Publishing must never fail the mutation; implementations
// swallow per-subscriber delivery problems.
type Broadcaster interface {
	BroadcastEvent(eventType string, data any)
}

// DeletedPayload is the event body for a deletion: only the id.
type DeletedPayload struct {
	ID string `json:"id"`
}

// TaskStore is the authoritative task collection. All mutations pass
// through a single mutex so that concurrent partial updates cannot
// interleave and so that events are published in exactly the order
// the mutations committed.
type TaskStore struct {
	db      *sql.DB
	mu      sync.Mutex
	hub     Broadcaster
	courses []string
}

// NewTaskStore creates a store over db. courses is the recognized
// course enumeration; its first entry is the default for new tasks.
// hub may be nil, in which case mutations are not broadcast.
func NewTaskStore(db *sql.DB, courses []string, hub Broadcaster) *TaskStore {
	return &TaskStore{db: db, courses: courses, hub: hub}
}

// List returns every task ascending by creation time. An empty store
// yields an empty slice, never nil and never an error from emptiness.
func (s *TaskStore) List() ([]Task, error) {
	rows, err := s.db.Query(`SELECT id, owner_id, title, description, due_date,
		priority, assigned_to, course, completed, created_at, updated_at
		FROM tasks ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	return tasks, nil
}

// Create validates fields, applies defaults, assigns id and
// timestamps, and inserts the task. A taskCreated event carrying the
// full record is published after the insert commits.
func (s *TaskStore) Create(ownerID string, fields TaskFields) (Task, error) {
	title := strings.TrimSpace(fields.Title)
	if title == "" {
		return Task{}, &ValidationError{Field: "title", Reason: "required"}
	}

	priority := fields.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !validPriority(priority) {
		return Task{}, &ValidationError{Field: "priority", Reason: "unknown priority " + priority}
	}

	course := fields.Course
	if course == "" {
		course = s.courses[0]
	}
	if !s.validCourse(course) {
		return Task{}, &ValidationError{Field: "course", Reason: "unknown course " + course}
	}

	due, err := parseDueDate(fields.DueDate)
	if err != nil {
		return Task{}, err
	}

	now := time.Now().UTC()
	t := Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(fields.Description),
		DueDate:     due,
		Priority:    priority,
		AssignedTo:  strings.TrimSpace(fields.AssignedTo),
		Course:      course,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`INSERT INTO tasks (id, owner_id, title, description,
		due_date, priority, assigned_to, course, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Title, t.Description, nullTime(t.DueDate),
		t.Priority, t.AssignedTo, t.Course, t.Completed, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("failed to insert task: %w", err)
	}

	s.publish(EventTaskCreated, t)
	return t, nil
}

// Update applies only the fields present in patch and refreshes
// UpdatedAt. Unknown ids yield ErrNotFound and leave the store
// untouched. A taskUpdated event with the full post-update record is
// published after the commit.
func (s *TaskStore) Update(id string, patch TaskPatch) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT id, owner_id, title, description, due_date,
		priority, assigned_to, course, completed, created_at, updated_at
		FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}

	if err := s.applyPatch(&t, patch); err != nil {
		return Task{}, err
	}
	t.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(`UPDATE tasks SET title = ?, description = ?, due_date = ?,
		priority = ?, assigned_to = ?, course = ?, completed = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, nullTime(t.DueDate), t.Priority,
		t.AssignedTo, t.Course, t.Completed, t.UpdatedAt, t.ID)
	if err != nil {
		return Task{}, fmt.Errorf("failed to update task: %w", err)
	}

	s.publish(EventTaskUpdated, t)
	return t, nil
}

// Delete removes the task. Unknown ids yield ErrNotFound. A
// taskDeleted event carrying only the id is published after the
// commit.
func (s *TaskStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.publish(EventTaskDeleted, DeletedPayload{ID: id})
	return nil
}

// applyPatch overwrites exactly the fields present in patch. Title may
// not be cleared; an empty DueDate string clears the due date.
func (s *TaskStore) applyPatch(t *Task, p TaskPatch) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return &ValidationError{Field: "title", Reason: "required"}
		}
		t.Title = title
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.DueDate != nil {
		due, err := parseDueDate(p.DueDate)
		if err != nil {
			return err
		}
		t.DueDate = due
	}
	if p.Priority != nil {
		if !validPriority(*p.Priority) {
			return &ValidationError{Field: "priority", Reason: "unknown priority " + *p.Priority}
		}
		t.Priority = *p.Priority
	}
	if p.AssignedTo != nil {
		t.AssignedTo = strings.TrimSpace(*p.AssignedTo)
	}
	if p.Course != nil {
		if !s.validCourse(*p.Course) {
			return &ValidationError{Field: "course", Reason: "unknown course " + *p.Course}
		}
		t.Course = *p.Course
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return nil
}

// publish is called with the store mutex held so that the hub sees
// events in commit order.
func (s *TaskStore) publish(eventType string, data any) {
	if s.hub != nil {
		s.hub.BroadcastEvent(eventType, data)
	}
}

func (s *TaskStore) validCourse(course string) bool {
	for _, c := range s.courses {
		if c == course {
			return true
		}
	}
	return false
}

func validPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// parseDueDate accepts a plain date or RFC 3339 timestamp. An empty or
// nil value means no due date.
func parseDueDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if due, err := time.Parse(layout, *s); err == nil {
			due = due.UTC()
			return &due, nil
		}
	}
	return nil, &ValidationError{Field: "dueDate", Reason: "unrecognized date " + *s}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var due sql.NullTime
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &due,
		&t.Priority, &t.AssignedTo, &t.Course, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return Task{}, err
	}
	if err != nil {
		return Task{}, fmt.Errorf("failed to scan task: %w", err)
	}
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}
	return t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
