package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field limits for tasks
const (
	MaxTitleLength       = 50
	MaxDescriptionLength = 200
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// User represents a user in the system
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Task represents a task in the system
type Task struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      TaskStatus `json:"status" db:"status"`
	CreatorID   uuid.UUID  `json:"creator_id" db:"creator_id"`
	OwnerID     *uuid.UUID `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Comment represents a comment left on a task
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	TaskID    int64     `json:"task_id" db:"task_id"`
	AuthorID  uuid.UUID `json:"author_id" db:"author_id"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TimeLog represents a time tracking entry for a task. A log with a nil
// EndTime is an open timer.
type TimeLog struct {
	ID              int64      `json:"id" db:"id"`
	TaskID          int64      `json:"task_id" db:"task_id"`
	StartTime       time.Time  `json:"start_time" db:"start_time"`
	EndTime         *time.Time `json:"end_time" db:"end_time"`
	DurationMinutes *int       `json:"duration_minutes" db:"duration_minutes"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Business logic methods for Task

// IsAccessibleBy reports whether the user is the task's creator or current owner.
func (t *Task) IsAccessibleBy(userID uuid.UUID) bool {
	if t.CreatorID == userID {
		return true
	}
	return t.OwnerID != nil && *t.OwnerID == userID
}

func (t *Task) IsOwnedBy(userID uuid.UUID) bool {
	return t.OwnerID != nil && *t.OwnerID == userID
}

func (t *Task) IsDone() bool {
	return t.Status == TaskStatusDone
}

func (t *Task) AssignTo(userID uuid.UUID) bool {
	if t.IsOwnedBy(userID) {
		return false
	}
	owner := userID
	t.OwnerID = &owner
	return true
}

// Business logic methods for TimeLog

func (tl *TimeLog) IsOpen() bool {
	return tl.EndTime == nil
}

// Stop closes the log at the given instant. Duration is the number of whole
// minutes elapsed.
func (tl *TimeLog) Stop(at time.Time) error {
	if !tl.IsOpen() {
		return ErrNoActiveTimer
	}

	end := at
	tl.EndTime = &end
	duration := ElapsedMinutes(tl.StartTime, end)
	tl.DurationMinutes = &duration

	return nil
}

// Minutes returns the logged duration, zero for open logs.
func (tl *TimeLog) Minutes() int {
	if tl.DurationMinutes == nil {
		return 0
	}
	return *tl.DurationMinutes
}

// ElapsedMinutes returns floor((end - start) / 1 minute), never negative.
func ElapsedMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// Validation helpers

func ValidateTaskFields(title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return NewValidationError("title", "is required")
	}
	if len([]rune(title)) > MaxTitleLength {
		return NewValidationError("title", "must be at most 50 characters")
	}
	if len([]rune(description)) > MaxDescriptionLength {
		return NewValidationError("description", "must be at most 200 characters")
	}
	return nil
}

func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}
