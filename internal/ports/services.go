package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tasklog/core/internal/domain/entities"
)

// TaskService interface for task lifecycle operations
type TaskService interface {
	CreateTask(ctx context.Context, req CreateTaskRequest, actor uuid.UUID) (*entities.Task, error)
	GetTask(ctx context.Context, taskID int64, actor uuid.UUID) (*TaskDetails, error)
	AssignTask(ctx context.Context, taskID int64, newOwnerID, actor uuid.UUID) (*AssignResult, error)
	CompleteTask(ctx context.Context, taskID int64, actor uuid.UUID) (*entities.Task, error)
	DeleteTask(ctx context.Context, taskID int64, actor uuid.UUID) error
	CreatedTasks(ctx context.Context, actor uuid.UUID) ([]TaskSummary, error)
	MyTasks(ctx context.Context, actor uuid.UUID) ([]TaskSummary, error)
	CompletedTasks(ctx context.Context, actor uuid.UUID) ([]TaskSummary, error)
	SearchTasks(ctx context.Context, title string, actor uuid.UUID) ([]TaskSummary, error)
}

// TimerService interface for time tracking operations
type TimerService interface {
	StartTimer(ctx context.Context, taskID int64, actor uuid.UUID) (int64, error)
	StopTimer(ctx context.Context, taskID int64, actor uuid.UUID) (int, error)
	AddManualLog(ctx context.Context, req ManualLogRequest, actor uuid.UUID) (int64, error)
	ActiveTimer(ctx context.Context, taskID int64, actor uuid.UUID) (*entities.TimeLog, error)
	ListTimeLogs(ctx context.Context, taskID int64, actor uuid.UUID) ([]*entities.TimeLog, error)
}

// ReportService interface for time aggregation queries
type ReportService interface {
	TotalDuration(ctx context.Context, taskID int64) (int, error)
	TimeLoggedInWindow(ctx context.Context, actor uuid.UUID, window TimeWindow) (int, error)
	TopTasks(ctx context.Context, actor uuid.UUID, window TimeWindow, n int) ([]TaskSummary, error)
	TimeLoggedLastMonth(ctx context.Context, actor uuid.UUID) (int, error)
	TopTasksLastMonth(ctx context.Context, actor uuid.UUID) ([]TaskSummary, error)
}

// CommentService interface for comment operations
type CommentService interface {
	CreateComment(ctx context.Context, req CreateCommentRequest, actor uuid.UUID) (*entities.Comment, error)
	TaskComments(ctx context.Context, taskID int64, actor uuid.UUID) ([]*entities.Comment, error)
}

// UserService interface for user management operations
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*entities.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*entities.User, error)
	ListUsers(ctx context.Context) ([]*entities.User, error)
}

// Request/Response Types

type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

type AssignTaskRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

type ManualLogRequest struct {
	TaskID          int64  `json:"task_id" validate:"required"`
	Date            string `json:"date" validate:"required"`
	DurationMinutes int    `json:"duration_minutes"`
}

type CreateCommentRequest struct {
	TaskID int64  `json:"task_id" validate:"required"`
	Text   string `json:"text" validate:"required"`
}

type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
}

// TaskSummary is a task listing row with its logged time
type TaskSummary struct {
	ID            int64  `json:"id" db:"id"`
	Title         string `json:"title" db:"title"`
	TotalDuration int    `json:"total_duration" db:"total_duration"`
}

// TaskDetails is a task together with its logged time
type TaskDetails struct {
	*entities.Task
	TotalDuration int `json:"total_duration"`
}

// AssignResult reports whether an assignment changed the owner
type AssignResult struct {
	Task    *entities.Task `json:"task"`
	Changed bool           `json:"changed"`
	Message string         `json:"message"`
}

// TimeWindow is the half-open interval [Start, End)
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w TimeWindow) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return entities.NewValidationError("window", "start and end are required")
	}
	if !w.End.After(w.Start) {
		return entities.NewValidationError("window", "end must be after start")
	}
	return nil
}

// LastMonthWindow covers the calendar month leading up to and including now
func LastMonthWindow(now time.Time) TimeWindow {
	return TimeWindow{
		Start: now.AddDate(0, -1, 0),
		End:   now.Add(time.Nanosecond),
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
