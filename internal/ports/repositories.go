package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tasklog/core/internal/domain/entities"
)

// ErrCacheMiss is returned by CacheRepository.Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	List(ctx context.Context) ([]*entities.User, error)
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, id int64) (*entities.Task, error)
	// UpdateStatus and UpdateOwner each write a single column so concurrent
	// status and owner changes do not overwrite one another.
	UpdateStatus(ctx context.Context, id int64, status entities.TaskStatus, at time.Time) error
	UpdateOwner(ctx context.Context, id int64, ownerID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter TaskFilter) ([]*entities.Task, error)
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *entities.Comment) error
	ListByTask(ctx context.Context, taskID int64) ([]*entities.Comment, error)
	DeleteByTask(ctx context.Context, taskID int64) error
}

// TimeLogRepository defines the interface for time log data operations and
// the aggregate queries the report service relies on.
type TimeLogRepository interface {
	// CreateOpen inserts a log without an end time. It returns
	// entities.ErrTimerAlreadyRunning if the task already has an open log.
	CreateOpen(ctx context.Context, log *entities.TimeLog) error
	Create(ctx context.Context, log *entities.TimeLog) error
	GetOpen(ctx context.Context, taskID int64) (*entities.TimeLog, error)
	// Close sets end time and duration on an open log. It returns
	// entities.ErrNoActiveTimer if the log was already closed.
	Close(ctx context.Context, log *entities.TimeLog) error
	ListByTask(ctx context.Context, taskID int64) ([]*entities.TimeLog, error)
	DeleteByTask(ctx context.Context, taskID int64) error

	SumByTask(ctx context.Context, taskID int64) (int, error)
	SumByTasks(ctx context.Context, taskIDs []int64) (map[int64]int, error)
	SumForOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (int, error)
	TopTasksForOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit int) ([]TaskSummary, error)
}

// Store groups the repositories that share one connection or transaction
type Store interface {
	Users() UserRepository
	Tasks() TaskRepository
	Comments() CommentRepository
	TimeLogs() TimeLogRepository
}

// Transactor runs fn against repositories bound to a single transaction.
// The transaction is committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	Store
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// Notifier delivers (recipients, subject, message) notifications
type Notifier interface {
	Notify(ctx context.Context, recipients []string, subject, message string) error
}

// TaskFilter narrows task listings. Zero values are ignored.
type TaskFilter struct {
	CreatorID      *uuid.UUID
	OwnerID        *uuid.UUID
	CreatorOrOwner *uuid.UUID
	Status         *entities.TaskStatus
	TitleContains  *string
}
