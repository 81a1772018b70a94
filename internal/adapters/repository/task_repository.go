package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/ports"
)

const taskColumns = `id, title, description, status, creator_id, owner_id, created_at, updated_at`

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db sqlx.ExtContext
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db sqlx.ExtContext) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := r.db.Rebind(`
		INSERT INTO tasks (title, description, status, creator_id, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	if task.Status == "" {
		task.Status = entities.TaskStatusTodo
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()

	err := r.db.QueryRowxContext(ctx, query,
		task.Title, task.Description, task.Status, task.CreatorID, task.OwnerID,
		task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, id int64) (*entities.Task, error) {
	query := r.db.Rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`)

	var task entities.Task
	if err := sqlx.GetContext(ctx, r.db, &task, query, id); err != nil {
		if isNoRows(err) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	return &task, nil
}

// UpdateStatus sets only the status column, leaving a concurrent owner change intact
func (r *TaskRepositoryImpl) UpdateStatus(ctx context.Context, id int64, status entities.TaskStatus, at time.Time) error {
	if !status.IsValid() {
		return entities.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	query := r.db.Rebind(`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`)
	return r.execOne(ctx, "update task status", query, status, at.UTC(), id)
}

// UpdateOwner sets only the owner column, leaving a concurrent status change intact
func (r *TaskRepositoryImpl) UpdateOwner(ctx context.Context, id int64, ownerID uuid.UUID, at time.Time) error {
	query := r.db.Rebind(`UPDATE tasks SET owner_id = ?, updated_at = ? WHERE id = ?`)
	return r.execOne(ctx, "update task owner", query, ownerID, at.UTC(), id)
}

func (r *TaskRepositoryImpl) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, "delete task", r.db.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
}

// List returns the tasks matching every set field of the filter, ordered by id
func (r *TaskRepositoryImpl) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	var conditions []string
	var args []interface{}

	if filter.CreatorID != nil {
		conditions = append(conditions, "creator_id = ?")
		args = append(args, *filter.CreatorID)
	}

	if filter.OwnerID != nil {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, *filter.OwnerID)
	}

	if filter.CreatorOrOwner != nil {
		conditions = append(conditions, "(creator_id = ? OR owner_id = ?)")
		args = append(args, *filter.CreatorOrOwner, *filter.CreatorOrOwner)
	}

	if filter.Status != nil {
		if !filter.Status.IsValid() {
			return nil, entities.NewValidationError("status", fmt.Sprintf("unknown status %q", *filter.Status))
		}
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}

	if filter.TitleContains != nil && *filter.TitleContains != "" {
		conditions = append(conditions, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(*filter.TitleContains))+"%")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := r.db.Rebind(fmt.Sprintf(`SELECT %s FROM tasks %s ORDER BY id`, taskColumns, whereClause))

	tasks := []*entities.Task{}
	if err := sqlx.SelectContext(ctx, r.db, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
