package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/ports"
)

const timeLogColumns = `id, task_id, start_time, end_time, duration_minutes, created_at`

// TimeLogRepositoryImpl implements the TimeLogRepository interface
type TimeLogRepositoryImpl struct {
	db sqlx.ExtContext
}

// NewTimeLogRepository creates a new time log repository
func NewTimeLogRepository(db sqlx.ExtContext) ports.TimeLogRepository {
	return &TimeLogRepositoryImpl{db: db}
}

func (r *TimeLogRepositoryImpl) insert(ctx context.Context, log *entities.TimeLog) error {
	query := r.db.Rebind(`
		INSERT INTO time_logs (task_id, start_time, end_time, duration_minutes, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	log.StartTime = log.StartTime.UTC()
	log.CreatedAt = log.CreatedAt.UTC()
	if log.EndTime != nil {
		end := log.EndTime.UTC()
		log.EndTime = &end
	}

	return r.db.QueryRowxContext(ctx, query,
		log.TaskID, log.StartTime, log.EndTime, log.DurationMinutes, log.CreatedAt,
	).Scan(&log.ID)
}

// CreateOpen inserts a running timer. The partial unique index on open logs
// turns a concurrent second start into ErrTimerAlreadyRunning.
func (r *TimeLogRepositoryImpl) CreateOpen(ctx context.Context, log *entities.TimeLog) error {
	log.EndTime = nil
	log.DurationMinutes = nil

	if err := r.insert(ctx, log); err != nil {
		if isUniqueViolation(err) {
			return entities.ErrTimerAlreadyRunning
		}
		return fmt.Errorf("create open time log: %w", err)
	}

	return nil
}

func (r *TimeLogRepositoryImpl) Create(ctx context.Context, log *entities.TimeLog) error {
	if err := r.insert(ctx, log); err != nil {
		if isUniqueViolation(err) {
			return entities.ErrTimerAlreadyRunning
		}
		return fmt.Errorf("create time log: %w", err)
	}

	return nil
}

// GetOpen returns the running timer of a task or ErrNoActiveTimer
func (r *TimeLogRepositoryImpl) GetOpen(ctx context.Context, taskID int64) (*entities.TimeLog, error) {
	query := r.db.Rebind(`SELECT ` + timeLogColumns + ` FROM time_logs WHERE task_id = ? AND end_time IS NULL`)

	var log entities.TimeLog
	if err := sqlx.GetContext(ctx, r.db, &log, query, taskID); err != nil {
		if isNoRows(err) {
			return nil, entities.ErrNoActiveTimer
		}
		return nil, fmt.Errorf("get open time log: %w", err)
	}

	return &log, nil
}

// Close persists end time and duration, but only while the log is still open
func (r *TimeLogRepositoryImpl) Close(ctx context.Context, log *entities.TimeLog) error {
	if log.EndTime == nil {
		return fmt.Errorf("close time log %d: end time not set", log.ID)
	}

	query := r.db.Rebind(`
		UPDATE time_logs
		SET end_time = ?, duration_minutes = ?
		WHERE id = ? AND end_time IS NULL`)

	result, err := r.db.ExecContext(ctx, query, log.EndTime.UTC(), log.DurationMinutes, log.ID)
	if err != nil {
		return fmt.Errorf("close time log: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("close time log: %w", err)
	}
	if rows == 0 {
		return entities.ErrNoActiveTimer
	}

	return nil
}

func (r *TimeLogRepositoryImpl) ListByTask(ctx context.Context, taskID int64) ([]*entities.TimeLog, error) {
	query := r.db.Rebind(`SELECT ` + timeLogColumns + ` FROM time_logs WHERE task_id = ? ORDER BY start_time, id`)

	logs := []*entities.TimeLog{}
	if err := sqlx.SelectContext(ctx, r.db, &logs, query, taskID); err != nil {
		return nil, fmt.Errorf("list time logs: %w", err)
	}

	return logs, nil
}

func (r *TimeLogRepositoryImpl) DeleteByTask(ctx context.Context, taskID int64) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM time_logs WHERE task_id = ?`), taskID); err != nil {
		return fmt.Errorf("delete time logs: %w", err)
	}
	return nil
}

// SumByTask totals closed log durations of a task; open logs count as zero
func (r *TimeLogRepositoryImpl) SumByTask(ctx context.Context, taskID int64) (int, error) {
	query := r.db.Rebind(`SELECT COALESCE(SUM(duration_minutes), 0) FROM time_logs WHERE task_id = ?`)

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, query, taskID); err != nil {
		return 0, fmt.Errorf("sum time logs: %w", err)
	}

	return total, nil
}

// SumByTasks totals durations for several tasks at once. Tasks without logs
// are absent from the result.
func (r *TimeLogRepositoryImpl) SumByTasks(ctx context.Context, taskIDs []int64) (map[int64]int, error) {
	totals := make(map[int64]int, len(taskIDs))
	if len(taskIDs) == 0 {
		return totals, nil
	}

	query, args, err := sqlx.In(`
		SELECT task_id, COALESCE(SUM(duration_minutes), 0) AS total
		FROM time_logs
		WHERE task_id IN (?)
		GROUP BY task_id`, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("build sum query: %w", err)
	}

	var rows []struct {
		TaskID int64 `db:"task_id"`
		Total  int   `db:"total"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sum time logs by task: %w", err)
	}

	for _, row := range rows {
		totals[row.TaskID] = row.Total
	}

	return totals, nil
}

// SumForOwner totals durations of logs on tasks owned by ownerID with
// start_time in [from, to)
func (r *TimeLogRepositoryImpl) SumForOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (int, error) {
	query := r.db.Rebind(`
		SELECT COALESCE(SUM(l.duration_minutes), 0)
		FROM time_logs l
		JOIN tasks t ON t.id = l.task_id
		WHERE t.owner_id = ? AND l.start_time >= ? AND l.start_time < ?`)

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, query, ownerID, from.UTC(), to.UTC()); err != nil {
		return 0, fmt.Errorf("sum time logs for owner: %w", err)
	}

	return total, nil
}

// TopTasksForOwner ranks the owner's tasks by duration logged in [from, to),
// highest first, ties broken by ascending task id
func (r *TimeLogRepositoryImpl) TopTasksForOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time, limit int) ([]ports.TaskSummary, error) {
	query := r.db.Rebind(`
		SELECT t.id, t.title, COALESCE(SUM(l.duration_minutes), 0) AS total_duration
		FROM tasks t
		JOIN time_logs l ON l.task_id = t.id
		WHERE t.owner_id = ? AND l.start_time >= ? AND l.start_time < ?
		GROUP BY t.id, t.title
		ORDER BY total_duration DESC, t.id ASC
		LIMIT ?`)

	summaries := []ports.TaskSummary{}
	if err := sqlx.SelectContext(ctx, r.db, &summaries, query, ownerID, from.UTC(), to.UTC(), limit); err != nil {
		return nil, fmt.Errorf("top tasks for owner: %w", err)
	}

	return summaries, nil
}
