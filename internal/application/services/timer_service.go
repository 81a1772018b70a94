package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/infrastructure/metrics"
	"github.com/tasklog/core/internal/ports"
)

// ManualLogDateLayout is the accepted date format of manual time logs
const ManualLogDateLayout = "2006-01-02"

// TimerService handles time tracking operations
type TimerService struct {
	store  ports.Transactor
	logger *logger.Logger
	opts   options
}

// NewTimerService creates a new timer service
func NewTimerService(store ports.Transactor, log *logger.Logger, opts ...Option) *TimerService {
	return &TimerService{
		store:  store,
		logger: log.WithComponent("timer"),
		opts:   newOptions(opts),
	}
}

// StartTimer opens a time log on the task and moves it to in_progress.
// A task can run one timer at a time.
func (s *TimerService) StartTimer(ctx context.Context, taskID int64, actor uuid.UUID) (int64, error) {
	var logID int64

	err := s.store.WithinTx(ctx, func(tx ports.Store) error {
		task, err := loadTask(ctx, tx.Tasks(), taskID, actor, entities.ErrTaskNotFound)
		if err != nil {
			return err
		}

		if err := ensureNoOpenLog(ctx, tx.TimeLogs(), taskID); err != nil {
			return err
		}

		now := s.opts.clock()
		log := &entities.TimeLog{
			TaskID:    taskID,
			StartTime: now,
			CreatedAt: now,
		}
		if err := tx.TimeLogs().CreateOpen(ctx, log); err != nil {
			return err
		}

		if err := tx.Tasks().UpdateStatus(ctx, task.ID, entities.TaskStatusInProgress, now); err != nil {
			return fmt.Errorf("update task status: %w", err)
		}

		logID = log.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.TimerEvents.WithLabelValues("started").Inc()
	s.logger.LogUserAction(actor.String(), "timer_started", map[string]interface{}{
		"task_id":     taskID,
		"time_log_id": logID,
	})

	return logID, nil
}

// StopTimer closes the task's running timer and returns the whole minutes
// elapsed. The task status is left as is.
func (s *TimerService) StopTimer(ctx context.Context, taskID int64, actor uuid.UUID) (int, error) {
	var (
		duration int
		owner    *uuid.UUID
	)

	err := s.store.WithinTx(ctx, func(tx ports.Store) error {
		task, err := loadTask(ctx, tx.Tasks(), taskID, actor, entities.ErrTaskNotFound)
		if err != nil {
			return err
		}
		owner = task.OwnerID

		log, err := tx.TimeLogs().GetOpen(ctx, taskID)
		if err != nil {
			return err
		}

		if err := log.Stop(s.opts.clock()); err != nil {
			return err
		}
		if err := tx.TimeLogs().Close(ctx, log); err != nil {
			return err
		}

		duration = log.Minutes()
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.opts.invalidateReports(ctx, s.logger, owner)

	metrics.TimerEvents.WithLabelValues("stopped").Inc()
	metrics.LoggedMinutes.Add(float64(duration))
	s.logger.LogUserAction(actor.String(), "timer_stopped", map[string]interface{}{
		"task_id":          taskID,
		"duration_minutes": duration,
	})

	return duration, nil
}

// AddManualLog records a closed entry for a calendar day. Start and end are
// midnight UTC of the date.
func (s *TimerService) AddManualLog(ctx context.Context, req ports.ManualLogRequest, actor uuid.UUID) (int64, error) {
	var (
		logID int64
		owner *uuid.UUID
	)

	err := s.store.WithinTx(ctx, func(tx ports.Store) error {
		task, err := loadTask(ctx, tx.Tasks(), req.TaskID, actor, entities.ErrTaskNotFound)
		if err != nil {
			return err
		}
		owner = task.OwnerID

		day, err := time.ParseInLocation(ManualLogDateLayout, strings.TrimSpace(req.Date), time.UTC)
		if err != nil {
			return entities.ErrInvalidDate
		}

		if req.DurationMinutes < 0 {
			return entities.NewValidationError("duration_minutes", "must not be negative")
		}

		if err := ensureNoOpenLog(ctx, tx.TimeLogs(), req.TaskID); err != nil {
			return err
		}

		duration := req.DurationMinutes
		end := day
		log := &entities.TimeLog{
			TaskID:          req.TaskID,
			StartTime:       day,
			EndTime:         &end,
			DurationMinutes: &duration,
			CreatedAt:       s.opts.clock(),
		}
		if err := tx.TimeLogs().Create(ctx, log); err != nil {
			return err
		}

		logID = log.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.opts.invalidateReports(ctx, s.logger, owner)

	metrics.TimerEvents.WithLabelValues("manual").Inc()
	metrics.LoggedMinutes.Add(float64(req.DurationMinutes))
	s.logger.LogUserAction(actor.String(), "time_logged", map[string]interface{}{
		"task_id":          req.TaskID,
		"time_log_id":      logID,
		"date":             req.Date,
		"duration_minutes": req.DurationMinutes,
	})

	return logID, nil
}

// ActiveTimer returns the running timer of a task
func (s *TimerService) ActiveTimer(ctx context.Context, taskID int64, actor uuid.UUID) (*entities.TimeLog, error) {
	if _, err := loadTask(ctx, s.store.Tasks(), taskID, actor, entities.ErrTaskNotFound); err != nil {
		return nil, err
	}

	return s.store.TimeLogs().GetOpen(ctx, taskID)
}

// ListTimeLogs returns every log of a task in start order
func (s *TimerService) ListTimeLogs(ctx context.Context, taskID int64, actor uuid.UUID) ([]*entities.TimeLog, error) {
	if _, err := loadTask(ctx, s.store.Tasks(), taskID, actor, entities.ErrTaskNotFound); err != nil {
		return nil, err
	}

	return s.store.TimeLogs().ListByTask(ctx, taskID)
}

func ensureNoOpenLog(ctx context.Context, logs ports.TimeLogRepository, taskID int64) error {
	_, err := logs.GetOpen(ctx, taskID)
	switch {
	case err == nil:
		return entities.ErrTimerAlreadyRunning
	case errors.Is(err, entities.ErrNoActiveTimer):
		return nil
	default:
		return err
	}
}

var _ ports.TimerService = (*TimerService)(nil)
