package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/ports"
)

// Notification texts
const (
	SubjectTaskAssigned  = "New Task Assignment"
	SubjectTaskCompleted = "Task completed"
	MessageAlreadyOwner  = "Task is already assigned to this user"
	MessageTaskAssigned  = "Task assigned successfully"
)

// TaskService handles task lifecycle operations
type TaskService struct {
	store  ports.Transactor
	logger *logger.Logger
	opts   options
}

// NewTaskService creates a new task service
func NewTaskService(store ports.Transactor, log *logger.Logger, opts ...Option) *TaskService {
	return &TaskService{
		store:  store,
		logger: log.WithComponent("task"),
		opts:   newOptions(opts),
	}
}

// CreateTask creates a task owned by its creator
func (s *TaskService) CreateTask(ctx context.Context, req ports.CreateTaskRequest, actor uuid.UUID) (*entities.Task, error) {
	if err := entities.ValidateTaskFields(req.Title, req.Description); err != nil {
		return nil, err
	}

	if _, err := s.store.Users().GetByID(ctx, actor); err != nil {
		return nil, err
	}

	now := s.opts.clock()
	owner := actor
	task := &entities.Task{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      entities.TaskStatusTodo,
		CreatorID:   actor,
		OwnerID:     &owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Tasks().Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.LogUserAction(actor.String(), "task_created", map[string]interface{}{
		"task_id": task.ID,
		"title":   task.Title,
	})

	return task, nil
}

// GetTask returns a task with its logged time
func (s *TaskService) GetTask(ctx context.Context, taskID int64, actor uuid.UUID) (*ports.TaskDetails, error) {
	task, err := loadTask(ctx, s.store.Tasks(), taskID, actor, entities.ErrForbidden)
	if err != nil {
		return nil, err
	}

	total, err := s.store.TimeLogs().SumByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return &ports.TaskDetails{Task: task, TotalDuration: total}, nil
}

// AssignTask hands the task to another user and notifies them. Assigning to
// the current owner changes nothing.
func (s *TaskService) AssignTask(ctx context.Context, taskID int64, newOwnerID, actor uuid.UUID) (*ports.AssignResult, error) {
	task, err := loadTask(ctx, s.store.Tasks(), taskID, actor, entities.ErrForbidden)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Users().GetByID(ctx, newOwnerID); err != nil {
		return nil, err
	}

	previous := task.OwnerID
	if !task.AssignTo(newOwnerID) {
		return &ports.AssignResult{Task: task, Changed: false, Message: MessageAlreadyOwner}, nil
	}

	if err := s.store.Tasks().UpdateOwner(ctx, task.ID, newOwnerID, s.opts.clock()); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}
	if task, err = s.store.Tasks().GetByID(ctx, taskID); err != nil {
		return nil, err
	}

	s.opts.invalidateReports(ctx, s.logger, previous, task.OwnerID)
	s.opts.notifyOwner(ctx, s.logger, s.store.Users(), task,
		SubjectTaskAssigned,
		fmt.Sprintf("A new task \"%s\" has been assigned to you.", task.Title))

	s.logger.LogUserAction(actor.String(), "task_assigned", map[string]interface{}{
		"task_id":  task.ID,
		"owner_id": newOwnerID.String(),
	})

	return &ports.AssignResult{Task: task, Changed: true, Message: MessageTaskAssigned}, nil
}

// CompleteTask marks the task done and notifies its owner
func (s *TaskService) CompleteTask(ctx context.Context, taskID int64, actor uuid.UUID) (*entities.Task, error) {
	task, err := loadTask(ctx, s.store.Tasks(), taskID, actor, entities.ErrForbidden)
	if err != nil {
		return nil, err
	}

	if err := s.store.Tasks().UpdateStatus(ctx, task.ID, entities.TaskStatusDone, s.opts.clock()); err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}
	if task, err = s.store.Tasks().GetByID(ctx, taskID); err != nil {
		return nil, err
	}

	s.opts.notifyOwner(ctx, s.logger, s.store.Users(), task,
		SubjectTaskCompleted,
		fmt.Sprintf("Task \"%s\" has been marked as done.", task.Title))

	s.logger.LogUserAction(actor.String(), "task_completed", map[string]interface{}{
		"task_id": task.ID,
	})

	return task, nil
}

// DeleteTask removes a task together with its comments and time logs
func (s *TaskService) DeleteTask(ctx context.Context, taskID int64, actor uuid.UUID) error {
	var owner *uuid.UUID

	err := s.store.WithinTx(ctx, func(tx ports.Store) error {
		task, err := loadTask(ctx, tx.Tasks(), taskID, actor, entities.ErrForbidden)
		if err != nil {
			return err
		}
		owner = task.OwnerID

		if err := tx.Comments().DeleteByTask(ctx, taskID); err != nil {
			return err
		}
		if err := tx.TimeLogs().DeleteByTask(ctx, taskID); err != nil {
			return err
		}
		return tx.Tasks().Delete(ctx, taskID)
	})
	if err != nil {
		return err
	}

	s.opts.invalidateReports(ctx, s.logger, owner)
	s.logger.LogUserAction(actor.String(), "task_deleted", map[string]interface{}{
		"task_id": taskID,
	})

	return nil
}

// CreatedTasks lists tasks the actor created
func (s *TaskService) CreatedTasks(ctx context.Context, actor uuid.UUID) ([]ports.TaskSummary, error) {
	return s.summaries(ctx, ports.TaskFilter{CreatorID: &actor})
}

// MyTasks lists tasks the actor currently owns
func (s *TaskService) MyTasks(ctx context.Context, actor uuid.UUID) ([]ports.TaskSummary, error) {
	return s.summaries(ctx, ports.TaskFilter{OwnerID: &actor})
}

// CompletedTasks lists done tasks the actor created or owns
func (s *TaskService) CompletedTasks(ctx context.Context, actor uuid.UUID) ([]ports.TaskSummary, error) {
	done := entities.TaskStatusDone
	return s.summaries(ctx, ports.TaskFilter{CreatorOrOwner: &actor, Status: &done})
}

// SearchTasks finds tasks by case-insensitive title substring among those the
// actor created or owns
func (s *TaskService) SearchTasks(ctx context.Context, title string, actor uuid.UUID) ([]ports.TaskSummary, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, entities.NewValidationError("title", "is required")
	}

	return s.summaries(ctx, ports.TaskFilter{CreatorOrOwner: &actor, TitleContains: &title})
}

func (s *TaskService) summaries(ctx context.Context, filter ports.TaskFilter) ([]ports.TaskSummary, error) {
	tasks, err := s.store.Tasks().List(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}

	totals, err := s.store.TimeLogs().SumByTasks(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]ports.TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, ports.TaskSummary{
			ID:            t.ID,
			Title:         t.Title,
			TotalDuration: totals[t.ID],
		})
	}

	return result, nil
}

var _ ports.TaskService = (*TaskService)(nil)
