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

const (
	SubjectCommentOnDoneTask = "New Comment to your completed task"
	SubjectCommentOnTask     = "New Comment to your task"
)

// CommentService handles task comments
type CommentService struct {
	store  ports.Transactor
	logger *logger.Logger
	opts   options
}

// NewCommentService creates a new comment service
func NewCommentService(store ports.Transactor, log *logger.Logger, opts ...Option) *CommentService {
	return &CommentService{
		store:  store,
		logger: log.WithComponent("comment"),
		opts:   newOptions(opts),
	}
}

// CreateComment adds a comment to a task the actor created or owns and
// notifies the task owner
func (s *CommentService) CreateComment(ctx context.Context, req ports.CreateCommentRequest, actor uuid.UUID) (*entities.Comment, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, entities.NewValidationError("text", "is required")
	}

	task, err := loadTask(ctx, s.store.Tasks(), req.TaskID, actor, entities.ErrTaskNotFound)
	if err != nil {
		return nil, err
	}

	comment := &entities.Comment{
		TaskID:    task.ID,
		AuthorID:  actor,
		Text:      text,
		CreatedAt: s.opts.clock(),
	}
	if err := s.store.Comments().Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	subject := SubjectCommentOnTask
	if task.IsDone() {
		subject = SubjectCommentOnDoneTask
	}
	s.opts.notifyOwner(ctx, s.logger, s.store.Users(), task, subject,
		fmt.Sprintf("Comment was added to \"%s\".", task.Title))

	s.logger.LogUserAction(actor.String(), "comment_created", map[string]interface{}{
		"task_id":    task.ID,
		"comment_id": comment.ID,
	})

	return comment, nil
}

// TaskComments lists a task's comments oldest first
func (s *CommentService) TaskComments(ctx context.Context, taskID int64, actor uuid.UUID) ([]*entities.Comment, error) {
	if _, err := loadTask(ctx, s.store.Tasks(), taskID, actor, entities.ErrForbidden); err != nil {
		return nil, err
	}

	return s.store.Comments().ListByTask(ctx, taskID)
}

var _ ports.CommentService = (*CommentService)(nil)
