package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/ports"
)

// CommentRepositoryImpl implements the CommentRepository interface
type CommentRepositoryImpl struct {
	db sqlx.ExtContext
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db sqlx.ExtContext) ports.CommentRepository {
	return &CommentRepositoryImpl{db: db}
}

func (r *CommentRepositoryImpl) Create(ctx context.Context, comment *entities.Comment) error {
	query := r.db.Rebind(`
		INSERT INTO comments (task_id, author_id, text, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`)

	comment.CreatedAt = comment.CreatedAt.UTC()

	err := r.db.QueryRowxContext(ctx, query,
		comment.TaskID, comment.AuthorID, comment.Text, comment.CreatedAt,
	).Scan(&comment.ID)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}

	return nil
}

func (r *CommentRepositoryImpl) ListByTask(ctx context.Context, taskID int64) ([]*entities.Comment, error) {
	query := r.db.Rebind(`
		SELECT id, task_id, author_id, text, created_at
		FROM comments
		WHERE task_id = ?
		ORDER BY created_at, id`)

	comments := []*entities.Comment{}
	if err := sqlx.SelectContext(ctx, r.db, &comments, query, taskID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	return comments, nil
}

func (r *CommentRepositoryImpl) DeleteByTask(ctx context.Context, taskID int64) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM comments WHERE task_id = ?`), taskID); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return nil
}
