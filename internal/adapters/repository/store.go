package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/tasklog/core/internal/infrastructure/database"
	"github.com/tasklog/core/internal/ports"
)

type store struct {
	users    ports.UserRepository
	tasks    ports.TaskRepository
	comments ports.CommentRepository
	timeLogs ports.TimeLogRepository
}

func newStore(db sqlx.ExtContext) *store {
	return &store{
		users:    NewUserRepository(db),
		tasks:    NewTaskRepository(db),
		comments: NewCommentRepository(db),
		timeLogs: NewTimeLogRepository(db),
	}
}

func (s *store) Users() ports.UserRepository       { return s.users }
func (s *store) Tasks() ports.TaskRepository       { return s.tasks }
func (s *store) Comments() ports.CommentRepository { return s.comments }
func (s *store) TimeLogs() ports.TimeLogRepository { return s.timeLogs }

// Store hands out repositories bound either to the connection pool or to a
// single transaction.
type Store struct {
	*store
	db *database.DB
}

// NewStore creates a Store over the given database
func NewStore(db *database.DB) *Store {
	return &Store{
		store: newStore(db.DB),
		db:    db,
	}
}

// WithinTx runs fn with repositories bound to one transaction
func (s *Store) WithinTx(ctx context.Context, fn func(ports.Store) error) error {
	return s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		return fn(newStore(tx))
	})
}

var _ ports.Transactor = (*Store)(nil)
