package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/ports"
)

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db sqlx.ExtContext
}

// NewUserRepository creates a new user repository
func NewUserRepository(db sqlx.ExtContext) ports.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entities.User) error {
	query := r.db.Rebind(`
		INSERT INTO users (id, name, email, created_at)
		VALUES (?, ?, ?, ?)`)

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = user.CreatedAt.UTC()

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return entities.ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	query := r.db.Rebind(`
		SELECT id, name, email, created_at
		FROM users
		WHERE id = ?`)

	var user entities.User
	err := sqlx.GetContext(ctx, r.db, &user, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	query := r.db.Rebind(`
		SELECT id, name, email, created_at
		FROM users
		WHERE email = ?`)

	var user entities.User
	err := sqlx.GetContext(ctx, r.db, &user, query, email)
	if err != nil {
		if isNoRows(err) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

func (r *UserRepositoryImpl) List(ctx context.Context) ([]*entities.User, error) {
	query := `
		SELECT id, name, email, created_at
		FROM users
		ORDER BY name, email`

	users := []*entities.User{}
	if err := sqlx.SelectContext(ctx, r.db, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}
