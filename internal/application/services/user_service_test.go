package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/ports"
)

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, err := f.users.CreateUser(ctx, ports.CreateUserRequest{Name: " Ada ", Email: " Ada@Example.com "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Name != "Ada" || u.Email != "ada@example.com" {
		t.Fatalf("expected normalized user, got %+v", u)
	}

	if _, err := f.users.CreateUser(ctx, ports.CreateUserRequest{Name: "Other", Email: "ada@example.com"}); !errors.Is(err, entities.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	_, err = f.users.CreateUser(ctx, ports.CreateUserRequest{Name: "Bad", Email: "not-an-email"})
	var verr *entities.ValidationError
	if !errors.As(err, &verr) || verr.Field != "email" {
		t.Fatalf("expected email validation error, got %v", err)
	}

	users, err := f.users.ListUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("expected 1 user, got %d (%v)", len(users), err)
	}
}
