package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/ports"
)

// ErrNoUsers is returned by Seed when there is nobody to own the tasks
var ErrNoUsers = errors.New("no users to seed tasks for")

// SeedOptions controls the amount of random data
type SeedOptions struct {
	Tasks       int
	LogsPerTask int
	Now         func() time.Time
	Rand        *rand.Rand
}

// SeedResult reports what was created
type SeedResult struct {
	Tasks    int
	TimeLogs int
}

// Seed creates tasks with random creators and owners picked from the existing
// users, each with closed time logs started within the last 30 days and
// lasting 1 to 10 hours. Every task is written in its own transaction.
func Seed(ctx context.Context, store ports.Transactor, opts SeedOptions) (SeedResult, error) {
	var result SeedResult

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	users, err := store.Users().List(ctx)
	if err != nil {
		return result, fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		return result, ErrNoUsers
	}

	pick := func() *entities.User { return users[opts.Rand.Intn(len(users))] }
	now := opts.Now().UTC()

	for i := 0; i < opts.Tasks; i++ {
		err := store.WithinTx(ctx, func(tx ports.Store) error {
			owner := pick().ID
			task := &entities.Task{
				Title:       fmt.Sprintf("Task %d", i),
				Description: fmt.Sprintf("Description for task %d", i),
				Status:      entities.TaskStatusTodo,
				CreatorID:   pick().ID,
				OwnerID:     &owner,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.Tasks().Create(ctx, task); err != nil {
				return err
			}

			for j := 0; j < opts.LogsPerTask; j++ {
				start := now.AddDate(0, 0, -opts.Rand.Intn(31))
				end := start.Add(time.Duration(1+opts.Rand.Intn(10)) * time.Hour)
				minutes := int(end.Sub(start) / time.Minute)

				if err := tx.TimeLogs().Create(ctx, &entities.TimeLog{
					TaskID:          task.ID,
					StartTime:       start,
					EndTime:         &end,
					DurationMinutes: &minutes,
					CreatedAt:       now,
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("seed task %d: %w", i, err)
		}

		result.Tasks++
		result.TimeLogs += opts.LogsPerTask
	}

	return result, nil
}
