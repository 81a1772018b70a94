package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/infrastructure/database/dbtest"
	"github.com/tasklog/core/internal/ports"
)

var t0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(dbtest.New(t))
}

func mustUser(t *testing.T, s ports.Store, email string) *entities.User {
	t.Helper()
	u := &entities.User{Name: email, Email: email, CreatedAt: t0}
	if err := s.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func mustTask(t *testing.T, s ports.Store, title string, creator uuid.UUID, owner *uuid.UUID) *entities.Task {
	t.Helper()
	task := &entities.Task{Title: title, CreatorID: creator, OwnerID: owner, CreatedAt: t0, UpdatedAt: t0}
	if err := s.Tasks().Create(context.Background(), task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func closedLog(t *testing.T, s ports.Store, taskID int64, start time.Time, minutes int) {
	t.Helper()
	end := start
	log := &entities.TimeLog{TaskID: taskID, StartTime: start, EndTime: &end, DurationMinutes: &minutes, CreatedAt: start}
	if err := s.TimeLogs().Create(context.Background(), log); err != nil {
		t.Fatalf("create log: %v", err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	mustUser(t, s, "a@example.com")

	err := s.Users().Create(context.Background(), &entities.User{Name: "b", Email: "a@example.com", CreatedAt: t0})
	if !errors.Is(err, entities.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	if _, err := s.Users().GetByID(context.Background(), uuid.New()); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskRepository_RoundTripAndFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := mustUser(t, s, "alice@example.com")
	bob := mustUser(t, s, "bob@example.com")

	owned := mustTask(t, s, "Write Report", alice.ID, &bob.ID)
	mustTask(t, s, "plan sprint", alice.ID, nil)
	mustTask(t, s, "100% done_ish", bob.ID, nil)

	got, err := s.Tasks().GetByID(ctx, owned.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.OwnerID == nil || *got.OwnerID != bob.ID {
		t.Fatalf("owner not persisted: %v", got.OwnerID)
	}
	if got.Status != entities.TaskStatusTodo {
		t.Fatalf("expected default status todo, got %q", got.Status)
	}

	mine, err := s.Tasks().List(ctx, ports.TaskFilter{CreatorOrOwner: &bob.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 tasks for bob, got %d", len(mine))
	}

	q := "REPORT"
	found, err := s.Tasks().List(ctx, ports.TaskFilter{CreatorOrOwner: &alice.ID, TitleContains: &q})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ID != owned.ID {
		t.Fatalf("unexpected search result: %+v", found)
	}

	pct := "0%"
	found, err = s.Tasks().List(ctx, ports.TaskFilter{TitleContains: &pct})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Title != "100% done_ish" {
		t.Fatalf("wildcards must match literally: %+v", found)
	}

	if err := s.Tasks().Delete(ctx, 9999); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskRepository_SingleColumnUpdates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := mustUser(t, s, "alice@example.com")
	bob := mustUser(t, s, "bob@example.com")
	task := mustTask(t, s, "ship", alice.ID, &alice.ID)

	later := t0.Add(time.Hour)
	if err := s.Tasks().UpdateStatus(ctx, task.ID, entities.TaskStatusInProgress, later); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := s.Tasks().UpdateOwner(ctx, task.ID, bob.ID, later); err != nil {
		t.Fatalf("update owner: %v", err)
	}

	got, err := s.Tasks().GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != entities.TaskStatusInProgress {
		t.Fatalf("owner update clobbered status: %q", got.Status)
	}
	if !got.IsOwnedBy(bob.ID) {
		t.Fatalf("owner not updated: %v", got.OwnerID)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, later)
	}

	err = s.Tasks().UpdateStatus(ctx, task.ID, entities.TaskStatus("archived"), later)
	if !errors.Is(err, entities.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status, got %v", err)
	}
	if err := s.Tasks().UpdateOwner(ctx, 9999, bob.ID, later); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}

	bogus := entities.TaskStatus("archived")
	if _, err := s.Tasks().List(ctx, ports.TaskFilter{Status: &bogus}); !errors.Is(err, entities.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status filter, got %v", err)
	}
}

func TestTimeLogRepository_OneOpenLogPerTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := mustUser(t, s, "alice@example.com")
	task := mustTask(t, s, "timer", alice.ID, nil)

	first := &entities.TimeLog{TaskID: task.ID, StartTime: t0, CreatedAt: t0}
	if err := s.TimeLogs().CreateOpen(ctx, first); err != nil {
		t.Fatalf("create open: %v", err)
	}

	second := &entities.TimeLog{TaskID: task.ID, StartTime: t0.Add(time.Minute), CreatedAt: t0}
	if err := s.TimeLogs().CreateOpen(ctx, second); !errors.Is(err, entities.ErrTimerAlreadyRunning) {
		t.Fatalf("expected ErrTimerAlreadyRunning, got %v", err)
	}

	open, err := s.TimeLogs().GetOpen(ctx, task.ID)
	if err != nil {
		t.Fatalf("get open: %v", err)
	}
	if open.ID != first.ID || !open.StartTime.Equal(t0) {
		t.Fatalf("unexpected open log: %+v", open)
	}

	if err := open.Stop(t0.Add(10 * time.Minute)); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.TimeLogs().Close(ctx, open); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.TimeLogs().Close(ctx, open); !errors.Is(err, entities.ErrNoActiveTimer) {
		t.Fatalf("second close must report ErrNoActiveTimer, got %v", err)
	}
	if _, err := s.TimeLogs().GetOpen(ctx, task.ID); !errors.Is(err, entities.ErrNoActiveTimer) {
		t.Fatalf("expected no open log, got %v", err)
	}

	// a new timer may start once the previous one is closed
	if err := s.TimeLogs().CreateOpen(ctx, second); err != nil {
		t.Fatalf("restart: %v", err)
	}
}

func TestTimeLogRepository_Aggregates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := mustUser(t, s, "alice@example.com")
	bob := mustUser(t, s, "bob@example.com")

	a := mustTask(t, s, "a", alice.ID, &alice.ID)
	b := mustTask(t, s, "b", alice.ID, &alice.ID)
	c := mustTask(t, s, "c", bob.ID, &bob.ID)
	empty := mustTask(t, s, "empty", alice.ID, &alice.ID)

	closedLog(t, s, a.ID, t0, 10)
	closedLog(t, s, a.ID, t0.Add(time.Hour), 15)
	closedLog(t, s, b.ID, t0, 25)
	closedLog(t, s, c.ID, t0, 99)
	closedLog(t, s, b.ID, t0.AddDate(0, -2, 0), 500)
	if err := s.TimeLogs().CreateOpen(ctx, &entities.TimeLog{TaskID: a.ID, StartTime: t0, CreatedAt: t0}); err != nil {
		t.Fatalf("open log: %v", err)
	}

	total, err := s.TimeLogs().SumByTask(ctx, a.ID)
	if err != nil || total != 25 {
		t.Fatalf("expected 25, got %d (%v)", total, err)
	}
	total, err = s.TimeLogs().SumByTask(ctx, empty.ID)
	if err != nil || total != 0 {
		t.Fatalf("expected 0, got %d (%v)", total, err)
	}

	totals, err := s.TimeLogs().SumByTasks(ctx, []int64{a.ID, b.ID, empty.ID})
	if err != nil {
		t.Fatalf("sum by tasks: %v", err)
	}
	if totals[a.ID] != 25 || totals[b.ID] != 525 || totals[empty.ID] != 0 {
		t.Fatalf("unexpected totals: %v", totals)
	}

	from, to := t0.Add(-time.Hour), t0.Add(time.Hour)
	sum, err := s.TimeLogs().SumForOwner(ctx, alice.ID, from, to)
	if err != nil {
		t.Fatalf("sum for owner: %v", err)
	}
	if sum != 35 {
		t.Fatalf("window is half-open, expected 35, got %d", sum)
	}

	top, err := s.TimeLogs().TopTasksForOwner(ctx, alice.ID, from, to.Add(time.Second), 10)
	if err != nil {
		t.Fatalf("top tasks: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 ranked tasks, got %+v", top)
	}
	if top[0].ID != a.ID || top[0].TotalDuration != 25 || top[1].ID != b.ID || top[1].TotalDuration != 25 {
		t.Fatalf("expected tie broken by id: %+v", top)
	}
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := mustUser(t, s, "alice@example.com")

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx ports.Store) error {
		mustTask(t, tx, "rolled back", alice.ID, nil)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	tasks, err := s.Tasks().List(ctx, ports.TaskFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected rollback, found %d tasks", len(tasks))
	}
}
