package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/ports"
)

func TestStartTimer_ConcurrentStartsOpenOneLog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	task := f.task(t, "race", alice.ID)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		running   int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.timer.StartTimer(ctx, task.ID, alice.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, entities.ErrTimerAlreadyRunning):
				running++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || running != workers-1 {
		t.Fatalf("expected 1 success and %d rejections, got %d and %d", workers-1, successes, running)
	}

	logs, err := f.timer.ListTimeLogs(ctx, task.ID, alice.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || !logs[0].IsOpen() {
		t.Fatalf("expected exactly one open log, got %+v", logs)
	}
}

func TestStartStop_StatusAndDuration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	task := f.task(t, "timed", alice.ID)

	logID, err := f.timer.StartTimer(ctx, task.ID, alice.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if logID == 0 {
		t.Fatalf("expected log id")
	}

	details, err := f.tasks.GetTask(ctx, task.ID, alice.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if details.Status != entities.TaskStatusInProgress {
		t.Fatalf("expected in_progress, got %q", details.Status)
	}

	active, err := f.timer.ActiveTimer(ctx, task.ID, alice.ID)
	if err != nil || active.ID != logID {
		t.Fatalf("expected active log %d, got %+v (%v)", logID, active, err)
	}

	f.clock.Advance(10 * time.Minute)
	minutes, err := f.timer.StopTimer(ctx, task.ID, alice.ID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if minutes != 10 {
		t.Fatalf("expected 10 minutes, got %d", minutes)
	}

	details, err = f.tasks.GetTask(ctx, task.ID, alice.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if details.Status != entities.TaskStatusInProgress {
		t.Fatalf("stop must not change status, got %q", details.Status)
	}
	if details.TotalDuration != 10 {
		t.Fatalf("expected total 10, got %d", details.TotalDuration)
	}
}

func TestStopTimer_FloorsPartialMinutes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	task := f.task(t, "floor", alice.ID)

	if _, err := f.timer.StartTimer(ctx, task.ID, alice.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.clock.Advance(9*time.Minute + 59*time.Second)

	minutes, err := f.timer.StopTimer(ctx, task.ID, alice.ID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if minutes != 9 {
		t.Fatalf("expected 9 minutes, got %d", minutes)
	}
}

func TestStopTimer_WithoutRunningTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	task := f.task(t, "idle", alice.ID)

	if _, err := f.timer.StopTimer(ctx, task.ID, alice.ID); !errors.Is(err, entities.ErrNoActiveTimer) {
		t.Fatalf("expected ErrNoActiveTimer, got %v", err)
	}
	if _, err := f.timer.ActiveTimer(ctx, task.ID, alice.ID); !errors.Is(err, entities.ErrNoActiveTimer) {
		t.Fatalf("expected ErrNoActiveTimer, got %v", err)
	}
}

func TestTimer_UnknownOrForeignTaskIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	mallory := f.user(t, "mallory")
	task := f.task(t, "private", alice.ID)

	if _, err := f.timer.StartTimer(ctx, task.ID, mallory.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for stranger, got %v", err)
	}
	if _, err := f.timer.StartTimer(ctx, 424242, alice.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing task, got %v", err)
	}
	if _, err := f.timer.StopTimer(ctx, task.ID, mallory.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on stop, got %v", err)
	}
}

func TestAddManualLog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	task := f.task(t, "manual", alice.ID)

	t.Run("invalid date leaves no log", func(t *testing.T) {
		_, err := f.timer.AddManualLog(ctx, ports.ManualLogRequest{TaskID: task.ID, Date: "10/03/2024", DurationMinutes: 30}, alice.ID)
		if !errors.Is(err, entities.ErrInvalidDate) {
			t.Fatalf("expected ErrInvalidDate, got %v", err)
		}
		logs, err := f.timer.ListTimeLogs(ctx, task.ID, alice.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(logs) != 0 {
			t.Fatalf("expected no logs, got %d", len(logs))
		}
	})

	t.Run("negative duration", func(t *testing.T) {
		_, err := f.timer.AddManualLog(ctx, ports.ManualLogRequest{TaskID: task.ID, Date: "2024-03-01", DurationMinutes: -5}, alice.ID)
		if !errors.Is(err, entities.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("stores midnight entry", func(t *testing.T) {
		id, err := f.timer.AddManualLog(ctx, ports.ManualLogRequest{TaskID: task.ID, Date: "2024-03-01", DurationMinutes: 45}, alice.ID)
		if err != nil {
			t.Fatalf("manual log: %v", err)
		}
		logs, err := f.timer.ListTimeLogs(ctx, task.ID, alice.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(logs) != 1 || logs[0].ID != id {
			t.Fatalf("unexpected logs: %+v", logs)
		}
		midnight := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		if !logs[0].StartTime.Equal(midnight) || logs[0].EndTime == nil || !logs[0].EndTime.Equal(midnight) {
			t.Fatalf("expected midnight start and end, got %+v", logs[0])
		}
		if logs[0].Minutes() != 45 {
			t.Fatalf("expected 45 minutes, got %d", logs[0].Minutes())
		}
	})

	t.Run("rejected while a timer runs", func(t *testing.T) {
		if _, err := f.timer.StartTimer(ctx, task.ID, alice.ID); err != nil {
			t.Fatalf("start: %v", err)
		}
		_, err := f.timer.AddManualLog(ctx, ports.ManualLogRequest{TaskID: task.ID, Date: "2024-03-02", DurationMinutes: 5}, alice.ID)
		if !errors.Is(err, entities.ErrTimerAlreadyRunning) {
			t.Fatalf("expected ErrTimerAlreadyRunning, got %v", err)
		}
	})
}
