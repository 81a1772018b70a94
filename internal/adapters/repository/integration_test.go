package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/infrastructure/database"
	"github.com/tasklog/core/internal/ports"
)

// openPostgres connects to DATABASE_URL and applies migrations. Tests write
// rows under fresh users only and never drop anything.
func openPostgres(t *testing.T, driver string) *Store {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	conn, err := sqlx.Connect(driver, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := &database.DB{DB: conn}
	t.Cleanup(func() { db.Close() })

	if _, err := db.MigrateUp(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db)
}

func TestPostgres_ConcurrentOpenLogs(t *testing.T) {
	for _, driver := range []string{"postgres", "pgx"} {
		t.Run(driver, func(t *testing.T) {
			s := openPostgres(t, driver)
			ctx := context.Background()

			u := mustUser(t, s, uuid.NewString()+"@example.com")
			task := mustTask(t, s, "race", u.ID, &u.ID)

			const workers = 8
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				ok, busy int
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := s.TimeLogs().CreateOpen(ctx, &entities.TimeLog{TaskID: task.ID, StartTime: t0, CreatedAt: t0})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						ok++
					case errors.Is(err, entities.ErrTimerAlreadyRunning):
						busy++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			if ok != 1 || busy != workers-1 {
				t.Fatalf("expected 1 success and %d conflicts, got %d and %d", workers-1, ok, busy)
			}
		})
	}
}

func TestPostgres_TopTasksForOwner(t *testing.T) {
	s := openPostgres(t, "postgres")
	ctx := context.Background()

	u := mustUser(t, s, uuid.NewString()+"@example.com")
	a := mustTask(t, s, "a", u.ID, &u.ID)
	b := mustTask(t, s, "b", u.ID, &u.ID)
	closedLog(t, s, a.ID, t0, 10)
	closedLog(t, s, b.ID, t0, 30)
	closedLog(t, s, b.ID, t0.Add(-48*time.Hour), 5)

	top, err := s.TimeLogs().TopTasksForOwner(ctx, u.ID, t0.Add(-24*time.Hour), t0.Add(time.Second), 10)
	if err != nil {
		t.Fatalf("TopTasksForOwner: %v", err)
	}
	want := []ports.TaskSummary{{ID: b.ID, Title: "b", TotalDuration: 30}, {ID: a.ID, Title: "a", TotalDuration: 10}}
	if len(top) != len(want) || top[0] != want[0] || top[1] != want[1] {
		t.Fatalf("unexpected top tasks %+v", top)
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	cache := NewRedisCacheRepository(client, "tasklog-test-"+uuid.NewString())

	var got int
	if err := cache.Get(ctx, "report:x:total", &got); !errors.Is(err, ports.ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	if err := cache.Set(ctx, "report:x:total", 42, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cache.Set(ctx, "report:x:top", []ports.TaskSummary{{ID: 1, Title: "t", TotalDuration: 3}}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cache.Get(ctx, "report:x:total", &got); err != nil || got != 42 {
		t.Fatalf("expected 42, got %d (%v)", got, err)
	}

	if err := cache.DeletePattern(ctx, "report:x:*"); err != nil {
		t.Fatalf("DeletePattern: %v", err)
	}
	var top []ports.TaskSummary
	if err := cache.Get(ctx, "report:x:top", &top); !errors.Is(err, ports.ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss after DeletePattern, got %v", err)
	}
}
