package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tasklog/core/internal/adapters/repository"
	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/infrastructure/database/dbtest"
	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type notification struct {
	recipients []string
	subject    string
	message    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, recipients []string, subject, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{recipients: recipients, subject: subject, message: message})
	return nil
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return ports.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *memoryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

type fixture struct {
	store    *repository.Store
	clock    *fakeClock
	notifier *recordingNotifier
	cache    *memoryCache

	timer    *TimerService
	tasks    *TaskService
	reports  *ReportService
	comments *CommentService
	users    *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    repository.NewStore(dbtest.New(t)),
		clock:    &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
		notifier: &recordingNotifier{},
		cache:    newMemoryCache(),
	}

	log := logger.NewNop()
	opts := []Option{
		WithClock(f.clock.Now),
		WithNotifier(f.notifier),
		WithCache(f.cache, time.Minute),
	}

	f.timer = NewTimerService(f.store, log, opts...)
	f.tasks = NewTaskService(f.store, log, opts...)
	f.reports = NewReportService(f.store, log, opts...)
	f.comments = NewCommentService(f.store, log, opts...)
	f.users = NewUserService(f.store.Users(), log, opts...)

	return f
}

func (f *fixture) user(t *testing.T, name string) *entities.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), ports.CreateUserRequest{
		Name:  name,
		Email: name + "@example.com",
	})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func (f *fixture) task(t *testing.T, title string, actor uuid.UUID) *entities.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), ports.CreateTaskRequest{Title: title}, actor)
	if err != nil {
		t.Fatalf("create task %s: %v", title, err)
	}
	return task
}

func (f *fixture) manual(t *testing.T, taskID int64, minutes int, actor uuid.UUID) {
	t.Helper()
	_, err := f.timer.AddManualLog(context.Background(), ports.ManualLogRequest{
		TaskID:          taskID,
		Date:            f.clock.Now().Format(ManualLogDateLayout),
		DurationMinutes: minutes,
	}, actor)
	if err != nil {
		t.Fatalf("manual log: %v", err)
	}
}

// interleavedStore runs a hook right after the first task read or owner sum
// completes, letting a test slip another request between a service's read
// and its write.
type interleavedStore struct {
	*repository.Store
	afterGet func()
	afterSum func()
}

func (s *interleavedStore) Tasks() ports.TaskRepository {
	return &hookedTasks{TaskRepository: s.Store.Tasks(), hook: &s.afterGet}
}

func (s *interleavedStore) TimeLogs() ports.TimeLogRepository {
	return &hookedTimeLogs{TimeLogRepository: s.Store.TimeLogs(), hook: &s.afterSum}
}

func runOnce(hook *func()) {
	if h := *hook; h != nil {
		*hook = nil
		h()
	}
}

type hookedTasks struct {
	ports.TaskRepository
	hook *func()
}

func (r *hookedTasks) GetByID(ctx context.Context, id int64) (*entities.Task, error) {
	task, err := r.TaskRepository.GetByID(ctx, id)
	runOnce(r.hook)
	return task, err
}

type hookedTimeLogs struct {
	ports.TimeLogRepository
	hook *func()
}

func (r *hookedTimeLogs) SumForOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (int, error) {
	total, err := r.TimeLogRepository.SumForOwner(ctx, ownerID, from, to)
	runOnce(r.hook)
	return total, err
}
