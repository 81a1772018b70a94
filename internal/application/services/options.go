package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/ports"
)

const (
	defaultTopN     = 20
	defaultCacheTTL = time.Minute
)

// Option configures optional collaborators shared by the services
type Option func(*options)

type options struct {
	now      func() time.Time
	notifier ports.Notifier
	cache    ports.CacheRepository
	cacheTTL time.Duration
	topN     int
}

func newOptions(opts []Option) options {
	o := options{
		now:      time.Now,
		cacheTTL: defaultCacheTTL,
		topN:     defaultTopN,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithNotifier sets the notifier used for owner notifications
func WithNotifier(n ports.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithCache enables the aggregation cache
func WithCache(c ports.CacheRepository, ttl time.Duration) Option {
	return func(o *options) {
		o.cache = c
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithTopN sets how many tasks a ranking returns when the caller asks for 0
func WithTopN(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.topN = n
		}
	}
}

func (o options) clock() time.Time {
	return o.now().UTC()
}

// loadTask fetches a task and applies the creator-or-owner rule, returning
// denied when the actor has no access.
func loadTask(ctx context.Context, repo ports.TaskRepository, taskID int64, actor uuid.UUID, denied error) (*entities.Task, error) {
	task, err := repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	if !task.IsAccessibleBy(actor) {
		return nil, denied
	}

	return task, nil
}

// notifyOwner sends a notification to the task owner. Failures are logged only.
func (o options) notifyOwner(ctx context.Context, log *logger.Logger, users ports.UserRepository, task *entities.Task, subject, message string) {
	if o.notifier == nil || task.OwnerID == nil {
		return
	}

	owner, err := users.GetByID(ctx, *task.OwnerID)
	if err != nil {
		log.Warnw("Notification skipped, owner lookup failed", "task_id", task.ID, "error", err)
		return
	}

	if err := o.notifier.Notify(ctx, []string{owner.Email}, subject, message); err != nil {
		log.Warnw("Notification failed", "task_id", task.ID, "subject", subject, "error", err)
	}
}

// reportKeyPrefix is also the key holding the owner's cache generation.
// Cached aggregates live under prefix:<generation>:..., so a value written by
// a reader that raced an invalidation lands under a generation nobody reads.
func reportKeyPrefix(owner uuid.UUID) string {
	return "report:" + owner.String()
}

// reportGeneration returns the owner's current cache generation, starting one
// when none is stored
func (o options) reportGeneration(ctx context.Context, owner uuid.UUID) (string, error) {
	var gen string
	err := o.cache.Get(ctx, reportKeyPrefix(owner), &gen)
	if err == nil {
		return gen, nil
	}
	if !errors.Is(err, ports.ErrCacheMiss) {
		return "", err
	}

	gen = uuid.NewString()
	if err := o.cache.Set(ctx, reportKeyPrefix(owner), gen, 0); err != nil {
		return "", err
	}
	return gen, nil
}

// invalidateReports moves every given owner to a fresh cache generation and
// drops the aggregates cached under older ones
func (o options) invalidateReports(ctx context.Context, log *logger.Logger, owners ...*uuid.UUID) {
	if o.cache == nil {
		return
	}

	for _, owner := range owners {
		if owner == nil {
			continue
		}
		prefix := reportKeyPrefix(*owner)
		if err := o.cache.Set(ctx, prefix, uuid.NewString(), 0); err != nil {
			log.Warnw("Report cache generation bump failed", "owner_id", owner.String(), "error", err)
		}
		if err := o.cache.DeletePattern(ctx, prefix+":*"); err != nil {
			log.Warnw("Report cache invalidation failed", "owner_id", owner.String(), "error", err)
		}
	}
}
