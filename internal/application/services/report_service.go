package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/infrastructure/metrics"
	"github.com/tasklog/core/internal/ports"
)

// ReportService answers time aggregation queries, optionally through a cache
type ReportService struct {
	store  ports.Store
	logger *logger.Logger
	opts   options
}

// NewReportService creates a new report service
func NewReportService(store ports.Store, log *logger.Logger, opts ...Option) *ReportService {
	return &ReportService{
		store:  store,
		logger: log.WithComponent("report"),
		opts:   newOptions(opts),
	}
}

// TotalDuration sums the minutes logged on a task. Running timers count as zero.
func (s *ReportService) TotalDuration(ctx context.Context, taskID int64) (int, error) {
	if _, err := s.store.Tasks().GetByID(ctx, taskID); err != nil {
		return 0, err
	}

	return s.store.TimeLogs().SumByTask(ctx, taskID)
}

// TimeLoggedInWindow sums the minutes logged on the actor's tasks with a
// start time inside the window
func (s *ReportService) TimeLoggedInWindow(ctx context.Context, actor uuid.UUID, window ports.TimeWindow) (int, error) {
	if err := window.Validate(); err != nil {
		return 0, err
	}

	key := fmt.Sprintf("total:%d:%d", window.Start.UnixNano(), window.End.UnixNano())
	return s.windowTotal(ctx, actor, window, key)
}

func (s *ReportService) windowTotal(ctx context.Context, actor uuid.UUID, window ports.TimeWindow, key string) (int, error) {
	var total int
	err := s.cached(ctx, actor, key, &total, func() error {
		var err error
		total, err = s.store.TimeLogs().SumForOwner(ctx, actor, window.Start, window.End)
		return err
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

// TopTasks ranks the actor's tasks by minutes logged inside the window,
// highest first with ties broken by task id. n=0 uses the configured default.
func (s *ReportService) TopTasks(ctx context.Context, actor uuid.UUID, window ports.TimeWindow, n int) ([]ports.TaskSummary, error) {
	if n < 0 {
		return nil, entities.NewValidationError("n", "must not be negative")
	}
	if n == 0 {
		n = s.opts.topN
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("top:%d:%d:%d", n, window.Start.UnixNano(), window.End.UnixNano())
	return s.topTasks(ctx, actor, window, n, key)
}

func (s *ReportService) topTasks(ctx context.Context, actor uuid.UUID, window ports.TimeWindow, n int, key string) ([]ports.TaskSummary, error) {
	var top []ports.TaskSummary
	err := s.cached(ctx, actor, key, &top, func() error {
		var err error
		top, err = s.store.TimeLogs().TopTasksForOwner(ctx, actor, window.Start, window.End, n)
		return err
	})
	if err != nil {
		return nil, err
	}
	if top == nil {
		top = []ports.TaskSummary{}
	}

	return top, nil
}

// TimeLoggedLastMonth is TimeLoggedInWindow over the month ending now. The
// cached value is keyed per actor rather than per window, so it can lag the
// sliding window start by up to the cache TTL.
func (s *ReportService) TimeLoggedLastMonth(ctx context.Context, actor uuid.UUID) (int, error) {
	return s.windowTotal(ctx, actor, ports.LastMonthWindow(s.opts.clock()), "total:last-month")
}

// TopTasksLastMonth is TopTasks over the month ending now with the default n
func (s *ReportService) TopTasksLastMonth(ctx context.Context, actor uuid.UUID) ([]ports.TaskSummary, error) {
	return s.topTasks(ctx, actor, ports.LastMonthWindow(s.opts.clock()), s.opts.topN, "top:last-month")
}

// cached fills dest from the actor's current cache generation or by running
// load, storing the result under that generation. Cache failures fall through
// to load.
func (s *ReportService) cached(ctx context.Context, actor uuid.UUID, name string, dest interface{}, load func() error) error {
	if s.opts.cache == nil {
		return load()
	}

	gen, err := s.opts.reportGeneration(ctx, actor)
	if err != nil {
		metrics.ReportCache.WithLabelValues("error").Inc()
		s.logger.Warnw("Report cache generation read failed", "owner_id", actor.String(), "error", err)
		return load()
	}

	key := reportKeyPrefix(actor) + ":" + gen + ":" + name
	err = s.opts.cache.Get(ctx, key, dest)
	switch {
	case err == nil:
		metrics.ReportCache.WithLabelValues("hit").Inc()
		return nil
	case errors.Is(err, ports.ErrCacheMiss):
		metrics.ReportCache.WithLabelValues("miss").Inc()
	default:
		metrics.ReportCache.WithLabelValues("error").Inc()
		s.logger.Warnw("Report cache read failed", "key", key, "error", err)
	}

	if err := load(); err != nil {
		return err
	}

	if err := s.opts.cache.Set(ctx, key, dest, s.opts.cacheTTL); err != nil {
		s.logger.Warnw("Report cache write failed", "key", key, "error", err)
	}

	return nil
}

var _ ports.ReportService = (*ReportService)(nil)
