package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rsswatch/domain"
	"rsswatch/internal/metrics"
)

const (
	DefaultInterval   = 3 * time.Hour
	DefaultMaxRetries = 3
	DefaultRetryDelay = 30 * time.Second
	DefaultWorkers    = 3
)

// FeedRefresher refreshes a single feed and returns it with updated health.
type FeedRefresher interface {
	Import(ctx context.Context, f domain.Feed) (domain.Feed, error)
}

// Hooks are optional callbacks fired by the scheduler. They run on scheduler
// goroutines and must not call Stop.
type Hooks struct {
	OnFeedRefreshed   func(feedID string, ok bool, f *domain.Feed)
	OnSchedulerError  func(err error)
	OnSchedulerStatus func(running bool)
}

// Scheduler refreshes every tracked feed on a recurring schedule.
type Scheduler struct {
	repo      domain.FeedRepository
	refresher FeedRefresher
	hooks     Hooks
	log       *zap.Logger
	now       func() time.Time

	mu          sync.Mutex
	cfg         domain.SchedulerConfig
	schedule    cron.Schedule
	feeds       []domain.Feed
	running     bool
	refreshing  bool
	lastRefresh time.Time
	cancel      context.CancelFunc
	reset       chan struct{}
	wg          sync.WaitGroup

	// manual cycle started by TriggerRefresh, if any
	manualCancel context.CancelFunc
	manualDone   chan struct{}
}

// NewScheduler validates cfg and fills zero fields with defaults. repo may be
// nil, in which case only feeds passed to UpdateFeeds are refreshed.
func NewScheduler(repo domain.FeedRepository, refresher FeedRefresher, cfg domain.SchedulerConfig, hooks Hooks, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	merged, schedule, err := mergeConfig(domain.SchedulerConfig{
		Interval:   DefaultInterval,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Workers:    DefaultWorkers,
	}, cfg)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		repo:      repo,
		refresher: refresher,
		hooks:     hooks,
		log:       log,
		now:       time.Now,
		cfg:       merged,
		schedule:  schedule,
	}, nil
}

// mergeConfig overlays the non-zero fields of upd onto cur.
func mergeConfig(cur, upd domain.SchedulerConfig) (domain.SchedulerConfig, cron.Schedule, error) {
	if upd.Interval < 0 || upd.MaxRetries < 0 || upd.RetryDelay < 0 || upd.Workers < 0 {
		return cur, nil, errors.New("scheduler config values must not be negative")
	}
	if upd.Interval > 0 {
		cur.Interval = upd.Interval
	}
	if upd.Schedule != "" {
		cur.Schedule = upd.Schedule
	}
	if upd.MaxRetries > 0 {
		cur.MaxRetries = upd.MaxRetries
	}
	if upd.RetryDelay > 0 {
		cur.RetryDelay = upd.RetryDelay
	}
	if upd.Workers > 0 {
		cur.Workers = upd.Workers
	}
	schedule, err := buildSchedule(cur)
	if err != nil {
		return cur, nil, err
	}
	return cur, schedule, nil
}

func buildSchedule(cfg domain.SchedulerConfig) (cron.Schedule, error) {
	if cfg.Schedule == "" {
		return every(cfg.Interval), nil
	}
	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", cfg.Schedule, err)
	}
	return schedule, nil
}

// every is a fixed-delay schedule. Unlike cron.Every it keeps sub-second
// precision.
type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// UpdateFeeds replaces the cached feed list.
func (s *Scheduler) UpdateFeeds(feeds []domain.Feed) {
	s.mu.Lock()
	s.feeds = append([]domain.Feed(nil), feeds...)
	s.mu.Unlock()
	s.log.Info("scheduler feeds updated", zap.Int("feeds", len(feeds)))
}

// Start refreshes all feeds immediately and then on every tick of the
// schedule until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.reset = make(chan struct{})
	s.running = true
	s.wg.Add(1)
	cfg := s.cfg
	s.mu.Unlock()

	metrics.SetRunning(true)
	s.fireStatus(true)
	s.log.Info("scheduler started", zap.Duration("interval", cfg.Interval), zap.String("schedule", cfg.Schedule), zap.Int("workers", cfg.Workers))

	go s.loop(runCtx)
	return nil
}

// Stop cancels in-flight refreshes and retry waits, manual cycles included,
// and waits for them and the loop to exit. Status hooks only fire when the
// timer was running.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	cancel := s.cancel
	manualCancel, manualDone := s.manualCancel, s.manualDone
	s.mu.Unlock()

	if manualCancel != nil {
		manualCancel()
		<-manualDone
	}
	if !wasRunning {
		return nil
	}

	cancel()
	s.wg.Wait()

	metrics.SetRunning(false)
	s.fireStatus(false)
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	s.runCycle(ctx)
	for {
		s.mu.Lock()
		next := s.nextLocked()
		reset := s.reset
		s.mu.Unlock()

		wait := next.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-reset:
			timer.Stop()
			continue
		case <-timer.C:
		}
		s.runCycle(ctx)
	}
}

func (s *Scheduler) nextLocked() time.Time {
	base := s.lastRefresh
	if base.IsZero() {
		base = s.now()
	}
	return s.schedule.Next(base)
}

func (s *Scheduler) runCycle(ctx context.Context) {
	err := s.RefreshAll(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRefreshInProgress):
		s.log.Debug("skipping scheduled refresh, a cycle is still running")
	default:
		s.fireError(fmt.Errorf("failed to complete refresh cycle: %w", err))
	}
}

// RefreshAll refreshes every tracked feed once, running at most Workers
// refreshes at a time. A failing feed never stops the others. It returns
// ErrRefreshInProgress if another cycle is running.
func (s *Scheduler) RefreshAll(ctx context.Context) error {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return domain.ErrRefreshInProgress
	}
	s.refreshing = true
	cfg := s.cfg
	s.mu.Unlock()

	defer s.release()
	s.refresh(ctx, cfg)
	return nil
}

// TriggerRefresh reserves a cycle and runs it in the background. It returns
// ErrRefreshInProgress at once if another cycle holds the reservation. The
// returned channel is closed when the cycle ends. Stop cancels it.
func (s *Scheduler) TriggerRefresh(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return nil, domain.ErrRefreshInProgress
	}
	s.refreshing = true
	cfg := s.cfg
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.manualCancel, s.manualDone = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		s.refresh(runCtx, cfg)

		s.mu.Lock()
		s.manualCancel, s.manualDone = nil, nil
		s.refreshing = false
		s.mu.Unlock()
	}()
	return done, nil
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.refreshing = false
	s.mu.Unlock()
}

func (s *Scheduler) refresh(ctx context.Context, cfg domain.SchedulerConfig) {
	feeds := s.loadFeeds(ctx)
	if len(feeds) == 0 {
		s.log.Info("no feeds to refresh")
		return
	}

	start := s.now()
	began := time.Now()
	s.mu.Lock()
	s.lastRefresh = start
	s.mu.Unlock()
	metrics.RefreshCycles.Inc()
	s.log.Info("refreshing feeds", zap.Int("feeds", len(feeds)), zap.Int("workers", cfg.Workers))

	refreshed := make([]domain.Feed, len(feeds))
	g := new(errgroup.Group)
	g.SetLimit(cfg.Workers)
	for i, f := range feeds {
		g.Go(func() error {
			refreshed[i] = s.refreshWithRetry(ctx, f, cfg)
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	s.feeds = refreshed
	s.mu.Unlock()

	metrics.ObserveHealth(refreshed)
	took := time.Since(began)
	metrics.RefreshCycleDuration.Observe(took.Seconds())
	s.log.Info("completed refresh cycle", zap.Time("started", start), zap.Duration("took", took))
}

// loadFeeds reloads active feeds from the repository, falling back to the
// cached list when that fails.
func (s *Scheduler) loadFeeds(ctx context.Context) []domain.Feed {
	if s.repo != nil {
		all, err := s.repo.ListFeeds(ctx, 0)
		if err == nil {
			active := make([]domain.Feed, 0, len(all))
			for _, f := range all {
				if f.IsActive {
					active = append(active, f)
				}
			}
			s.mu.Lock()
			s.feeds = active
			s.mu.Unlock()
			return append([]domain.Feed(nil), active...)
		}
		s.fireError(fmt.Errorf("reload feeds: %w", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Feed(nil), s.feeds...)
}

func (s *Scheduler) refreshWithRetry(ctx context.Context, f domain.Feed, cfg domain.SchedulerConfig) domain.Feed {
	log := s.log.With(zap.String("feed", f.Name), zap.String("url", f.URL))
	failed := f
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return f
		}
		log.Debug("refreshing feed", zap.Int("attempt", attempt), zap.Int("max", cfg.MaxRetries))

		updated, err := s.refresher.Import(ctx, f)
		if err == nil {
			s.save(ctx, updated, log)
			metrics.FeedRefreshes.WithLabelValues("success").Inc()
			s.fireRefreshed(f.ID, true, &updated)
			return updated
		}
		failed, lastErr = updated, err
		log.Warn("feed refresh attempt failed", zap.Int("attempt", attempt), zap.Int("max", cfg.MaxRetries), zap.Error(err))

		if attempt < cfg.MaxRetries && !sleepCtx(ctx, cfg.RetryDelay) {
			return f
		}
	}
	if ctx.Err() != nil {
		return f
	}

	log.Error("feed refresh failed", zap.Int("attempts", cfg.MaxRetries), zap.Error(lastErr))
	s.save(ctx, failed, log)
	metrics.FeedRefreshes.WithLabelValues("failure").Inc()
	s.fireRefreshed(f.ID, false, nil)
	return failed
}

func (s *Scheduler) save(ctx context.Context, f domain.Feed, log *zap.Logger) {
	if s.repo == nil {
		return
	}
	if err := s.repo.UpdateFeed(ctx, f); err != nil {
		log.Warn("failed to save feed", zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// UpdateConfig applies the non-zero fields of cfg. A schedule change re-arms
// the timer of a running scheduler.
func (s *Scheduler) UpdateConfig(cfg domain.SchedulerConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged, schedule, err := mergeConfig(s.cfg, cfg)
	if err != nil {
		return err
	}
	rearm := merged.Interval != s.cfg.Interval || merged.Schedule != s.cfg.Schedule
	s.cfg, s.schedule = merged, schedule
	if rearm {
		s.rearmLocked()
	}
	return nil
}

// SetInterval switches to a fixed interval, dropping any cron schedule.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Interval = d
	s.cfg.Schedule = ""
	s.schedule = every(d)
	s.rearmLocked()
	s.log.Info("refresh interval changed", zap.Duration("interval", d))
}

func (s *Scheduler) rearmLocked() {
	if !s.running {
		return
	}
	close(s.reset)
	s.reset = make(chan struct{})
}

// Resize sets the refresh concurrency used from the next cycle on.
func (s *Scheduler) Resize(workers int) error {
	if workers <= 0 {
		return errors.New("workers must be > 0")
	}
	s.mu.Lock()
	s.cfg.Workers = workers
	s.mu.Unlock()
	s.log.Info("refresh workers changed", zap.Int("workers", workers))
	return nil
}

func (s *Scheduler) CurrentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Interval
}

func (s *Scheduler) CurrentWorkers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Workers
}

func (s *Scheduler) Config() domain.SchedulerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// NeedsRefresh reports whether no refresh has run yet or the next scheduled
// one is due.
func (s *Scheduler) NeedsRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRefresh.IsZero() {
		return true
	}
	return !s.now().Before(s.schedule.Next(s.lastRefresh))
}

func (s *Scheduler) Status() domain.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := domain.SchedulerStatus{
		Running:    s.running,
		Refreshing: s.refreshing,
		FeedCount:  len(s.feeds),
		Config:     s.cfg,
	}
	if !s.lastRefresh.IsZero() {
		last := s.lastRefresh
		st.LastRefresh = &last
		if s.running {
			next := s.schedule.Next(last)
			st.NextRefresh = &next
		}
	}
	return st
}

func (s *Scheduler) fireRefreshed(id string, ok bool, f *domain.Feed) {
	if s.hooks.OnFeedRefreshed != nil {
		s.hooks.OnFeedRefreshed(id, ok, f)
	}
}

func (s *Scheduler) fireError(err error) {
	s.log.Error("scheduler error", zap.Error(err))
	if s.hooks.OnSchedulerError != nil {
		s.hooks.OnSchedulerError(err)
	}
}

func (s *Scheduler) fireStatus(running bool) {
	if s.hooks.OnSchedulerStatus != nil {
		s.hooks.OnSchedulerStatus(running)
	}
}

var _ domain.Scheduler = (*Scheduler)(nil)
