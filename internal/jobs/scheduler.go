// Package jobs runs periodic maintenance: the daily horizon sweep over every user and database optimization.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"

	"github.com/myrjola/burnplan/internal/contexthelpers"
	"github.com/myrjola/burnplan/internal/errors"
	"github.com/myrjola/burnplan/internal/workout"
)

// HorizonManager is the part of workout.Service the sweep needs.
type HorizonManager interface {
	UserIDs(ctx context.Context) ([]int, error)
	ManageHorizon(ctx context.Context, today time.Time) ([]workout.DayPlan, error)
}

type Optimizer interface {
	Optimize(ctx context.Context) error
}

type Config struct {
	// SweepSchedule is a cron spec, e.g. "@daily" or "0 5 0 * * *".
	SweepSchedule    string
	OptimizeSchedule string
}

// Scheduler owns the cron runner. Jobs run with a context that is cancelled by Stop.
type Scheduler struct {
	cron      *cron.Cron
	horizons  HorizonManager
	optimizer Optimizer
	logger    *slog.Logger
	now       func() time.Time

	ctx    context.Context //nolint:containedctx // cancelled when the scheduler stops.
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// New registers the jobs. Call Start to run them.
func New(
	ctx context.Context,
	cfg Config,
	horizons HorizonManager,
	optimizer Optimizer,
	logger *slog.Logger,
) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Scheduler{
		cron:      cron.New(),
		horizons:  horizons,
		optimizer: optimizer,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		ctx:       ctx,
		cancel:    cancel,
		mu:        sync.Mutex{},
		stopped:   false,
		wg:        sync.WaitGroup{},
	}
	if err := s.cron.AddFunc(cfg.SweepSchedule, s.track(s.runSweep)); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule horizon sweep %q: %w", cfg.SweepSchedule, err)
	}
	if err := s.cron.AddFunc(cfg.OptimizeSchedule, s.track(s.runOptimize)); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule optimize %q: %w", cfg.OptimizeSchedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.LogAttrs(s.ctx, slog.LevelInfo, "started job scheduler")
}

// Stop halts the schedule, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cron.Stop()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) track(job func(ctx context.Context)) func() {
	return func() {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()
		defer s.wg.Done()
		job(s.ctx)
	}
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if _, err := Sweep(ctx, s.horizons, s.now(), s.logger); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "horizon sweep failed", errors.SlogError(err))
	}
}

func (s *Scheduler) runOptimize(ctx context.Context) {
	if err := s.optimizer.Optimize(ctx); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "database optimize failed", errors.SlogError(err))
	}
}

// SweepResult counts the users a sweep visited.
type SweepResult struct {
	Users  int
	Failed int
}

// Sweep runs ManageHorizon for every user so that elapsed days are archived even when nobody opens the app.
// A failure for one user is logged and does not stop the sweep. Days are UTC calendar days, the same as the API's.
func Sweep(ctx context.Context, horizons HorizonManager, today time.Time, logger *slog.Logger) (SweepResult, error) {
	start := time.Now()
	today = today.UTC()
	ids, err := horizons.UserIDs(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list users: %w", err)
	}

	var result SweepResult
	for _, id := range ids {
		if err = ctx.Err(); err != nil {
			return result, fmt.Errorf("sweep interrupted: %w", err)
		}
		userCtx := contexthelpers.WithUserID(ctx, id)
		result.Users++
		if _, err = horizons.ManageHorizon(userCtx, today); err != nil {
			result.Failed++
			logger.LogAttrs(userCtx, slog.LevelWarn, "manage horizon failed", errors.SlogError(err))
		}
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "swept horizons",
		slog.Int("users", result.Users),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}
