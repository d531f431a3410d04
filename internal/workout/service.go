package workout

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/myrjola/burnplan/internal/contexthelpers"
	"github.com/myrjola/burnplan/internal/errors"
	"github.com/myrjola/burnplan/internal/sqlite"
)

// Catalog provides the normalized exercise pools.
type Catalog interface {
	Pool(ctx context.Context, kind SessionKind) ([]Exercise, error)
}

// Config tunes a Service.
type Config struct {
	Horizon HorizonConfig
	// WriteQueueSize is the number of buffered persistence operations.
	WriteQueueSize int
	// NewRand returns the random source of one generation run. Defaults to NewRandomRand.
	NewRand func() *Rand
}

func DefaultConfig() Config {
	return Config{
		Horizon:        DefaultHorizonConfig(),
		WriteQueueSize: 256, //nolint:mnd // default buffer.
		NewRand:        NewRandomRand,
	}
}

// userHorizon is the optimistic in-memory state of one user. It is the source of truth for reads once loaded;
// the store is updated asynchronously through the write queue.
type userHorizon struct {
	mu           sync.Mutex
	loaded       bool
	profile      UserProfile
	plans        []DayPlan
	lastArchived int
}

// Service orchestrates the rolling horizon of each user. The acting user is read from the context with
// contexthelpers.UserID.
type Service struct {
	repo    *repository
	catalog Catalog
	queue   *writeQueue
	logger  *slog.Logger
	cfg     Config

	mu       sync.Mutex
	horizons map[int]*userHorizon
	flights  singleflight.Group
}

// NewService creates a Service. Close must be called to drain pending writes.
func NewService(db *sqlite.Database, catalog Catalog, logger *slog.Logger, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.Horizon.Threshold <= 0 {
		cfg.Horizon.Threshold = defaults.Horizon.Threshold
	}
	if cfg.Horizon.BlockDays <= 0 {
		cfg.Horizon.BlockDays = defaults.Horizon.BlockDays
	}
	if cfg.WriteQueueSize <= 0 {
		cfg.WriteQueueSize = defaults.WriteQueueSize
	}
	if cfg.NewRand == nil {
		cfg.NewRand = defaults.NewRand
	}
	return &Service{
		repo:     newRepository(db, logger),
		catalog:  catalog,
		queue:    newWriteQueue(cfg.WriteQueueSize, logger),
		logger:   logger,
		cfg:      cfg,
		mu:       sync.Mutex{},
		horizons: make(map[int]*userHorizon),
		flights:  singleflight.Group{},
	}
}

// SaveProfile validates and stores the profile of the user in ctx. The write is synchronous because every other
// operation depends on the profile being present.
func (s *Service) SaveProfile(ctx context.Context, profile UserProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	h := s.horizon(ctx)
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := s.repo.profiles.Set(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	h.profile = profile
	return nil
}

// GetProfile returns the profile of the user in ctx.
func (s *Service) GetProfile(ctx context.Context) (UserProfile, error) {
	h := s.horizon(ctx)
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := s.load(ctx, h); err != nil {
		return UserProfile{}, err
	}
	return h.profile, nil
}

// ManageHorizon archives elapsed days and extends the horizon when it runs short. It is called on every horizon
// load. Concurrent calls for the same user and day share one run.
func (s *Service) ManageHorizon(ctx context.Context, today time.Time) ([]DayPlan, error) {
	today = civilDate(today)
	key := strconv.Itoa(contexthelpers.UserID(ctx)) + "/" + formatDate(today)
	v, err, _ := s.flights.Do(key, func() (any, error) {
		return s.run(ctx, jobManageHorizon, today, PlanHorizon)
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped in run.
	}
	plans, _ := v.([]DayPlan)
	return clonePlans(plans), nil
}

// RegenerateFullHorizon discards the active horizon and starts over at day one today.
func (s *Service) RegenerateFullHorizon(ctx context.Context, today time.Time) ([]DayPlan, error) {
	plans, err := s.run(ctx, jobRegenerateHorizon, today, PlanRegeneration)
	if err != nil {
		return nil, err
	}
	return clonePlans(plans), nil
}

type planner func(state HorizonState, today time.Time, cfg HorizonConfig, rnd *Rand) (HorizonChange, error)

func (s *Service) run(ctx context.Context, job string, today time.Time, plan planner) ([]DayPlan, error) {
	h := s.horizon(ctx)
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := s.load(ctx, h); err != nil {
		return nil, err
	}

	var facility, home []Exercise
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		facility, err = s.catalog.Pool(gctx, SessionFacility)
		return err
	})
	g.Go(func() error {
		var err error
		home, err = s.catalog.Pool(gctx, SessionHome)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	change, err := plan(HorizonState{
		Profile:               h.profile,
		Plans:                 h.plans,
		LastArchivedDayNumber: h.lastArchived,
		FacilityPool:          facility,
		HomePool:              home,
	}, today, s.cfg.Horizon, s.cfg.NewRand())
	if err != nil {
		s.queue.enqueue(ctx, job, func(ctx context.Context) error {
			return s.repo.jobLogs.insert(ctx, s.repo.db.ReadWrite,
				JobLogEntry{Job: job, Status: jobStatusFailure, Label: err.Error(), CreatedAt: time.Time{}})
		})
		return nil, fmt.Errorf("%s: %w", strings.ReplaceAll(job, "_", " "), err)
	}

	h.plans = change.Active
	if len(change.Archived) > 0 {
		h.lastArchived = change.Archived[len(change.Archived)-1].DayNumber
	}

	if len(change.Archived) > 0 || len(change.Removed) > 0 || len(change.Generated) > 0 {
		label := change.Label()
		s.logger.LogAttrs(ctx, slog.LevelInfo, "updated horizon",
			slog.String("job", job),
			slog.Int("archived", len(change.Archived)),
			slog.Int("generated", len(change.Generated)),
			slog.Int("active", len(change.Active)),
			slog.String("label", label))
		entry := JobLogEntry{Job: job, Status: jobStatusSuccess, Label: label, CreatedAt: time.Time{}}
		s.queue.enqueue(ctx, job, func(ctx context.Context) error {
			return s.repo.persistChange(ctx, change, entry)
		})
	}
	return clonePlans(h.plans), nil
}

// RecordCompletion records progress on one exercise and returns the updated day.
func (s *Service) RecordCompletion(
	ctx context.Context,
	dayNumber int,
	kind SessionKind,
	instanceID string,
	update CompletionUpdate,
) (DayPlan, error) {
	return s.updatePlan(ctx, "record completion", dayNumber, func(plan DayPlan, profile UserProfile) (DayPlan, error) {
		return RecordCompletion(plan, kind, instanceID, update, profile.WeightKg)
	})
}

// SubstituteExercise replaces one exercise of a day with replacement at the same duration.
func (s *Service) SubstituteExercise(
	ctx context.Context,
	dayNumber int,
	kind SessionKind,
	instanceID string,
	replacement Exercise,
) (DayPlan, error) {
	return s.updatePlan(ctx, "substitute exercise", dayNumber, func(plan DayPlan, profile UserProfile) (DayPlan, error) {
		return SubstituteExercise(plan, kind, instanceID, replacement, profile.WeightKg)
	})
}

func (s *Service) updatePlan(
	ctx context.Context,
	label string,
	dayNumber int,
	fn func(plan DayPlan, profile UserProfile) (DayPlan, error),
) (DayPlan, error) {
	h := s.horizon(ctx)
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := s.load(ctx, h); err != nil {
		return DayPlan{}, err
	}
	i := -1
	for j, plan := range h.plans {
		if plan.DayNumber == dayNumber {
			i = j
			break
		}
	}
	if i < 0 {
		return DayPlan{}, fmt.Errorf("%s: day %d: %w", label, dayNumber, ErrNotFound)
	}

	updated, err := fn(h.plans[i], h.profile)
	if err != nil {
		return DayPlan{}, fmt.Errorf("%s: %w", label, err)
	}
	h.plans[i] = updated

	saved := updated.Clone()
	s.queue.enqueue(ctx, label, func(ctx context.Context) error {
		return s.repo.plans.save(ctx, s.repo.db.ReadWrite, saved)
	})
	return updated.Clone(), nil
}

// FindExercise looks up a catalog exercise of the session kind by name, ignoring case.
func (s *Service) FindExercise(ctx context.Context, kind SessionKind, name string) (Exercise, error) {
	pool, err := s.catalog.Pool(ctx, kind)
	if err != nil {
		return Exercise{}, fmt.Errorf("load %s catalog: %w", kind, err)
	}
	for _, ex := range pool {
		if strings.EqualFold(ex.Name, name) {
			return ex, nil
		}
	}
	return Exercise{}, fmt.Errorf("exercise %q in %s catalog: %w", name, kind, ErrNotFound)
}

// History lists the archived days of the user in ctx, newest first. Pending writes are flushed first.
func (s *Service) History(ctx context.Context) ([]HistoryRecord, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	records, err := s.repo.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}

// JobLog lists the latest horizon runs of the user in ctx, newest first.
func (s *Service) JobLog(ctx context.Context, limit int) ([]JobLogEntry, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	entries, err := s.repo.jobLogs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list job log: %w", err)
	}
	return entries, nil
}

// UserIDs lists every user with a profile.
func (s *Service) UserIDs(ctx context.Context) ([]int, error) {
	ids, err := s.repo.profiles.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

// Flush waits until every write issued so far has reached the store.
func (s *Service) Flush(ctx context.Context) error {
	return s.queue.flush(ctx)
}

// Close drains pending writes and stops the write worker.
func (s *Service) Close(ctx context.Context) error {
	return s.queue.close(ctx)
}

func (s *Service) horizon(ctx context.Context) *userHorizon {
	userID := contexthelpers.UserID(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.horizons[userID]
	if !ok {
		h = &userHorizon{mu: sync.Mutex{}, loaded: false, profile: UserProfile{}, plans: nil, lastArchived: 0}
		s.horizons[userID] = h
	}
	return h
}

// load fills h from the store on first use. The caller holds h.mu.
func (s *Service) load(ctx context.Context, h *userHorizon) error {
	if h.loaded {
		return nil
	}
	// Writes for this user may still be queued from before a cache reset.
	if err := s.Flush(ctx); err != nil {
		return err
	}

	var (
		profile      UserProfile
		plans        []DayPlan
		lastArchived int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if profile, err = s.repo.profiles.Get(gctx); err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if plans, err = s.repo.plans.List(gctx); err != nil {
			return fmt.Errorf("list plans: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if lastArchived, err = s.repo.history.LastDayNumber(gctx); err != nil {
			return fmt.Errorf("last archived day: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "could not load horizon", errors.SlogError(err))
		return fmt.Errorf("load horizon: %w", err)
	}

	h.profile = profile
	h.plans = plans
	h.lastArchived = lastArchived
	h.loaded = true
	return nil
}

func clonePlans(plans []DayPlan) []DayPlan {
	cloned := make([]DayPlan, len(plans))
	for i, plan := range plans {
		cloned[i] = plan.Clone()
	}
	return cloned
}
