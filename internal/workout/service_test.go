package workout_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/myrjola/burnplan/internal/contexthelpers"
	"github.com/myrjola/burnplan/internal/sqlite"
	"github.com/myrjola/burnplan/internal/testhelpers"
	"github.com/myrjola/burnplan/internal/workout"
)

type testEnv struct {
	db      *sqlite.Database
	catalog workout.Catalog
	t       *testing.T
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})
	return &testEnv{db: db, catalog: staticCatalog{facility: facilityPool(), home: homePool()}, t: t}
}

// service returns a fresh Service with an empty cache on the shared database.
func (e *testEnv) service() *workout.Service {
	e.t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(e.t))
	svc := workout.NewService(e.db, e.catalog, logger, workout.Config{
		Horizon:        workout.DefaultHorizonConfig(),
		WriteQueueSize: 16,
		NewRand:        func() *workout.Rand { return workout.NewRand(1) },
	})
	e.t.Cleanup(func() {
		if err := svc.Close(context.Background()); err != nil {
			e.t.Errorf("close service: %v", err)
		}
	})
	return svc
}

func userContext(t *testing.T, userID int) context.Context {
	t.Helper()
	return contexthelpers.WithUserID(t.Context(), userID)
}

func TestService_ProfileRequired(t *testing.T) {
	svc := newTestEnv(t).service()
	ctx := userContext(t, 1)

	if _, err := svc.ManageHorizon(ctx, date("2025-03-10")); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("ManageHorizon() without profile error = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetProfile(ctx); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("GetProfile() without profile error = %v, want ErrNotFound", err)
	}

	invalid := lossProfile()
	invalid.WeightKg = -1
	if err := svc.SaveProfile(ctx, invalid); !errors.Is(err, workout.ErrInvalidProfile) {
		t.Errorf("SaveProfile() error = %v, want ErrInvalidProfile", err)
	}

	if err := svc.SaveProfile(ctx, lossProfile()); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}
	plans, err := svc.ManageHorizon(ctx, date("2025-03-10"))
	if err != nil {
		t.Fatalf("ManageHorizon() after saving profile error = %v", err)
	}
	if len(plans) != 5 {
		t.Errorf("got %d plans, want 5", len(plans))
	}
}

func TestService_Profile(t *testing.T) {
	env := newTestEnv(t)
	ctx := userContext(t, 1)

	if err := env.service().SaveProfile(ctx, lossProfile()); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}
	updated := maintainProfile()
	if err := env.service().SaveProfile(ctx, updated); err != nil {
		t.Fatalf("second SaveProfile() error = %v", err)
	}

	got, err := env.service().GetProfile(ctx)
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if diff := cmp.Diff(updated, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestService_HorizonLifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := env.service()
	ctx := userContext(t, 1)

	if err := svc.SaveProfile(ctx, lossProfile()); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}

	plans, err := svc.ManageHorizon(ctx, date("2025-03-10"))
	if err != nil {
		t.Fatalf("ManageHorizon() error = %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, dayNumbers(plans)); diff != "" {
		t.Fatalf("day numbers mismatch (-want +got):\n%s", diff)
	}

	again, err := svc.ManageHorizon(ctx, date("2025-03-10"))
	if err != nil {
		t.Fatalf("second ManageHorizon() error = %v", err)
	}
	if diff := cmp.Diff(plans, again); diff != "" {
		t.Errorf("horizon changed without time passing (-first +second):\n%s", diff)
	}

	// Progress on day 1.
	first := plans[0].Facility.Exercises[0]
	day, err := svc.RecordCompletion(ctx, 1, workout.SessionFacility, first.InstanceID, workout.CompletionUpdate{})
	if err != nil {
		t.Fatalf("RecordCompletion() error = %v", err)
	}
	if day.Facility.Exercises[0].Status != workout.StatusComplete {
		t.Errorf("exercise status = %s", day.Facility.Exercises[0].Status)
	}
	if _, err = svc.RecordCompletion(ctx, 42, workout.SessionFacility, first.InstanceID,
		workout.CompletionUpdate{}); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("RecordCompletion() on unknown day error = %v, want ErrNotFound", err)
	}

	// Substitute on day 2.
	replacement, err := svc.FindExercise(ctx, workout.SessionFacility, "lower FACILITY 9")
	if err != nil {
		t.Fatalf("FindExercise() error = %v", err)
	}
	second := plans[1].Facility.Exercises[0]
	day, err = svc.SubstituteExercise(ctx, 2, workout.SessionFacility, second.InstanceID, replacement)
	if err != nil {
		t.Fatalf("SubstituteExercise() error = %v", err)
	}
	if got := day.Facility.Exercises[0]; got.Name != "Lower facility 9" || got.InstanceID != second.InstanceID {
		t.Errorf("substituted exercise = %s (%s)", got.Name, got.InstanceID)
	}
	if _, err = svc.SubstituteExercise(ctx, 1, workout.SessionFacility, first.InstanceID,
		replacement); !errors.Is(err, workout.ErrExerciseCompleted) {
		t.Errorf("substituting a completed exercise error = %v, want ErrExerciseCompleted", err)
	}

	if err = svc.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	cached, err := svc.ManageHorizon(ctx, date("2025-03-10"))
	if err != nil {
		t.Fatalf("ManageHorizon() error = %v", err)
	}

	// A new service reads the same state back from the store.
	reloaded, err := env.service().ManageHorizon(ctx, date("2025-03-10"))
	if err != nil {
		t.Fatalf("ManageHorizon() on fresh service error = %v", err)
	}
	if diff := cmp.Diff(cached, reloaded); diff != "" {
		t.Errorf("persisted horizon mismatch (-cached +reloaded):\n%s", diff)
	}

	// Three days later the first three days are archived and a new block continues the numbering.
	plans, err = svc.ManageHorizon(ctx, date("2025-03-13"))
	if err != nil {
		t.Fatalf("ManageHorizon() three days later error = %v", err)
	}
	if diff := cmp.Diff([]int{4, 5, 6, 7, 8, 9, 10}, dayNumbers(plans)); diff != "" {
		t.Errorf("day numbers mismatch (-want +got):\n%s", diff)
	}

	history, err := svc.History(ctx)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	var archived []int
	for _, record := range history {
		archived = append(archived, record.DayNumber)
	}
	if diff := cmp.Diff([]int{3, 2, 1}, archived); diff != "" {
		t.Errorf("history day numbers mismatch (-want +got):\n%s", diff)
	}
	if got := history[2].Snapshot.CompletedExerciseIDs; len(got) != 1 || got[0] != first.InstanceID {
		t.Errorf("archived day 1 completed ids = %v", got)
	}
	if want := math.Round(first.PredictedCalories*10) / 10; history[2].ActualCalories != want {
		t.Errorf("archived day 1 actual = %v, want %v", history[2].ActualCalories, want)
	}

	entries, err := svc.JobLog(ctx, 10)
	if err != nil {
		t.Fatalf("JobLog() error = %v", err)
	}
	var labels []string
	for _, entry := range entries {
		if entry.Job != "manage_horizon" || entry.Status != "success" {
			t.Errorf("job log entry = %+v", entry)
		}
		labels = append(labels, entry.Label)
	}
	want := []string{"archived 3, generated 5, days 6-10", "archived 0, generated 5, days 1-5"}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("job log labels mismatch (-want +got):\n%s", diff)
	}

	// Numbering survives a restart after everything was archived.
	plans, err = env.service().ManageHorizon(ctx, date("2025-04-01"))
	if err != nil {
		t.Fatalf("ManageHorizon() after a long break error = %v", err)
	}
	if diff := cmp.Diff([]int{11, 12, 13, 14, 15}, dayNumbers(plans)); diff != "" {
		t.Errorf("day numbers after a break mismatch (-want +got):\n%s", diff)
	}
}

func TestService_ManageHorizonUsesUTCDay(t *testing.T) {
	env := newTestEnv(t)
	svc := env.service()
	ctx := userContext(t, 1)

	if err := svc.SaveProfile(ctx, lossProfile()); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}
	if _, err := svc.ManageHorizon(ctx, date("2026-10-17")); err != nil {
		t.Fatalf("ManageHorizon() error = %v", err)
	}

	// 2026-10-17 21:30 UTC seen from a host three hours ahead.
	local := time.Date(2026, time.October, 18, 0, 30, 0, 0, time.FixedZone("UTC+3", 3*60*60))
	plans, err := svc.ManageHorizon(ctx, local)
	if err != nil {
		t.Fatalf("ManageHorizon() error = %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, dayNumbers(plans)); diff != "" {
		t.Errorf("day numbers mismatch (-want +got):\n%s", diff)
	}
	if got := plans[0].Date.Format(time.DateOnly); got != "2026-10-17" {
		t.Errorf("first day dated %s, want 2026-10-17", got)
	}

	first := plans[0].Facility.Exercises[0]
	if _, err = svc.RecordCompletion(ctx, 1, workout.SessionFacility, first.InstanceID,
		workout.CompletionUpdate{}); err != nil {
		t.Errorf("RecordCompletion() on today's day error = %v", err)
	}
}

func TestService_RegenerateFullHorizon(t *testing.T) {
	env := newTestEnv(t)
	svc := env.service()
	ctx := userContext(t, 7)

	if err := svc.SaveProfile(ctx, maintainProfile()); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}
	if _, err := svc.ManageHorizon(ctx, date("2025-03-10")); err != nil {
		t.Fatalf("ManageHorizon() error = %v", err)
	}

	plans, err := svc.RegenerateFullHorizon(ctx, date("2025-03-12"))
	if err != nil {
		t.Fatalf("RegenerateFullHorizon() error = %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, dayNumbers(plans)); diff != "" {
		t.Errorf("day numbers mismatch (-want +got):\n%s", diff)
	}
	if got := dates(plans)[0]; got != "2025-03-12" {
		t.Errorf("regenerated horizon starts %s", got)
	}

	if err = svc.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	reloaded, err := env.service().ManageHorizon(ctx, date("2025-03-12"))
	if err != nil {
		t.Fatalf("ManageHorizon() on fresh service error = %v", err)
	}
	if diff := cmp.Diff(plans, reloaded); diff != "" {
		t.Errorf("persisted horizon mismatch (-regenerated +reloaded):\n%s", diff)
	}

	history, err := svc.History(ctx)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Errorf("archived %d days, want 2", len(history))
	}
}

func TestService_ConcurrentManageHorizon(t *testing.T) {
	env := newTestEnv(t)
	svc := env.service()
	ctx := userContext(t, 3)
	if err := svc.SaveProfile(ctx, maintainProfile()); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}

	const callers = 8
	results := make([][]workout.DayPlan, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Go(func() {
			results[i], errs[i] = svc.ManageHorizon(ctx, date("2025-03-10"))
		})
	}
	wg.Wait()

	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if diff := cmp.Diff(results[0], results[i]); diff != "" {
			t.Errorf("caller %d saw a different horizon (-first +got):\n%s", i, diff)
		}
	}

	entries, err := svc.JobLog(ctx, 10)
	if err != nil {
		t.Fatalf("JobLog() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d generation runs, want 1", len(entries))
	}
}

func TestService_UserIsolation(t *testing.T) {
	env := newTestEnv(t)
	svc := env.service()
	alice, bob := userContext(t, 1), userContext(t, 2)

	for _, ctx := range []context.Context{alice, bob} {
		if err := svc.SaveProfile(ctx, maintainProfile()); err != nil {
			t.Fatalf("SaveProfile() error = %v", err)
		}
	}
	if _, err := svc.ManageHorizon(alice, date("2025-03-10")); err != nil {
		t.Fatalf("ManageHorizon() error = %v", err)
	}
	bobPlans, err := svc.ManageHorizon(bob, date("2025-03-20"))
	if err != nil {
		t.Fatalf("ManageHorizon() error = %v", err)
	}
	if got := dates(bobPlans)[0]; got != "2025-03-20" {
		t.Errorf("bob's horizon starts %s", got)
	}

	ids, err := svc.UserIDs(alice)
	if err != nil {
		t.Fatalf("UserIDs() error = %v", err)
	}
	if diff := cmp.Diff([]int{1, 2}, ids); diff != "" {
		t.Errorf("user ids mismatch (-want +got):\n%s", diff)
	}
}

var errCatalogDown = errors.New("catalog down")

type failingCatalog struct{}

func (failingCatalog) Pool(context.Context, workout.SessionKind) ([]workout.Exercise, error) {
	return nil, errCatalogDown
}

func TestService_CatalogFailure(t *testing.T) {
	env := newTestEnv(t)
	env.catalog = failingCatalog{}
	svc := env.service()
	ctx := userContext(t, 1)
	if err := svc.SaveProfile(ctx, maintainProfile()); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}
	if _, err := svc.ManageHorizon(ctx, date("2025-03-10")); !errors.Is(err, errCatalogDown) {
		t.Errorf("ManageHorizon() error = %v, want %v", err, errCatalogDown)
	}
	if _, err := svc.FindExercise(ctx, workout.SessionHome, "anything"); !errors.Is(err, errCatalogDown) {
		t.Errorf("FindExercise() error = %v, want %v", err, errCatalogDown)
	}
}
