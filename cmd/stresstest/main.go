package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/myrjola/burnplan/internal/e2etest"
	"github.com/myrjola/burnplan/internal/logging"
	"github.com/myrjola/burnplan/internal/ptr"
	"github.com/myrjola/burnplan/internal/testhelpers"
	"github.com/myrjola/burnplan/internal/workout"
)

const (
	scenarioTimeout         = 30 * time.Second
	maxConcurrentOperations = 20
	numUsers                = 50
	firstUserID             = 900000
	simulatedDays           = 21
	baseWeightKg            = 60.0
	weightRangeKg           = 40
	successRateThreshold    = 95.0
	expectedArgsCount       = 2
	percentageMultiplier    = 100
)

type horizon struct {
	Days []workout.DayPlan `json:"days"`
}

type history struct {
	Days []workout.HistoryRecord `json:"days"`
}

// RollingScenario walks one user through simulatedDays consecutive days. Each day the horizon is loaded and every
// facility exercise of the day is completed, so every day but the last ends up archived as completed.
func RollingScenario(ctx context.Context, client *e2etest.Client, userID int, logger *slog.Logger) error {
	base := fmt.Sprintf("/api/users/%d", userID)
	profile := workout.UserProfile{
		WeightKg:            baseWeightKg + float64(userID%weightRangeKg),
		TargetWeightKg:      ptr.Ref(baseWeightKg),
		TargetDurationWeeks: ptr.Ref(12), //nolint:mnd // three months.
		Goal:                workout.GoalLoseWeight,
		ActivityLevel:       workout.ActivityModerate,
		SkillLevel:          nil,
		ExperienceScore:     userID % 10, //nolint:mnd // spread skill levels.
	}
	if err := client.DoJSON(ctx, http.MethodPut, base+"/profile", profile, nil); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	start := time.Now().UTC().AddDate(0, 0, -simulatedDays)
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	var h horizon
	if err := client.DoJSON(ctx, http.MethodPost, base+"/horizon/regenerate?today="+start.Format("2006-01-02"),
		nil, &h); err != nil {
		return fmt.Errorf("regenerate horizon: %w", err)
	}

	for d := range simulatedDays {
		today := start.AddDate(0, 0, d)
		if err := client.DoJSON(ctx, http.MethodGet, base+"/horizon?today="+today.Format("2006-01-02"),
			nil, &h); err != nil {
			return fmt.Errorf("load horizon on %s: %w", today.Format("2006-01-02"), err)
		}
		if len(h.Days) == 0 || !h.Days[0].Date.Equal(today) {
			return fmt.Errorf("horizon on %s does not start today", today.Format("2006-01-02"))
		}
		day := h.Days[0]
		for _, ex := range day.Facility.Exercises {
			path := fmt.Sprintf("%s/days/%d/%s/exercises/%s/completion", base, day.DayNumber,
				workout.SessionFacility, ex.InstanceID)
			if err := client.DoJSON(ctx, http.MethodPost, path, workout.CompletionUpdate{}, nil); err != nil {
				return fmt.Errorf("complete %s: %w", ex.Name, err)
			}
		}
	}

	var archived history
	if err := client.DoJSON(ctx, http.MethodGet, base+"/history", nil, &archived); err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	completed := 0
	for _, record := range archived.Days {
		if record.Completed {
			completed++
		}
	}
	if completed < simulatedDays-1 {
		return fmt.Errorf("got %d completed days in history, want at least %d", completed, simulatedDays-1)
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "Rolling scenario completed",
		slog.Int("user_id", userID), slog.Int("archived_days", len(archived.Days)))
	return nil
}

// RunLoadTest runs RollingScenario for every user concurrently.
func RunLoadTest(ctx context.Context, client *e2etest.Client, logger *slog.Logger) error {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_users", numUsers))

	var successCount, failureCount atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for i := range numUsers {
		userID := firstUserID + i
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			if err := RollingScenario(scenarioCtx, client, userID, logger); err != nil {
				failureCount.Add(1)
				// Log individual failures but don't stop the entire test
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.Int("user_id", userID),
					slog.Any("error", err))
				return nil
			}

			successCount.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(numUsers) * percentageMultiplier

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))

	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}
	client := e2etest.NewClient(url)
	if err := client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}

	if err := RunLoadTest(ctx, client, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)),
		slog.Int("users_tested", numUsers))
}
