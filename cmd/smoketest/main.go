package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/myrjola/burnplan/internal/e2etest"
	"github.com/myrjola/burnplan/internal/logging"
	"github.com/myrjola/burnplan/internal/ptr"
	"github.com/myrjola/burnplan/internal/testhelpers"
	"github.com/myrjola/burnplan/internal/workout"
)

// smokeUserID is reserved for smoke tests so that real users are never touched.
const smokeUserID = 999999

type horizon struct {
	Days []workout.DayPlan `json:"days"`
}

// TestHorizon stores a profile, regenerates the horizon and toggles the first exercise back and forth.
func TestHorizon(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	base := fmt.Sprintf("/api/users/%d", smokeUserID)
	profile := workout.UserProfile{
		WeightKg:            80,            //nolint:mnd // smoke profile.
		TargetWeightKg:      ptr.Ref(78.0), //nolint:mnd // smoke profile.
		TargetDurationWeeks: ptr.Ref(8),    //nolint:mnd // smoke profile.
		Goal:                workout.GoalLoseWeight,
		ActivityLevel:       workout.ActivityLight,
		SkillLevel:          nil,
		ExperienceScore:     0,
	}
	if err := client.DoJSON(ctx, http.MethodPut, base+"/profile", profile, nil); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	var h horizon
	if err := client.DoJSON(ctx, http.MethodPost, base+"/horizon/regenerate", nil, &h); err != nil {
		return fmt.Errorf("regenerate horizon: %w", err)
	}
	if len(h.Days) == 0 || len(h.Days[0].Facility.Exercises) == 0 {
		return errors.New("regenerated horizon has no exercises")
	}

	day := h.Days[0]
	path := fmt.Sprintf("%s/days/%d/%s/exercises/%s/completion", base, day.DayNumber, workout.SessionFacility,
		day.Facility.Exercises[0].InstanceID)
	for range 2 {
		if err := client.DoJSON(ctx, http.MethodPost, path, workout.CompletionUpdate{}, nil); err != nil {
			return fmt.Errorf("toggle completion: %w", err)
		}
	}
	if err := client.DoJSON(ctx, http.MethodGet, base+"/horizon", nil, &h); err != nil {
		return fmt.Errorf("load horizon: %w", err)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	client := e2etest.NewClient(url)
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err = TestHorizon(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing horizon", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
