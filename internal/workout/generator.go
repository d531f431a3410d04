package workout

import (
	"fmt"
	"time"
)

// rotation is the fixed five day focus cycle. It is independent of the calendar weekday.
//
//nolint:gochecknoglobals // read-only lookup table.
var rotation = [...]Focus{FocusUpper, FocusLower, FocusCore, FocusCardio, FocusRestLight}

// FocusForDay returns the focus of a one-based day number.
func FocusForDay(dayNumber int) Focus {
	i := (dayNumber - 1) % len(rotation)
	if i < 0 {
		i += len(rotation)
	}
	return rotation[i]
}

// BlockParams describes one block of consecutive days to generate.
type BlockParams struct {
	Profile        UserProfile
	FacilityPool   []Exercise
	HomePool       []Exercise
	StartDate      time.Time
	StartDayNumber int
	Days           int
	// DaysRemaining in the overall program, used by the projection mode of DailyTarget.
	DaysRemaining int
}

// GenerateBlock creates Days day plans numbered from StartDayNumber on consecutive dates from StartDate.
func GenerateBlock(params BlockParams, rnd *Rand) ([]DayPlan, error) {
	if err := params.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("validate profile: %w", err)
	}
	if params.StartDayNumber < 1 {
		return nil, fmt.Errorf("start day number %d must be positive", params.StartDayNumber) //nolint:err113 // caller bug.
	}

	target := DailyTarget(params.Profile, params.DaysRemaining)
	skill := params.Profile.Skill()
	startDate := civilDate(params.StartDate)

	plans := make([]DayPlan, 0, max(params.Days, 0))
	for i := range params.Days {
		dayNumber := params.StartDayNumber + i
		focus := FocusForDay(dayNumber)

		facility := SelectSession(params.FacilityPool, focus, target, params.Profile.WeightKg, skill, rnd)
		homePool, homeFocus := homeCandidates(params.HomePool, focus)
		home := SelectSession(homePool, homeFocus, target, params.Profile.WeightKg, skill, rnd)

		plans = append(plans, DayPlan{
			DayNumber:            dayNumber,
			Date:                 startDate.AddDate(0, 0, i),
			Focus:                focus,
			TargetCalories:       target,
			Facility:             facility,
			Home:                 home,
			CompletedExerciseIDs: []string{},
			Completed:            false,
		})
	}
	return plans, nil
}

// homeCandidates tops up a thin home pool with full body and cardio exercises. Home catalogs are small and a
// strict focus filter would otherwise leave most days with a handful of exercises. The returned focus is the one
// SelectSession should filter the returned pool with.
func homeCandidates(pool []Exercise, focus Focus) ([]Exercise, Focus) {
	matched := FilterByFocus(pool, focus)
	if len(matched) >= MinSessionExercises || focus == FocusRestLight {
		return pool, focus
	}

	seen := make(map[string]bool, len(matched))
	for _, ex := range matched {
		seen[ex.Name] = true
	}
	for _, ex := range FilterByFocus(pool, FocusFullBody) {
		if len(matched) >= MaxSessionExercises {
			break
		}
		if seen[ex.Name] || (ex.Area != AreaFullBody && ex.Area != AreaCardio) {
			continue
		}
		seen[ex.Name] = true
		matched = append(matched, ex)
	}
	return matched, FocusFullBody
}

// civilDate truncates t to midnight of its UTC calendar date.
func civilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
