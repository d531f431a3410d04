package workout_test

import (
	"context"
	"fmt"
	"time"

	"github.com/myrjola/burnplan/internal/ptr"
	"github.com/myrjola/burnplan/internal/workout"
)

func setRep(name string, area workout.BodyArea, level workout.SkillLevel, met float64) workout.Exercise {
	return workout.Exercise{
		Name:            name,
		Area:            area,
		Equipment:       "machine",
		Level:           level,
		MET:             met,
		Demo:            "",
		Kind:            workout.KindSetRep,
		BaselineSets:    3,
		BaselineRepsMin: 8,
		BaselineRepsMax: 12,
		BaselineSeconds: 0,
	}
}

func timed(name string, area workout.BodyArea, level workout.SkillLevel, met float64, seconds int) workout.Exercise {
	return workout.Exercise{
		Name:            name,
		Area:            area,
		Equipment:       "bodyweight",
		Level:           level,
		MET:             met,
		Demo:            "",
		Kind:            workout.KindDuration,
		BaselineSets:    1,
		BaselineRepsMin: 0,
		BaselineRepsMax: 0,
		BaselineSeconds: seconds,
	}
}

// facilityPool has ten exercises per body area with mixed skill levels.
func facilityPool() []workout.Exercise {
	areas := []workout.BodyArea{
		workout.AreaUpper, workout.AreaLower, workout.AreaCore, workout.AreaCardio, workout.AreaFullBody,
	}
	levels := []workout.SkillLevel{workout.SkillBeginner, workout.SkillIntermediate, workout.SkillAdvanced}
	var pool []workout.Exercise
	for _, area := range areas {
		for i := range 10 {
			name := fmt.Sprintf("%s facility %d", area, i)
			level := levels[i%len(levels)]
			if area == workout.AreaCardio {
				pool = append(pool, timed(name, area, level, 7, 300))
				continue
			}
			pool = append(pool, setRep(name, area, level, 5))
		}
	}
	return pool
}

// homePool is deliberately thin per area so that most days need supplementing.
func homePool() []workout.Exercise {
	var pool []workout.Exercise
	add := func(area workout.BodyArea, n int, kind workout.ExerciseKind) {
		for i := range n {
			name := fmt.Sprintf("%s home %d", area, i)
			if kind == workout.KindDuration {
				pool = append(pool, timed(name, area, workout.SkillBeginner, 6, 45))
				continue
			}
			pool = append(pool, setRep(name, area, workout.SkillBeginner, 3.8))
		}
	}
	add(workout.AreaUpper, 3, workout.KindSetRep)
	add(workout.AreaLower, 3, workout.KindSetRep)
	add(workout.AreaCore, 3, workout.KindDuration)
	add(workout.AreaCardio, 4, workout.KindDuration)
	add(workout.AreaFullBody, 6, workout.KindSetRep)
	return pool
}

type staticCatalog struct {
	facility []workout.Exercise
	home     []workout.Exercise
}

func (c staticCatalog) Pool(_ context.Context, kind workout.SessionKind) ([]workout.Exercise, error) {
	if kind == workout.SessionHome {
		return c.home, nil
	}
	return c.facility, nil
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func lossProfile() workout.UserProfile {
	return workout.UserProfile{
		WeightKg:            80,
		TargetWeightKg:      ptr.Ref(75.0),
		TargetDurationWeeks: ptr.Ref(4),
		Goal:                workout.GoalLoseWeight,
		ActivityLevel:       workout.ActivityModerate,
		SkillLevel:          nil,
		ExperienceScore:     0,
	}
}

func maintainProfile() workout.UserProfile {
	return workout.UserProfile{
		WeightKg:            70,
		TargetWeightKg:      nil,
		TargetDurationWeeks: nil,
		Goal:                workout.GoalMaintain,
		ActivityLevel:       workout.ActivityModerate,
		SkillLevel:          nil,
		ExperienceScore:     600,
	}
}
