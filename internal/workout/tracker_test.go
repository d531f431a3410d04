package workout_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/myrjola/burnplan/internal/ptr"
	"github.com/myrjola/burnplan/internal/workout"
)

// trackedPlan has n facility and n home exercises of 4 sets over 5 minutes at MET 6, which burn exactly 40 kcal
// each at 80 kg.
func trackedPlan(n int) workout.DayPlan {
	session := func(prefix string) workout.SessionPlan {
		s := workout.SessionPlan{Exercises: nil, TotalCalories: float64(40 * n), TotalMinutes: float64(5 * n)}
		for i := range n {
			s.Exercises = append(s.Exercises, workout.SizedExercise{
				Exercise:          setRep(fmt.Sprintf("%s exercise %d", prefix, i), workout.AreaUpper, workout.SkillBeginner, 6),
				InstanceID:        fmt.Sprintf("%s-%d", prefix, i),
				DurationMinutes:   5,
				Sets:              4,
				Reps:              "8-12",
				PredictedCalories: 40,
				ActualCalories:    0,
				Status:            workout.StatusNotStarted,
				CompletedSets:     0,
			})
		}
		return s
	}
	return workout.DayPlan{
		DayNumber:            1,
		Date:                 date("2025-03-10"),
		Focus:                workout.FocusUpper,
		TargetCalories:       400,
		Facility:             session("facility"),
		Home:                 session("home"),
		CompletedExerciseIDs: []string{},
		Completed:            false,
	}
}

func complete(t *testing.T, plan workout.DayPlan, kind workout.SessionKind, ids ...string) workout.DayPlan {
	t.Helper()
	for _, id := range ids {
		var err error
		if plan, err = workout.RecordCompletion(plan, kind, id, workout.CompletionUpdate{}, 80); err != nil {
			t.Fatalf("RecordCompletion(%s) error = %v", id, err)
		}
	}
	return plan
}

func TestRecordCompletion_DayCompletion(t *testing.T) {
	plan := trackedPlan(10)
	plan = complete(t, plan, workout.SessionFacility,
		"facility-0", "facility-1", "facility-2", "facility-3", "facility-4", "facility-5")
	if plan.Completed {
		t.Error("day with 6 of 10 exercises done must not be completed")
	}
	if len(plan.CompletedExerciseIDs) != 6 {
		t.Errorf("completed ids = %v, want 6", plan.CompletedExerciseIDs)
	}

	plan = complete(t, plan, workout.SessionFacility, "facility-6", "facility-7", "facility-8", "facility-9")
	if !plan.Completed {
		t.Error("day with every facility exercise done must be completed")
	}
	if got := plan.ActualCalories(); got != 400 {
		t.Errorf("ActualCalories() = %v, want 400", got)
	}

	plan = complete(t, plan, workout.SessionFacility, "facility-9")
	if plan.Completed {
		t.Error("undoing an exercise must clear day completion")
	}
}

func TestRecordCompletion_HomeSessionCompletesDay(t *testing.T) {
	plan := trackedPlan(3)
	plan = complete(t, plan, workout.SessionHome, "home-0", "home-1", "home-2")
	if !plan.Completed {
		t.Error("finishing the home session must complete the day")
	}
}

func TestRecordCompletion_Updates(t *testing.T) {
	tests := []struct {
		name        string
		update      workout.CompletionUpdate
		wantStatus  workout.Status
		wantSets    int
		wantActual  float64
		wantTracked bool
	}{
		{
			name:        "toggle completes",
			update:      workout.CompletionUpdate{},
			wantStatus:  workout.StatusComplete,
			wantSets:    4,
			wantActual:  40,
			wantTracked: true,
		},
		{
			name:        "partial sets",
			update:      workout.CompletionUpdate{CompletedSets: ptr.Ref(1)},
			wantStatus:  workout.StatusPartial,
			wantSets:    1,
			wantActual:  10,
			wantTracked: false,
		},
		{
			name:        "all sets",
			update:      workout.CompletionUpdate{CompletedSets: ptr.Ref(4)},
			wantStatus:  workout.StatusComplete,
			wantSets:    4,
			wantActual:  40,
			wantTracked: true,
		},
		{
			name:        "zero sets",
			update:      workout.CompletionUpdate{CompletedSets: ptr.Ref(0)},
			wantStatus:  workout.StatusNotStarted,
			wantSets:    0,
			wantActual:  0,
			wantTracked: false,
		},
		{
			name:        "measured burn overrides the model",
			update:      workout.CompletionUpdate{CompletedSets: ptr.Ref(2), MeasuredCalories: ptr.Ref(55.5)},
			wantStatus:  workout.StatusPartial,
			wantSets:    2,
			wantActual:  55.5,
			wantTracked: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := trackedPlan(2)
			plan, err := workout.RecordCompletion(original, workout.SessionFacility, "facility-1", tt.update, 80)
			if err != nil {
				t.Fatalf("RecordCompletion() error = %v", err)
			}
			ex := plan.Facility.Exercises[1]
			if ex.Status != tt.wantStatus || ex.CompletedSets != tt.wantSets || ex.ActualCalories != tt.wantActual {
				t.Errorf("got %s with %d sets and %v kcal, want %s with %d sets and %v kcal", ex.Status,
					ex.CompletedSets, ex.ActualCalories, tt.wantStatus, tt.wantSets, tt.wantActual)
			}
			tracked := len(plan.CompletedExerciseIDs) == 1 && plan.CompletedExerciseIDs[0] == "facility-1"
			if tracked != tt.wantTracked {
				t.Errorf("completed ids = %v", plan.CompletedExerciseIDs)
			}
			if original.Facility.Exercises[1].Status != workout.StatusNotStarted {
				t.Error("RecordCompletion mutated its input")
			}
		})
	}
}

func TestRecordCompletion_ToggleBack(t *testing.T) {
	plan := complete(t, trackedPlan(2), workout.SessionFacility, "facility-0", "facility-0")
	ex := plan.Facility.Exercises[0]
	if ex.Status != workout.StatusNotStarted || ex.ActualCalories != 0 || ex.CompletedSets != 0 {
		t.Errorf("toggled back exercise = %s, %v kcal, %d sets", ex.Status, ex.ActualCalories, ex.CompletedSets)
	}
	if len(plan.CompletedExerciseIDs) != 0 {
		t.Errorf("completed ids = %v, want none", plan.CompletedExerciseIDs)
	}
}

func TestRecordCompletion_Errors(t *testing.T) {
	tests := []struct {
		name       string
		kind       workout.SessionKind
		instanceID string
		update     workout.CompletionUpdate
		wantErr    error
	}{
		{name: "unknown exercise", kind: workout.SessionFacility, instanceID: "nope", wantErr: workout.ErrNotFound},
		{name: "unknown session", kind: "gym", instanceID: "facility-0", wantErr: workout.ErrNotFound},
		{
			name:       "negative sets",
			kind:       workout.SessionFacility,
			instanceID: "facility-0",
			update:     workout.CompletionUpdate{CompletedSets: ptr.Ref(-1)},
			wantErr:    workout.ErrInvalidExercise,
		},
		{
			name:       "negative calories",
			kind:       workout.SessionFacility,
			instanceID: "facility-0",
			update:     workout.CompletionUpdate{MeasuredCalories: ptr.Ref(-3.0)},
			wantErr:    workout.ErrInvalidExercise,
		},
		{name: "id from the other session", kind: workout.SessionHome, instanceID: "facility-0",
			wantErr: workout.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := workout.RecordCompletion(trackedPlan(2), tt.kind, tt.instanceID, tt.update, 80)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubstituteExercise(t *testing.T) {
	original := trackedPlan(3)
	replacement := workout.Exercise{
		Name:            "goblet squat",
		Area:            workout.AreaLower,
		Equipment:       "kettlebell",
		Level:           workout.SkillBeginner,
		MET:             3,
		Demo:            "",
		Kind:            workout.KindSetRep,
		BaselineSets:    3,
		BaselineRepsMin: 10,
		BaselineRepsMax: 15,
		BaselineSeconds: 0,
	}

	plan, err := workout.SubstituteExercise(original, workout.SessionFacility, "facility-1", replacement, 80)
	if err != nil {
		t.Fatalf("SubstituteExercise() error = %v", err)
	}
	ex := plan.Facility.Exercises[1]
	if ex.Name != "goblet squat" || ex.InstanceID != "facility-1" {
		t.Errorf("substituted exercise = %s (%s)", ex.Name, ex.InstanceID)
	}
	if ex.DurationMinutes != 5 || ex.Sets != 4 || ex.Reps != "10-15" {
		t.Errorf("substituted sizing = %v min, %d sets, %q reps", ex.DurationMinutes, ex.Sets, ex.Reps)
	}
	// 3 MET * 80 kg * 5 min / 60.
	if ex.PredictedCalories != 20 {
		t.Errorf("predicted = %v, want 20", ex.PredictedCalories)
	}
	if plan.Facility.TotalCalories != 100 || plan.Facility.TotalMinutes != 15 {
		t.Errorf("totals = %v kcal, %v min; want 100 kcal, 15 min", plan.Facility.TotalCalories,
			plan.Facility.TotalMinutes)
	}
	if original.Facility.Exercises[1].Name != "facility exercise 1" {
		t.Error("SubstituteExercise mutated its input")
	}
}

func TestSubstituteExercise_Errors(t *testing.T) {
	plan := complete(t, trackedPlan(2), workout.SessionFacility, "facility-0")
	valid := setRep("row", workout.AreaUpper, workout.SkillBeginner, 4)

	tests := []struct {
		name        string
		instanceID  string
		replacement workout.Exercise
		wantErr     error
	}{
		{name: "completed exercise", instanceID: "facility-0", replacement: valid,
			wantErr: workout.ErrExerciseCompleted},
		{name: "unknown exercise", instanceID: "facility-7", replacement: valid, wantErr: workout.ErrNotFound},
		{name: "unsizable replacement", instanceID: "facility-1",
			replacement: setRep("broken", workout.AreaUpper, workout.SkillBeginner, 0),
			wantErr:     workout.ErrInvalidExercise},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := workout.SubstituteExercise(plan, workout.SessionFacility, tt.instanceID, tt.replacement, 80)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubstituteExercise_PartialResets(t *testing.T) {
	plan, err := workout.RecordCompletion(trackedPlan(2), workout.SessionFacility, "facility-0",
		workout.CompletionUpdate{CompletedSets: ptr.Ref(2)}, 80)
	if err != nil {
		t.Fatalf("RecordCompletion() error = %v", err)
	}
	plan, err = workout.SubstituteExercise(plan, workout.SessionFacility, "facility-0",
		setRep("row", workout.AreaUpper, workout.SkillBeginner, 4), 80)
	if err != nil {
		t.Fatalf("SubstituteExercise() error = %v", err)
	}
	ex := plan.Facility.Exercises[0]
	if ex.Status != workout.StatusNotStarted || ex.CompletedSets != 0 || ex.ActualCalories != 0 {
		t.Errorf("substituted exercise keeps progress: %s, %d sets, %v kcal", ex.Status, ex.CompletedSets,
			ex.ActualCalories)
	}
}
