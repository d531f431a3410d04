package workout

import (
	"fmt"
	"slices"
)

// CompletionUpdate records progress on one exercise. Without CompletedSets the exercise toggles between not started
// and complete. MeasuredCalories, typically from a live timer, overrides the modelled actual burn.
type CompletionUpdate struct {
	CompletedSets    *int     `json:"completed_sets,omitempty"`
	MeasuredCalories *float64 `json:"measured_calories,omitempty"`
}

// RecordCompletion returns a copy of plan with the progress of instanceID updated. The actual burn is modelled at
// weightKg, the user's current body weight.
func RecordCompletion(
	plan DayPlan,
	kind SessionKind,
	instanceID string,
	update CompletionUpdate,
	weightKg float64,
) (DayPlan, error) {
	if update.CompletedSets != nil && *update.CompletedSets < 0 {
		return DayPlan{}, fmt.Errorf("%w: negative completed sets", ErrInvalidExercise)
	}
	if update.MeasuredCalories != nil && *update.MeasuredCalories < 0 {
		return DayPlan{}, fmt.Errorf("%w: negative measured calories", ErrInvalidExercise)
	}

	plan = plan.Clone()
	session, err := plan.Session(kind)
	if err != nil {
		return DayPlan{}, err
	}
	i := session.indexOf(instanceID)
	if i < 0 {
		return DayPlan{}, fmt.Errorf("exercise %s in %s session of day %d: %w", instanceID, kind, plan.DayNumber,
			ErrNotFound)
	}
	ex := &session.Exercises[i]

	if update.CompletedSets == nil {
		if ex.Status == StatusComplete {
			ex.Status, ex.CompletedSets = StatusNotStarted, 0
		} else {
			ex.Status, ex.CompletedSets = StatusComplete, ex.Sets
		}
	} else {
		ex.CompletedSets = *update.CompletedSets
		switch {
		case ex.CompletedSets >= ex.Sets:
			ex.Status = StatusComplete
		case ex.CompletedSets > 0:
			ex.Status = StatusPartial
		default:
			ex.Status = StatusNotStarted
		}
	}

	ex.ActualCalories = modelledBurn(*ex, weightKg)
	if update.MeasuredCalories != nil {
		ex.ActualCalories = round(*update.MeasuredCalories, 2)
	}

	plan.markCompletion(*ex)
	plan.Completed = session.allComplete()
	return plan, nil
}

// modelledBurn is the actual burn implied by the exercise's progress when no measurement is available.
func modelledBurn(ex SizedExercise, weightKg float64) float64 {
	full := PredictBurn(ex.MET, weightKg, ex.DurationMinutes)
	switch ex.Status {
	case StatusComplete:
		return full
	case StatusPartial:
		if ex.Sets <= 0 {
			return 0
		}
		return round(full*float64(ex.CompletedSets)/float64(ex.Sets), 2)
	case StatusNotStarted:
		return 0
	default:
		return 0
	}
}

// markCompletion keeps CompletedExerciseIDs in sync with the status of ex.
func (d *DayPlan) markCompletion(ex SizedExercise) {
	i := slices.Index(d.CompletedExerciseIDs, ex.InstanceID)
	switch {
	case ex.Status == StatusComplete && i < 0:
		d.CompletedExerciseIDs = append(d.CompletedExerciseIDs, ex.InstanceID)
	case ex.Status != StatusComplete && i >= 0:
		d.CompletedExerciseIDs = slices.Delete(d.CompletedExerciseIDs, i, i+1)
	}
}

// SubstituteExercise returns a copy of plan where instanceID is replaced by replacement. The instance id, duration
// and set count are kept so that the session duration does not change. The predicted burn is recomputed for the
// replacement at weightKg. Completed exercises can not be substituted.
func SubstituteExercise(
	plan DayPlan,
	kind SessionKind,
	instanceID string,
	replacement Exercise,
	weightKg float64,
) (DayPlan, error) {
	if err := replacement.Validate(); err != nil {
		return DayPlan{}, err
	}

	plan = plan.Clone()
	session, err := plan.Session(kind)
	if err != nil {
		return DayPlan{}, err
	}
	i := session.indexOf(instanceID)
	if i < 0 {
		return DayPlan{}, fmt.Errorf("exercise %s in %s session of day %d: %w", instanceID, kind, plan.DayNumber,
			ErrNotFound)
	}
	old := session.Exercises[i]
	if old.Status == StatusComplete {
		return DayPlan{}, fmt.Errorf("substitute %s: %w", old.Name, ErrExerciseCompleted)
	}

	session.Exercises[i] = SizedExercise{
		Exercise:          replacement,
		InstanceID:        old.InstanceID,
		DurationMinutes:   old.DurationMinutes,
		Sets:              old.Sets,
		Reps:              replacement.RepRange(),
		PredictedCalories: PredictBurn(replacement.MET, weightKg, old.DurationMinutes),
		ActualCalories:    0,
		Status:            StatusNotStarted,
		CompletedSets:     0,
	}
	session.recomputeTotals()

	plan.markCompletion(session.Exercises[i])
	plan.Completed = session.allComplete()
	return plan, nil
}
