package workout

const (
	MinSessionExercises = 8
	MaxSessionExercises = 15

	// assumedSessionSize splits the day's target into per-exercise sub-targets.
	assumedSessionSize = 10

	minRequiredMinutes = 2.0
	maxRequiredMinutes = 20.0

	minSets                = 2
	maxSets                = 5
	secondsPerRep          = 3.0
	restSecondsBetweenSets = 60.0
	defaultAverageReps     = 10.0

	minTimedMinutes = 0.5
	maxTimedMinutes = 5.0
)

// FilterByFocus returns the exercises matching focus. FocusFullBody matches everything and FocusRestLight matches
// cardio and beginner exercises. Definitions the calorie model cannot size are dropped.
func FilterByFocus(pool []Exercise, focus Focus) []Exercise {
	var matched []Exercise
	for _, ex := range pool {
		if ex.Validate() != nil {
			continue
		}
		if matchesFocus(ex, focus) {
			matched = append(matched, ex)
		}
	}
	return matched
}

func matchesFocus(ex Exercise, focus Focus) bool {
	switch focus {
	case FocusFullBody:
		return true
	case FocusRestLight:
		return ex.Area == AreaCardio || ex.Level == SkillBeginner
	case FocusUpper, FocusLower, FocusCore, FocusCardio:
		return string(ex.Area) == string(focus)
	default:
		return false
	}
}

// SelectSession assembles a session from the pool exercises matching focus.
//
// Candidates are shuffled with rnd and sized one by one until the session holds at least MinSessionExercises
// exercises and its predicted burn reaches targetBurn, or until MaxSessionExercises is reached. The first pass only
// takes candidates at or below skill. When the session is still short, the remaining candidates are drawn in a
// fresh random order with the same stopping rule. An empty skill accepts every candidate in the first pass.
//
// A pool with fewer matching candidates than MinSessionExercises yields a shorter session, an empty pool an empty
// one.
func SelectSession(
	pool []Exercise,
	focus Focus,
	targetBurn float64,
	weightKg float64,
	skill SkillLevel,
	rnd *Rand,
) SessionPlan {
	candidates := FilterByFocus(pool, focus)
	session := SessionPlan{Exercises: []SizedExercise{}, TotalCalories: 0, TotalMinutes: 0}
	if len(candidates) == 0 {
		return session
	}
	rnd.shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	subTarget := targetBurn / assumedSessionSize
	var burned float64
	satisfied := func() bool {
		n := len(session.Exercises)
		return n >= MaxSessionExercises || (n >= MinSessionExercises && burned >= targetBurn)
	}
	used := make([]bool, len(candidates))
	take := func(i int) {
		sized := sizeExercise(candidates[i], subTarget, weightKg, rnd.instanceID())
		session.Exercises = append(session.Exercises, sized)
		burned += sized.PredictedCalories
		used[i] = true
	}

	for i, ex := range candidates {
		if satisfied() {
			break
		}
		if skill != "" && ex.Level.rank() > skill.rank() {
			continue
		}
		take(i)
	}

	if !satisfied() {
		var remaining []int
		for i := range candidates {
			if !used[i] {
				remaining = append(remaining, i)
			}
		}
		rnd.shuffle(len(remaining), func(i, j int) {
			remaining[i], remaining[j] = remaining[j], remaining[i]
		})
		for _, i := range remaining {
			if satisfied() {
				break
			}
			take(i)
		}
	}

	session.recomputeTotals()
	return session
}

// sizeExercise computes duration, sets and predicted burn so that the exercise contributes roughly subTarget
// kilocalories.
func sizeExercise(ex Exercise, subTarget, weightKg float64, instanceID string) SizedExercise {
	required := clamp(subTarget*60/(ex.MET*weightKg), minRequiredMinutes, maxRequiredMinutes) //nolint:mnd // seconds.

	var (
		minutes float64
		sets    int
	)
	switch ex.Kind {
	case KindDuration:
		minutes = required
		if ex.BaselineSeconds > 0 {
			minutes = float64(ex.BaselineSeconds) / 60 //nolint:mnd // seconds per minute.
		}
		minutes = clamp(minutes, minTimedMinutes, maxTimedMinutes)
		sets = max(ex.BaselineSets, 1)
	case KindSetRep:
		sets, minutes = setsForDuration(ex, required)
	default:
		sets, minutes = setsForDuration(ex, required)
	}

	minutes = round(minutes, 2)
	return SizedExercise{
		Exercise:          ex,
		InstanceID:        instanceID,
		DurationMinutes:   minutes,
		Sets:              sets,
		Reps:              ex.RepRange(),
		PredictedCalories: PredictBurn(ex.MET, weightKg, minutes),
		ActualCalories:    0,
		Status:            StatusNotStarted,
		CompletedSets:     0,
	}
}

// setsForDuration solves sets*(reps*3s) + (sets-1)*60s = required for sets, clamps it to [2, 5] and returns the
// true duration of the clamped set count.
func setsForDuration(ex Exercise, requiredMinutes float64) (int, float64) {
	avgReps := averageReps(ex)
	workSeconds := avgReps * secondsPerRep
	requiredSeconds := requiredMinutes * 60 //nolint:mnd // seconds per minute.

	raw := (requiredSeconds + restSecondsBetweenSets) / (workSeconds + restSecondsBetweenSets)
	sets := clamp(int(raw+0.5), minSets, maxSets) //nolint:mnd // round half up.

	seconds := float64(sets)*workSeconds + float64(sets-1)*restSecondsBetweenSets
	return sets, seconds / 60 //nolint:mnd // seconds per minute.
}

func averageReps(ex Exercise) float64 {
	switch {
	case ex.BaselineRepsMin > 0 && ex.BaselineRepsMax > 0:
		return float64(ex.BaselineRepsMin+ex.BaselineRepsMax) / 2 //nolint:mnd // midpoint.
	case ex.BaselineRepsMax > 0:
		return float64(ex.BaselineRepsMax)
	case ex.BaselineRepsMin > 0:
		return float64(ex.BaselineRepsMin)
	default:
		return defaultAverageReps
	}
}
