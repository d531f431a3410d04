package workout

import "math"

const (
	// DefaultTargetCalories is used when the projection has no days left and for weight-gain projections.
	DefaultTargetCalories = 300.0
	kcalPerKg             = 7700.0
	minLossTarget         = 200.0
	maxLossTarget         = 1000.0
)

// DailyTarget derives the day's burn target in kilocalories.
//
// Profiles with both a target weight and a target duration use the projection
// |weight - target| * 7700 / daysRemaining. Losing weight clamps the projection to [200, 1000]. Gaining weight is
// pinned to DefaultTargetCalories. Other profiles use a goal based heuristic adjusted by body weight.
func DailyTarget(profile UserProfile, daysRemaining int) float64 {
	if !profile.hasProjection() {
		return heuristicTarget(profile)
	}
	if daysRemaining <= 0 {
		return DefaultTargetCalories
	}

	target := *profile.TargetWeightKg
	if target > profile.WeightKg {
		// TODO: scale the gain-phase burn by surplus size once product settles on a model.
		return DefaultTargetCalories
	}
	projected := math.Abs(profile.WeightKg-target) * kcalPerKg / float64(daysRemaining)
	return round(clamp(projected, minLossTarget, maxLossTarget), 1)
}

func heuristicTarget(profile UserProfile) float64 {
	var base float64
	switch profile.Goal {
	case GoalLoseWeight:
		base = 500
	case GoalGainWeight:
		base = 250
	case GoalBuildMuscle, GoalMaintain, GoalImproveFitness:
		base = 300
	default:
		base = DefaultTargetCalories
	}

	switch {
	case profile.WeightKg > 90: //nolint:mnd // heavy body weight threshold.
		base += 100
	case profile.WeightKg < 60: //nolint:mnd // light body weight threshold.
		base -= 50
	}
	return base
}
