package workout

import "math"

// PredictBurn is the calorie model: kilocalories = MET * body weight in kg * hours.
//
// The result is rounded to two decimals. Callers validate that met and weightKg are positive.
func PredictBurn(met, weightKg, durationMinutes float64) float64 {
	return round(met*weightKg*(durationMinutes/60), 2) //nolint:mnd // minutes per hour.
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

func clamp[T int | float64](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
