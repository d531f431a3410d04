package workout

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// HorizonConfig tunes the rolling scheduler.
type HorizonConfig struct {
	// Threshold is the minimum number of active days before a new block is generated.
	Threshold int
	// BlockDays is the number of days generated per block.
	BlockDays int
}

func DefaultHorizonConfig() HorizonConfig {
	return HorizonConfig{Threshold: 3, BlockDays: 5} //nolint:mnd // defaults.
}

// HorizonState is everything the planner needs about one user.
type HorizonState struct {
	Profile UserProfile
	// Plans are the non-archived day plans in any order.
	Plans []DayPlan
	// LastArchivedDayNumber is the day number of the most recently archived day. It keeps the numbering going
	// when every live plan has been archived in an earlier run.
	LastArchivedDayNumber int
	FacilityPool          []Exercise
	HomePool              []Exercise
}

// HorizonChange is the outcome of a planner run together with the writes that persist it.
type HorizonChange struct {
	// Active is the resulting horizon ordered by day number.
	Active []DayPlan
	// Archived are the elapsed days converted to history.
	Archived []HistoryRecord
	// Removed are the dates of plans that left the live horizon.
	Removed []time.Time
	// Generated are the new plans to upsert.
	Generated []DayPlan
}

// Label summarises the change for the job log.
func (c HorizonChange) Label() string {
	label := fmt.Sprintf("archived %d, generated %d", len(c.Archived), len(c.Generated))
	if len(c.Generated) > 0 {
		label += fmt.Sprintf(", days %d-%d", c.Generated[0].DayNumber, c.Generated[len(c.Generated)-1].DayNumber)
	}
	return label
}

// PlanHorizon archives plans dated before today and extends the horizon with a new block when fewer than
// cfg.Threshold active days remain. The block starts the day after the latest active plan, or today when none is
// left, and continues the day numbering. Running it again without time passing changes nothing.
func PlanHorizon(state HorizonState, today time.Time, cfg HorizonConfig, rnd *Rand) (HorizonChange, error) {
	today = civilDate(today)
	past, active := partition(state.Plans, today)

	change := HorizonChange{
		Active:    active,
		Archived:  make([]HistoryRecord, 0, len(past)),
		Removed:   make([]time.Time, 0, len(past)),
		Generated: nil,
	}
	lastDayNumber := 0
	for _, plan := range past {
		change.Archived = append(change.Archived, newHistoryRecord(plan))
		change.Removed = append(change.Removed, plan.Date)
		lastDayNumber = max(lastDayNumber, plan.DayNumber)
	}
	startDate := today
	if len(active) > 0 {
		latest := active[len(active)-1]
		lastDayNumber = max(lastDayNumber, latest.DayNumber)
		startDate = latest.Date.AddDate(0, 0, 1)
	}
	if lastDayNumber == 0 {
		lastDayNumber = state.LastArchivedDayNumber
	}

	if len(active) >= cfg.Threshold {
		return change, nil
	}

	generated, err := GenerateBlock(BlockParams{
		Profile:        state.Profile,
		FacilityPool:   state.FacilityPool,
		HomePool:       state.HomePool,
		StartDate:      startDate,
		StartDayNumber: lastDayNumber + 1,
		Days:           cfg.BlockDays,
		DaysRemaining:  state.Profile.ProgramDays() - lastDayNumber,
	}, rnd)
	if err != nil {
		return HorizonChange{}, fmt.Errorf("generate block: %w", err)
	}

	change.Generated = generated
	change.Active = upsertByDate(active, generated)
	return change, nil
}

// PlanRegeneration discards the whole active horizon and restarts at day one today with a freshly derived target.
// Elapsed plans are still archived.
func PlanRegeneration(state HorizonState, today time.Time, cfg HorizonConfig, rnd *Rand) (HorizonChange, error) {
	today = civilDate(today)
	past, active := partition(state.Plans, today)

	change := HorizonChange{
		Active:    nil,
		Archived:  make([]HistoryRecord, 0, len(past)),
		Removed:   make([]time.Time, 0, len(state.Plans)),
		Generated: nil,
	}
	for _, plan := range past {
		change.Archived = append(change.Archived, newHistoryRecord(plan))
		change.Removed = append(change.Removed, plan.Date)
	}
	for _, plan := range active {
		change.Removed = append(change.Removed, plan.Date)
	}

	generated, err := GenerateBlock(BlockParams{
		Profile:        state.Profile,
		FacilityPool:   state.FacilityPool,
		HomePool:       state.HomePool,
		StartDate:      today,
		StartDayNumber: 1,
		Days:           cfg.BlockDays,
		DaysRemaining:  state.Profile.ProgramDays(),
	}, rnd)
	if err != nil {
		return HorizonChange{}, fmt.Errorf("generate block: %w", err)
	}

	change.Generated = generated
	change.Active = slices.Clone(generated)
	return change, nil
}

// partition splits plans into those dated before today and the rest, both ordered by day number.
func partition(plans []DayPlan, today time.Time) ([]DayPlan, []DayPlan) {
	var past, active []DayPlan
	for _, plan := range plans {
		if civilDate(plan.Date).Before(today) {
			past = append(past, plan)
		} else {
			active = append(active, plan)
		}
	}
	byDayNumber := func(a, b DayPlan) int { return cmp.Compare(a.DayNumber, b.DayNumber) }
	slices.SortFunc(past, byDayNumber)
	slices.SortFunc(active, byDayNumber)
	return past, active
}

// upsertByDate merges generated plans into the horizon. A plan already present for the same date keeps its
// sessions and progress and only takes the new target.
func upsertByDate(horizon []DayPlan, generated []DayPlan) []DayPlan {
	merged := slices.Clone(horizon)
	for _, plan := range generated {
		i := slices.IndexFunc(merged, func(existing DayPlan) bool { return existing.Date.Equal(plan.Date) })
		if i >= 0 {
			merged[i].TargetCalories = plan.TargetCalories
			continue
		}
		merged = append(merged, plan)
	}
	slices.SortFunc(merged, func(a, b DayPlan) int { return cmp.Compare(a.DayNumber, b.DayNumber) })
	return merged
}
