package workout

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/myrjola/burnplan/internal/errors"
)

var (
	ErrNotFound          = errors.NewSentinel("not found")
	ErrExerciseCompleted = errors.NewSentinel("exercise already completed")
	ErrInvalidProfile    = errors.NewSentinel("invalid profile")
	ErrInvalidExercise   = errors.NewSentinel("invalid exercise")
)

// BodyArea is the muscle group or activity category an exercise trains.
type BodyArea string

const (
	AreaUpper    BodyArea = "Upper"
	AreaLower    BodyArea = "Lower"
	AreaCore     BodyArea = "Core"
	AreaCardio   BodyArea = "Cardio"
	AreaFullBody BodyArea = "Full Body"
)

// Focus is the body focus assigned to a day. Every focus except FocusRestLight and FocusFullBody selects
// exercises of the body area with the same name.
type Focus string

const (
	FocusUpper     Focus = "Upper"
	FocusLower     Focus = "Lower"
	FocusCore      Focus = "Core"
	FocusCardio    Focus = "Cardio"
	FocusRestLight Focus = "Rest/Light"
	FocusFullBody  Focus = "Full Body"
)

type SkillLevel string

const (
	SkillBeginner     SkillLevel = "Beginner"
	SkillIntermediate SkillLevel = "Intermediate"
	SkillAdvanced     SkillLevel = "Advanced"
)

// rank orders skill levels. Unknown labels rank with beginners.
func (l SkillLevel) rank() int {
	switch l {
	case SkillIntermediate:
		return 1
	case SkillAdvanced:
		return 2 //nolint:mnd // highest rank.
	case SkillBeginner:
		return 0
	default:
		return 0
	}
}

// SkillForExperience derives a skill level from the accumulated experience score.
func SkillForExperience(score int) SkillLevel {
	switch {
	case score < 100: //nolint:mnd // beginner threshold.
		return SkillBeginner
	case score < 500: //nolint:mnd // intermediate threshold.
		return SkillIntermediate
	default:
		return SkillAdvanced
	}
}

// ExerciseKind tells how an exercise is sized.
type ExerciseKind string

const (
	KindDuration ExerciseKind = "duration"
	KindSetRep   ExerciseKind = "set-rep"
)

type Status string

const (
	StatusNotStarted Status = "not started"
	StatusPartial    Status = "partial"
	StatusComplete   Status = "complete"
)

// SessionKind selects one of the two parallel sessions of a day.
type SessionKind string

const (
	SessionFacility SessionKind = "facility"
	SessionHome     SessionKind = "home"
)

func ParseSessionKind(s string) (SessionKind, error) {
	switch kind := SessionKind(s); kind {
	case SessionFacility, SessionHome:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown session kind %q: %w", s, ErrNotFound)
	}
}

type Goal string

const (
	GoalLoseWeight     Goal = "lose_weight"
	GoalBuildMuscle    Goal = "build_muscle"
	GoalMaintain       Goal = "maintain"
	GoalGainWeight     Goal = "gain_weight"
	GoalImproveFitness Goal = "improve_fitness"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

// Exercise is a normalized catalog entry. Catalog entries are never mutated at runtime.
type Exercise struct {
	Name      string       `json:"name"`
	Area      BodyArea     `json:"area"`
	Equipment string       `json:"equipment"`
	Level     SkillLevel   `json:"level"`
	MET       float64      `json:"met"`
	Demo      string       `json:"demo,omitempty"`
	Kind      ExerciseKind `json:"kind"`
	// Baseline recommendations from the catalog. Zero means the catalog gave none.
	BaselineSets    int `json:"baseline_sets,omitempty"`
	BaselineRepsMin int `json:"baseline_reps_min,omitempty"`
	BaselineRepsMax int `json:"baseline_reps_max,omitempty"`
	BaselineSeconds int `json:"baseline_seconds,omitempty"`
}

// Validate rejects definitions the calorie model cannot size.
func (e Exercise) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidExercise)
	}
	if e.MET <= 0 {
		return fmt.Errorf("%w: %s has non-positive MET %v", ErrInvalidExercise, e.Name, e.MET)
	}
	return nil
}

// RepRange formats the baseline rep range, e.g. "8-12" or "10".
func (e Exercise) RepRange() string {
	if e.Kind != KindSetRep || e.BaselineRepsMax <= 0 {
		return ""
	}
	if e.BaselineRepsMin <= 0 || e.BaselineRepsMin == e.BaselineRepsMax {
		return strconv.Itoa(e.BaselineRepsMax)
	}
	return strconv.Itoa(e.BaselineRepsMin) + "-" + strconv.Itoa(e.BaselineRepsMax)
}

// SizedExercise is one occurrence of an exercise in a session. PredictedCalories always equals
// PredictBurn(MET, weight at sizing time, DurationMinutes).
type SizedExercise struct {
	Exercise
	InstanceID        string  `json:"instance_id"`
	DurationMinutes   float64 `json:"duration_minutes"`
	Sets              int     `json:"sets"`
	Reps              string  `json:"reps,omitempty"`
	PredictedCalories float64 `json:"predicted_calories"`
	ActualCalories    float64 `json:"actual_calories"`
	Status            Status  `json:"status"`
	CompletedSets     int     `json:"completed_sets"`
}

// SessionPlan is an ordered list of exercises with totals derived from it.
type SessionPlan struct {
	Exercises     []SizedExercise `json:"exercises"`
	TotalCalories float64         `json:"total_calories"`
	TotalMinutes  float64         `json:"total_minutes"`
}

func (s *SessionPlan) recomputeTotals() {
	var calories, minutes float64
	for _, ex := range s.Exercises {
		calories += ex.PredictedCalories
		minutes += ex.DurationMinutes
	}
	s.TotalCalories = round(calories, 1)
	s.TotalMinutes = round(minutes, 1)
}

func (s SessionPlan) indexOf(instanceID string) int {
	for i, ex := range s.Exercises {
		if ex.InstanceID == instanceID {
			return i
		}
	}
	return -1
}

// allComplete reports whether the session has exercises and all of them are complete.
func (s SessionPlan) allComplete() bool {
	if len(s.Exercises) == 0 {
		return false
	}
	for _, ex := range s.Exercises {
		if ex.Status != StatusComplete {
			return false
		}
	}
	return true
}

func (s SessionPlan) actualCalories() float64 {
	var total float64
	for _, ex := range s.Exercises {
		total += ex.ActualCalories
	}
	return total
}

func (s SessionPlan) clone() SessionPlan {
	c := s
	c.Exercises = slices.Clone(s.Exercises)
	return c
}

// DayPlan is one scheduled day with a facility and a home variant.
type DayPlan struct {
	DayNumber            int         `json:"day_number"`
	Date                 time.Time   `json:"date"`
	Focus                Focus       `json:"focus"`
	TargetCalories       float64     `json:"target_calories"`
	Facility             SessionPlan `json:"facility"`
	Home                 SessionPlan `json:"home"`
	CompletedExerciseIDs []string    `json:"completed_exercise_ids"`
	Completed            bool        `json:"completed"`
}

// Session returns the session of the given kind.
func (d *DayPlan) Session(kind SessionKind) (*SessionPlan, error) {
	switch kind {
	case SessionFacility:
		return &d.Facility, nil
	case SessionHome:
		return &d.Home, nil
	default:
		return nil, fmt.Errorf("session kind %q: %w", kind, ErrNotFound)
	}
}

// ActualCalories sums the recorded burn of both sessions.
func (d DayPlan) ActualCalories() float64 {
	return round(d.Facility.actualCalories()+d.Home.actualCalories(), 1)
}

// Clone returns a deep copy so that callers can not mutate cached plans.
func (d DayPlan) Clone() DayPlan {
	c := d
	c.Facility = d.Facility.clone()
	c.Home = d.Home.clone()
	c.CompletedExerciseIDs = slices.Clone(d.CompletedExerciseIDs)
	return c
}

// HistoryRecord is the immutable summary of an elapsed day.
type HistoryRecord struct {
	DayNumber      int       `json:"day_number"`
	Date           time.Time `json:"date"`
	Focus          Focus     `json:"focus"`
	TargetCalories float64   `json:"target_calories"`
	ActualCalories float64   `json:"actual_calories"`
	Completed      bool      `json:"completed"`
	Snapshot       DayPlan   `json:"snapshot"`
	ArchivedAt     time.Time `json:"archived_at"`
}

func newHistoryRecord(plan DayPlan) HistoryRecord {
	return HistoryRecord{
		DayNumber:      plan.DayNumber,
		Date:           plan.Date,
		Focus:          plan.Focus,
		TargetCalories: plan.TargetCalories,
		ActualCalories: plan.ActualCalories(),
		Completed:      plan.Completed,
		Snapshot:       plan.Clone(),
		ArchivedAt:     time.Time{},
	}
}

// UserProfile is a read-only snapshot of the user's body and goal data. It is passed by value.
type UserProfile struct {
	WeightKg            float64       `json:"weight_kg"`
	TargetWeightKg      *float64      `json:"target_weight_kg,omitempty"`
	TargetDurationWeeks *int          `json:"target_duration_weeks,omitempty"`
	Goal                Goal          `json:"goal"`
	ActivityLevel       ActivityLevel `json:"activity_level"`
	SkillLevel          *SkillLevel   `json:"skill_level,omitempty"`
	ExperienceScore     int           `json:"experience_score"`
}

func (p UserProfile) Validate() error {
	if p.WeightKg <= 0 {
		return fmt.Errorf("%w: weight must be positive, got %v", ErrInvalidProfile, p.WeightKg)
	}
	if p.TargetWeightKg != nil && *p.TargetWeightKg <= 0 {
		return fmt.Errorf("%w: target weight must be positive", ErrInvalidProfile)
	}
	if p.TargetDurationWeeks != nil && *p.TargetDurationWeeks <= 0 {
		return fmt.Errorf("%w: target duration must be positive", ErrInvalidProfile)
	}
	switch p.Goal {
	case GoalLoseWeight, GoalBuildMuscle, GoalMaintain, GoalGainWeight, GoalImproveFitness:
	default:
		return fmt.Errorf("%w: unknown goal %q", ErrInvalidProfile, p.Goal)
	}
	switch p.ActivityLevel {
	case ActivitySedentary, ActivityLight, ActivityModerate, ActivityActive, ActivityVeryActive:
	default:
		return fmt.Errorf("%w: unknown activity level %q", ErrInvalidProfile, p.ActivityLevel)
	}
	if p.SkillLevel != nil {
		switch *p.SkillLevel {
		case SkillBeginner, SkillIntermediate, SkillAdvanced:
		default:
			return fmt.Errorf("%w: unknown skill level %q", ErrInvalidProfile, *p.SkillLevel)
		}
	}
	if p.ExperienceScore < 0 {
		return fmt.Errorf("%w: negative experience score", ErrInvalidProfile)
	}
	return nil
}

// Skill returns the explicit skill level or the one derived from the experience score.
func (p UserProfile) Skill() SkillLevel {
	if p.SkillLevel != nil {
		return *p.SkillLevel
	}
	return SkillForExperience(p.ExperienceScore)
}

// hasProjection reports whether the profile carries both a target weight and a target duration.
func (p UserProfile) hasProjection() bool {
	return p.TargetWeightKg != nil && p.TargetDurationWeeks != nil
}

// ProgramDays is the overall program length. Zero when the profile has no target duration.
func (p UserProfile) ProgramDays() int {
	if p.TargetDurationWeeks == nil {
		return 0
	}
	return *p.TargetDurationWeeks * 7 //nolint:mnd // days per week.
}

// JobLogEntry records the outcome of one horizon run.
type JobLogEntry struct {
	Job       string    `json:"job"`
	Status    string    `json:"status"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	jobManageHorizon     = "manage_horizon"
	jobRegenerateHorizon = "regenerate_horizon"
	jobStatusSuccess     = "success"
	jobStatusFailure     = "failure"
)
