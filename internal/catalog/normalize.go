package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/myrjola/burnplan/internal/workout"
)

var errInvalidRecord = errors.New("invalid catalog record")

// facilityRecord is one entry of the equipment catalog.
type facilityRecord struct {
	Name            string  `yaml:"name"`
	TargetMuscle    string  `yaml:"target_muscle"`
	Equipment       string  `yaml:"equipment"`
	Difficulty      string  `yaml:"difficulty"`
	MET             float64 `yaml:"met"`
	Video           string  `yaml:"video"`
	Sets            int     `yaml:"sets"`
	Reps            string  `yaml:"reps"`
	DurationSeconds int     `yaml:"duration_seconds"`
}

// homeDocument is the bodyweight catalog. Its records use a different vocabulary and a numeric level.
type homeDocument struct {
	Exercises []homeRecord `yaml:"exercises"`
}

type homeRecord struct {
	Title       string  `yaml:"title"`
	Category    string  `yaml:"category"`
	Level       int     `yaml:"level"`
	METValue    float64 `yaml:"metValue"`
	Demo        string  `yaml:"demo"`
	Type        string  `yaml:"type"`
	DurationSec int     `yaml:"durationSec"`
	Recommended string  `yaml:"recommended"`
}

//nolint:gochecknoglobals // read-only lookup table.
var areaByMuscle = map[string]workout.BodyArea{
	"chest":        workout.AreaUpper,
	"back":         workout.AreaUpper,
	"lats":         workout.AreaUpper,
	"shoulders":    workout.AreaUpper,
	"biceps":       workout.AreaUpper,
	"triceps":      workout.AreaUpper,
	"arms":         workout.AreaUpper,
	"push":         workout.AreaUpper,
	"pull":         workout.AreaUpper,
	"upper":        workout.AreaUpper,
	"legs":         workout.AreaLower,
	"quads":        workout.AreaLower,
	"hamstrings":   workout.AreaLower,
	"glutes":       workout.AreaLower,
	"calves":       workout.AreaLower,
	"lower":        workout.AreaLower,
	"core":         workout.AreaCore,
	"abs":          workout.AreaCore,
	"obliques":     workout.AreaCore,
	"cardio":       workout.AreaCardio,
	"conditioning": workout.AreaCardio,
	"full body":    workout.AreaFullBody,
	"full_body":    workout.AreaFullBody,
	"total body":   workout.AreaFullBody,
}

func bodyArea(muscle string) (workout.BodyArea, error) {
	area, ok := areaByMuscle[strings.ToLower(strings.TrimSpace(muscle))]
	if !ok {
		return "", fmt.Errorf("%w: unknown muscle group %q", errInvalidRecord, muscle)
	}
	return area, nil
}

func skillFromDifficulty(difficulty string) (workout.SkillLevel, error) {
	switch strings.ToLower(strings.TrimSpace(difficulty)) {
	case "beginner", "easy":
		return workout.SkillBeginner, nil
	case "intermediate", "medium":
		return workout.SkillIntermediate, nil
	case "advanced", "hard":
		return workout.SkillAdvanced, nil
	default:
		return "", fmt.Errorf("%w: unknown difficulty %q", errInvalidRecord, difficulty)
	}
}

func skillFromLevel(level int) (workout.SkillLevel, error) {
	switch level {
	case 1:
		return workout.SkillBeginner, nil
	case 2: //nolint:mnd // numeric catalog level.
		return workout.SkillIntermediate, nil
	case 3: //nolint:mnd // numeric catalog level.
		return workout.SkillAdvanced, nil
	default:
		return "", fmt.Errorf("%w: level %d out of range", errInvalidRecord, level)
	}
}

// normalizeFacility converts an equipment record. A zero MET is left for the estimator.
func normalizeFacility(r facilityRecord) (workout.Exercise, error) {
	if strings.TrimSpace(r.Name) == "" {
		return workout.Exercise{}, fmt.Errorf("%w: facility record without name", errInvalidRecord)
	}
	area, err := bodyArea(r.TargetMuscle)
	if err != nil {
		return workout.Exercise{}, fmt.Errorf("facility %s: %w", r.Name, err)
	}
	level, err := skillFromDifficulty(r.Difficulty)
	if err != nil {
		return workout.Exercise{}, fmt.Errorf("facility %s: %w", r.Name, err)
	}
	if r.MET < 0 {
		return workout.Exercise{}, fmt.Errorf("facility %s: %w: negative MET", r.Name, errInvalidRecord)
	}

	ex := workout.Exercise{
		Name:            strings.TrimSpace(r.Name),
		Area:            area,
		Equipment:       r.Equipment,
		Level:           level,
		MET:             r.MET,
		Demo:            r.Video,
		Kind:            workout.KindSetRep,
		BaselineSets:    r.Sets,
		BaselineRepsMin: 0,
		BaselineRepsMax: 0,
		BaselineSeconds: 0,
	}
	if r.DurationSeconds > 0 {
		ex.Kind = workout.KindDuration
		ex.BaselineSeconds = r.DurationSeconds
		return ex, nil
	}
	if ex.BaselineRepsMin, ex.BaselineRepsMax, err = parseReps(r.Reps); err != nil {
		return workout.Exercise{}, fmt.Errorf("facility %s: %w", r.Name, err)
	}
	return ex, nil
}

// normalizeHome converts a bodyweight record. Home exercises need no equipment.
func normalizeHome(r homeRecord) (workout.Exercise, error) {
	if strings.TrimSpace(r.Title) == "" {
		return workout.Exercise{}, fmt.Errorf("%w: home record without title", errInvalidRecord)
	}
	area, err := bodyArea(r.Category)
	if err != nil {
		return workout.Exercise{}, fmt.Errorf("home %s: %w", r.Title, err)
	}
	level, err := skillFromLevel(r.Level)
	if err != nil {
		return workout.Exercise{}, fmt.Errorf("home %s: %w", r.Title, err)
	}
	if r.METValue < 0 {
		return workout.Exercise{}, fmt.Errorf("home %s: %w: negative MET", r.Title, errInvalidRecord)
	}

	ex := workout.Exercise{
		Name:            strings.TrimSpace(r.Title),
		Area:            area,
		Equipment:       "bodyweight",
		Level:           level,
		MET:             r.METValue,
		Demo:            r.Demo,
		Kind:            "",
		BaselineSets:    0,
		BaselineRepsMin: 0,
		BaselineRepsMax: 0,
		BaselineSeconds: 0,
	}
	switch strings.ToLower(r.Type) {
	case "timed":
		ex.Kind = workout.KindDuration
		ex.BaselineSeconds = r.DurationSec
		ex.BaselineSets = 1
	case "reps", "":
		ex.Kind = workout.KindSetRep
		if ex.BaselineSets, ex.BaselineRepsMin, ex.BaselineRepsMax, err = parseRecommended(r.Recommended); err != nil {
			return workout.Exercise{}, fmt.Errorf("home %s: %w", r.Title, err)
		}
	default:
		return workout.Exercise{}, fmt.Errorf("home %s: %w: unknown type %q", r.Title, errInvalidRecord, r.Type)
	}
	return ex, nil
}

// parseReps parses "8-12" or "10". An empty string means no recommendation.
func parseReps(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, nil
	}
	lo, hi, isRange := strings.Cut(s, "-")
	minReps, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: reps %q", errInvalidRecord, s)
	}
	if !isRange {
		return minReps, minReps, nil
	}
	maxReps, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || maxReps < minReps {
		return 0, 0, fmt.Errorf("%w: reps %q", errInvalidRecord, s)
	}
	return minReps, maxReps, nil
}

// parseRecommended parses "3 x 12" or "3 x 10-15" into sets and a rep range. A bare rep range has no set count.
func parseRecommended(s string) (int, int, int, error) {
	s = strings.TrimSpace(s)
	setsPart, repsPart, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		minReps, maxReps, err := parseReps(s)
		return 0, minReps, maxReps, err
	}
	sets, err := strconv.Atoi(strings.TrimSpace(setsPart))
	if err != nil || sets <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: recommended %q", errInvalidRecord, s)
	}
	minReps, maxReps, err := parseReps(repsPart)
	if err != nil {
		return 0, 0, 0, err
	}
	return sets, minReps, maxReps, nil
}
