// Package catalog loads the facility and home exercise catalogs and normalizes them into workout exercises.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/myrjola/burnplan/internal/workout"
)

//go:embed facility.yaml
var facilityYAML []byte

//go:embed home.yaml
var homeYAML []byte

// maxConcurrentEstimates bounds parallel estimator calls at load time.
const maxConcurrentEstimates = 4

// Catalog holds the two normalized pools. It is immutable after loading and safe for concurrent use.
type Catalog struct {
	facility []workout.Exercise
	home     []workout.Exercise
}

// Load parses the embedded catalogs.
func Load(ctx context.Context, estimator Estimator, logger *slog.Logger) (*Catalog, error) {
	return Parse(ctx, facilityYAML, homeYAML, estimator, logger)
}

// Parse normalizes raw facility and home catalogs. Records without a MET value are completed by estimator.
func Parse(ctx context.Context, facility, home []byte, estimator Estimator, logger *slog.Logger) (*Catalog, error) {
	var facilityRecords []facilityRecord
	if err := decodeStrict(facility, &facilityRecords); err != nil {
		return nil, fmt.Errorf("decode facility catalog: %w", err)
	}
	var homeDoc homeDocument
	if err := decodeStrict(home, &homeDoc); err != nil {
		return nil, fmt.Errorf("decode home catalog: %w", err)
	}

	c := &Catalog{
		facility: make([]workout.Exercise, 0, len(facilityRecords)),
		home:     make([]workout.Exercise, 0, len(homeDoc.Exercises)),
	}
	for _, r := range facilityRecords {
		ex, err := normalizeFacility(r)
		if err != nil {
			return nil, err
		}
		c.facility = append(c.facility, ex)
	}
	for _, r := range homeDoc.Exercises {
		ex, err := normalizeHome(r)
		if err != nil {
			return nil, err
		}
		c.home = append(c.home, ex)
	}
	if err := checkUniqueNames(workout.SessionFacility, c.facility); err != nil {
		return nil, err
	}
	if err := checkUniqueNames(workout.SessionHome, c.home); err != nil {
		return nil, err
	}

	estimated, err := estimateMissing(ctx, estimator, c.facility, c.home)
	if err != nil {
		return nil, err
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "loaded exercise catalogs",
		slog.Int("facility", len(c.facility)),
		slog.Int("home", len(c.home)),
		slog.Int("estimated_met", estimated))
	return c, nil
}

// Pool returns a copy of the normalized pool of kind.
func (c *Catalog) Pool(_ context.Context, kind workout.SessionKind) ([]workout.Exercise, error) {
	switch kind {
	case workout.SessionFacility:
		return slices.Clone(c.facility), nil
	case workout.SessionHome:
		return slices.Clone(c.home), nil
	default:
		return nil, fmt.Errorf("catalog %q: %w", kind, workout.ErrNotFound)
	}
}

func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func checkUniqueNames(kind workout.SessionKind, pool []workout.Exercise) error {
	seen := make(map[string]bool, len(pool))
	for _, ex := range pool {
		key := strings.ToLower(ex.Name)
		if seen[key] {
			return fmt.Errorf("%s catalog: %w: duplicate name %q", kind, errInvalidRecord, ex.Name)
		}
		seen[key] = true
	}
	return nil
}

// estimateMissing fills in zero MET values in place and returns how many were estimated.
func estimateMissing(ctx context.Context, estimator Estimator, pools ...[]workout.Exercise) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEstimates)

	count := 0
	for _, pool := range pools {
		for i := range pool {
			if pool[i].MET > 0 {
				continue
			}
			count++
			ex := &pool[i]
			g.Go(func() error {
				met, err := estimator.EstimateMET(gctx, *ex)
				if err != nil {
					return err //nolint:wrapcheck // estimators name the exercise.
				}
				ex.MET = met
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("estimate missing MET values: %w", err)
	}
	return count, nil
}
