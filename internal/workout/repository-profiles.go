package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/myrjola/burnplan/internal/contexthelpers"
	"github.com/myrjola/burnplan/internal/sqlite"
)

type sqliteProfileRepository struct {
	baseRepository
}

func newSQLiteProfileRepository(db *sqlite.Database, logger *slog.Logger) *sqliteProfileRepository {
	return &sqliteProfileRepository{baseRepository: newBaseRepository(db, logger)}
}

// Get returns the profile of the user in ctx or ErrNotFound.
func (r *sqliteProfileRepository) Get(ctx context.Context) (UserProfile, error) {
	userID := contexthelpers.UserID(ctx)

	var (
		profile        UserProfile
		targetWeight   sql.NullFloat64
		targetDuration sql.NullInt64
		skill          sql.NullString
	)
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT weight_kg, target_weight_kg, target_duration_weeks, goal, activity_level, skill_level,
		       experience_score
		FROM profiles
		WHERE user_id = ?`, userID).Scan(
		&profile.WeightKg,
		&targetWeight,
		&targetDuration,
		&profile.Goal,
		&profile.ActivityLevel,
		&skill,
		&profile.ExperienceScore,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return UserProfile{}, fmt.Errorf("profile of user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return UserProfile{}, fmt.Errorf("query profile: %w", err)
	}

	if targetWeight.Valid {
		profile.TargetWeightKg = &targetWeight.Float64
	}
	if targetDuration.Valid {
		weeks := int(targetDuration.Int64)
		profile.TargetDurationWeeks = &weeks
	}
	if skill.Valid {
		level := SkillLevel(skill.String)
		profile.SkillLevel = &level
	}
	return profile, nil
}

// Set creates the user when needed and upserts the profile.
func (r *sqliteProfileRepository) Set(ctx context.Context, profile UserProfile) error {
	userID := contexthelpers.UserID(ctx)

	var skill *string
	if profile.SkillLevel != nil {
		s := string(*profile.SkillLevel)
		skill = &s
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (id) VALUES (?) ON CONFLICT (id) DO NOTHING`,
			userID); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (user_id, weight_kg, target_weight_kg, target_duration_weeks, goal, activity_level,
			                      skill_level, experience_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				weight_kg = excluded.weight_kg,
				target_weight_kg = excluded.target_weight_kg,
				target_duration_weeks = excluded.target_duration_weeks,
				goal = excluded.goal,
				activity_level = excluded.activity_level,
				skill_level = excluded.skill_level,
				experience_score = excluded.experience_score,
				updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`,
			userID,
			profile.WeightKg,
			profile.TargetWeightKg,
			profile.TargetDurationWeeks,
			profile.Goal,
			profile.ActivityLevel,
			skill,
			profile.ExperienceScore,
		)
		if err != nil {
			return fmt.Errorf("upsert profile: %w", err)
		}
		return nil
	})
}

// ListUserIDs returns every user with a profile.
func (r *sqliteProfileRepository) ListUserIDs(ctx context.Context) (_ []int, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `SELECT user_id FROM profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query user ids: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var ids []int
	for rows.Next() {
		var id int
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
}
