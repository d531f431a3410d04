package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/burnplan/internal/contexthelpers"
	"github.com/myrjola/burnplan/internal/sqlite"
)

// sqlitePlanRepository stores the live horizon. Plans are keyed by (user, date).
type sqlitePlanRepository struct {
	baseRepository
}

func newSQLitePlanRepository(db *sqlite.Database, logger *slog.Logger) *sqlitePlanRepository {
	return &sqlitePlanRepository{baseRepository: newBaseRepository(db, logger)}
}

// List returns all non-archived plans of the user in ctx ordered by day number.
func (r *sqlitePlanRepository) List(ctx context.Context) (_ []DayPlan, err error) {
	userID := contexthelpers.UserID(ctx)

	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT day_number, plan_date, focus, target_calories, facility_session, home_session,
		       completed_exercise_ids, completed
		FROM day_plans
		WHERE user_id = ?
		ORDER BY day_number`, userID)
	if err != nil {
		return nil, fmt.Errorf("query day plans: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var plans []DayPlan
	for rows.Next() {
		var (
			plan                                 DayPlan
			dateStr, facility, home, completeIDs string
		)
		if err = rows.Scan(&plan.DayNumber, &dateStr, &plan.Focus, &plan.TargetCalories, &facility, &home,
			&completeIDs, &plan.Completed); err != nil {
			return nil, fmt.Errorf("scan day plan: %w", err)
		}
		if plan.Date, err = parseDate(dateStr); err != nil {
			return nil, err
		}
		if err = unmarshalJSON(facility, &plan.Facility); err != nil {
			return nil, fmt.Errorf("facility session of day %d: %w", plan.DayNumber, err)
		}
		if err = unmarshalJSON(home, &plan.Home); err != nil {
			return nil, fmt.Errorf("home session of day %d: %w", plan.DayNumber, err)
		}
		if err = unmarshalJSON(completeIDs, &plan.CompletedExerciseIDs); err != nil {
			return nil, fmt.Errorf("completed ids of day %d: %w", plan.DayNumber, err)
		}
		plans = append(plans, plan)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return plans, nil
}

// upsert inserts plans. A plan that already exists for the same date keeps its sessions and progress and only
// takes the new target, so that racing extensions of the same dates do not duplicate or reset days.
func (r *sqlitePlanRepository) upsert(ctx context.Context, db execer, plans []DayPlan) error {
	userID := contexthelpers.UserID(ctx)
	for _, plan := range plans {
		args, err := planArgs(plan)
		if err != nil {
			return err
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO day_plans (user_id, day_number, plan_date, focus, target_calories, facility_session,
			                       home_session, completed_exercise_ids, completed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, plan_date) DO UPDATE SET
				target_calories = excluded.target_calories`,
			append([]any{userID}, args...)...)
		if err != nil {
			return fmt.Errorf("upsert day %d: %w", plan.DayNumber, err)
		}
	}
	return nil
}

// save overwrites the progress of an existing plan after completion or substitution.
func (r *sqlitePlanRepository) save(ctx context.Context, db execer, plan DayPlan) error {
	userID := contexthelpers.UserID(ctx)
	args, err := planArgs(plan)
	if err != nil {
		return err
	}
	// args starts with day_number and plan_date, the key of the row.
	result, err := db.ExecContext(ctx, `
		UPDATE day_plans
		SET day_number = ?, focus = ?, target_calories = ?, facility_session = ?, home_session = ?,
		    completed_exercise_ids = ?, completed = ?
		WHERE user_id = ? AND plan_date = ?`,
		args[0], args[2], args[3], args[4], args[5], args[6], args[7], userID, args[1])
	if err != nil {
		return fmt.Errorf("update day %d: %w", plan.DayNumber, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("day %d on %s: %w", plan.DayNumber, formatDate(plan.Date), ErrNotFound)
	}
	return nil
}

func (r *sqlitePlanRepository) delete(ctx context.Context, db execer, dates []time.Time) error {
	userID := contexthelpers.UserID(ctx)
	for _, date := range dates {
		if _, err := db.ExecContext(ctx, `DELETE FROM day_plans WHERE user_id = ? AND plan_date = ?`,
			userID, formatDate(date)); err != nil {
			return fmt.Errorf("delete plan %s: %w", formatDate(date), err)
		}
	}
	return nil
}

// planArgs returns day_number, plan_date, focus, target_calories, facility_session, home_session,
// completed_exercise_ids and completed in that order.
func planArgs(plan DayPlan) ([]any, error) {
	facility, err := marshalJSON(plan.Facility)
	if err != nil {
		return nil, fmt.Errorf("facility session of day %d: %w", plan.DayNumber, err)
	}
	home, err := marshalJSON(plan.Home)
	if err != nil {
		return nil, fmt.Errorf("home session of day %d: %w", plan.DayNumber, err)
	}
	ids := plan.CompletedExerciseIDs
	if ids == nil {
		ids = []string{}
	}
	completed, err := marshalJSON(ids)
	if err != nil {
		return nil, fmt.Errorf("completed ids of day %d: %w", plan.DayNumber, err)
	}
	return []any{
		plan.DayNumber,
		formatDate(plan.Date),
		string(plan.Focus),
		plan.TargetCalories,
		facility,
		home,
		completed,
		plan.Completed,
	}, nil
}
