package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/burnplan/internal/contexthelpers"
	"github.com/myrjola/burnplan/internal/sqlite"
)

// sqliteHistoryRepository stores archived day summaries. Records are never updated once written.
type sqliteHistoryRepository struct {
	baseRepository
}

func newSQLiteHistoryRepository(db *sqlite.Database, logger *slog.Logger) *sqliteHistoryRepository {
	return &sqliteHistoryRepository{baseRepository: newBaseRepository(db, logger)}
}

// insert archives records. Archiving the same date twice keeps the first record.
func (r *sqliteHistoryRepository) insert(ctx context.Context, db execer, records []HistoryRecord) error {
	userID := contexthelpers.UserID(ctx)
	for _, record := range records {
		snapshot, err := marshalJSON(record.Snapshot)
		if err != nil {
			return fmt.Errorf("snapshot of day %d: %w", record.DayNumber, err)
		}
		if _, err = db.ExecContext(ctx, `
			INSERT INTO plan_history (user_id, day_number, plan_date, focus, target_calories, actual_calories,
			                          completed, snapshot)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, plan_date) DO NOTHING`,
			userID,
			record.DayNumber,
			formatDate(record.Date),
			string(record.Focus),
			record.TargetCalories,
			record.ActualCalories,
			record.Completed,
			snapshot,
		); err != nil {
			return fmt.Errorf("insert history of day %d: %w", record.DayNumber, err)
		}
	}
	return nil
}

// List returns the archived days of the user in ctx, newest first.
func (r *sqliteHistoryRepository) List(ctx context.Context) (_ []HistoryRecord, err error) {
	userID := contexthelpers.UserID(ctx)

	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT day_number, plan_date, focus, target_calories, actual_calories, completed, snapshot, archived_at
		FROM plan_history
		WHERE user_id = ?
		ORDER BY plan_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var records []HistoryRecord
	for rows.Next() {
		var (
			record                        HistoryRecord
			dateStr, snapshot, archivedAt string
		)
		if err = rows.Scan(&record.DayNumber, &dateStr, &record.Focus, &record.TargetCalories,
			&record.ActualCalories, &record.Completed, &snapshot, &archivedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if record.Date, err = parseDate(dateStr); err != nil {
			return nil, err
		}
		if record.ArchivedAt, err = time.Parse(timestampFormat, archivedAt); err != nil {
			return nil, fmt.Errorf("parse archived_at: %w", err)
		}
		if err = unmarshalJSON(snapshot, &record.Snapshot); err != nil {
			return nil, fmt.Errorf("snapshot of day %d: %w", record.DayNumber, err)
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

// LastDayNumber returns the day number of the latest archived date, or zero without history.
func (r *sqliteHistoryRepository) LastDayNumber(ctx context.Context) (int, error) {
	userID := contexthelpers.UserID(ctx)

	var dayNumber int
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT day_number
		FROM plan_history
		WHERE user_id = ?
		ORDER BY plan_date DESC
		LIMIT 1`, userID).Scan(&dayNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query last archived day number: %w", err)
	}
	return dayNumber, nil
}
