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

// sqliteJobLogRepository records the outcome of horizon runs for observability.
type sqliteJobLogRepository struct {
	baseRepository
}

func newSQLiteJobLogRepository(db *sqlite.Database, logger *slog.Logger) *sqliteJobLogRepository {
	return &sqliteJobLogRepository{baseRepository: newBaseRepository(db, logger)}
}

func (r *sqliteJobLogRepository) insert(ctx context.Context, db execer, entry JobLogEntry) error {
	userID := contexthelpers.UserID(ctx)
	if _, err := db.ExecContext(ctx, `INSERT INTO job_logs (user_id, job, status, label) VALUES (?, ?, ?, ?)`,
		userID, entry.Job, entry.Status, entry.Label); err != nil {
		return fmt.Errorf("insert job log: %w", err)
	}
	return nil
}

// List returns the latest limit entries of the user in ctx, newest first.
func (r *sqliteJobLogRepository) List(ctx context.Context, limit int) (_ []JobLogEntry, err error) {
	userID := contexthelpers.UserID(ctx)

	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT job, status, label, created_at
		FROM job_logs
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query job logs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var entries []JobLogEntry
	for rows.Next() {
		var (
			entry     JobLogEntry
			createdAt string
		)
		if err = rows.Scan(&entry.Job, &entry.Status, &entry.Label, &createdAt); err != nil {
			return nil, fmt.Errorf("scan job log: %w", err)
		}
		if entry.CreatedAt, err = time.Parse(timestampFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}
