package workout

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/burnplan/internal/sqlite"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"
const dateFormat = time.DateOnly

// execer is satisfied by both *sql.DB and *sql.Tx so that writes can be batched into one transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type baseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newBaseRepository(db *sqlite.Database, logger *slog.Logger) baseRepository {
	return baseRepository{db: db, logger: logger}
}

// repository aggregates the stores backing one Service.
type repository struct {
	profiles *sqliteProfileRepository
	plans    *sqlitePlanRepository
	history  *sqliteHistoryRepository
	jobLogs  *sqliteJobLogRepository
	db       *sqlite.Database
}

func newRepository(db *sqlite.Database, logger *slog.Logger) *repository {
	return &repository{
		profiles: newSQLiteProfileRepository(db, logger),
		plans:    newSQLitePlanRepository(db, logger),
		history:  newSQLiteHistoryRepository(db, logger),
		jobLogs:  newSQLiteJobLogRepository(db, logger),
		db:       db,
	}
}

// persistChange writes a horizon change and its job log entry in one transaction.
func (r *repository) persistChange(ctx context.Context, change HorizonChange, entry JobLogEntry) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := r.history.insert(ctx, tx, change.Archived); err != nil {
			return err
		}
		if err := r.plans.delete(ctx, tx, change.Removed); err != nil {
			return err
		}
		if err := r.plans.upsert(ctx, tx, change.Generated); err != nil {
			return err
		}
		return r.jobLogs.insert(ctx, tx, entry)
	})
}

func formatDate(t time.Time) string {
	return t.Format(dateFormat)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return string(b), nil
}

func unmarshalJSON(s string, v any) error {
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}
	return nil
}
