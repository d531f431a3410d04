package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Optimize runs PRAGMA optimize. It is scheduled periodically for long-lived connections.
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) Optimize(ctx context.Context) error {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		return fmt.Errorf("optimize database: %w", err)
	}
	db.logger.LogAttrs(ctx, slog.LevelInfo, "optimized database", slog.Duration("duration", time.Since(start)))
	return nil
}
