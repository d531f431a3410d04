package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// schemaObject is one table, index or trigger compared between the live database and the target schema.
// An empty liveSQL means the object is new, an empty targetSQL means it was removed.
type schemaObject struct {
	name      string
	liveSQL   string
	targetSQL string
}

func (o schemaObject) created() bool { return o.liveSQL == "" }
func (o schemaObject) deleted() bool { return o.targetSQL == "" }

// changed ignores the double quotes SQLite adds around table names when a table is renamed.
func (o schemaObject) changed() bool {
	return strings.ReplaceAll(o.liveSQL, `"`, "") != strings.ReplaceAll(o.targetSQL, `"`, "")
}

// migrateTo makes the live schema equal to schemaDefinition without a list of versioned migrations.
//
// The target schema is created in an attached in-memory database and diffed against the live one. Removed tables
// are dropped, new tables created and changed tables rebuilt following the generalized ALTER TABLE procedure at
// https://www.sqlite.org/lang_altertable.html#otheralter. Indexes and triggers are then synchronised.
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach target schema: %w", err)
	}
	defer detach()

	// Foreign keys cannot be toggled inside a transaction.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, enableErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); enableErr != nil {
			err = errors.Join(err, fmt.Errorf("enable foreign keys: %w", enableErr))
		}
	}()

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := db.migrateTables(ctx, tx); err != nil {
			return fmt.Errorf("migrate tables: %w", err)
		}
		for _, typ := range []string{"index", "trigger"} {
			if err := db.migrateDependents(ctx, tx, typ); err != nil {
				return fmt.Errorf("migrate %s: %w", typ, err)
			}
		}
		return checkForeignKeys(ctx, tx)
	})
	if err != nil {
		return err
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachTarget creates the target schema in a fresh in-memory database and attaches it as schemaTarget.
func (db *Database) attachTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	targetDSN := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	target, err := sql.Open("sqlite3", targetDSN)
	if err != nil {
		return nil, fmt.Errorf("open target database: %w", err)
	}
	// The attached copy keeps the shared-cache database alive after this handle is closed.
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close target database",
				slog.Any("error", closeErr))
		}
	}()

	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("create target schema: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", targetDSN); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach target database",
				slog.Any("error", detachErr))
		}
	}, nil
}

func (db *Database) rollback(ctx context.Context, tx *sql.Tx) func() {
	return func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", slog.Any("error", err))
		}
	}
}

func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx) error {
	objects, err := diffSchema(ctx, tx, "table")
	if err != nil {
		return err
	}

	for _, table := range objects {
		logger := db.logger.With(slog.String("table", table.name))
		switch {
		case table.deleted():
			logger.LogAttrs(ctx, slog.LevelInfo, "dropping table")
			if _, err = tx.ExecContext(ctx, "DROP TABLE "+table.name); err != nil {
				return fmt.Errorf("drop table %s: %w", table.name, err)
			}
		case table.created():
			logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("sql", table.targetSQL))
			if _, err = tx.ExecContext(ctx, table.targetSQL); err != nil {
				return fmt.Errorf("create table %s: %w", table.name, err)
			}
		case table.changed():
			logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
				slog.String("live_sql", table.liveSQL),
				slog.String("target_sql", table.targetSQL))
			if err = rebuildTable(ctx, tx, table); err != nil {
				return fmt.Errorf("rebuild table %s: %w", table.name, err)
			}
		}
	}
	return nil
}

// rebuildTable creates the new definition under a temporary name, copies the shared columns over and swaps the
// tables. Indexes and triggers of the old table are dropped with it and recreated by migrateDependents.
func rebuildTable(ctx context.Context, tx *sql.Tx, table schemaObject) error {
	tempName := table.name + "_migration_temp"
	createSQL := strings.Replace(table.targetSQL, table.name, tempName, 1)
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create temporary table: %w", err)
	}

	// Quoted because column names may be SQLite keywords.
	columns, err := queryStrings(ctx, tx, `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table_name) AS live
         JOIN PRAGMA_TABLE_INFO(:table_name, 'schemaTarget') AS target ON target.name = live.name`,
		sql.Named("table_name", table.name))
	if err != nil {
		return fmt.Errorf("query common columns: %w", err)
	}
	if len(columns) > 0 {
		common := strings.Join(columns, ", ")
		//nolint:gosec // identifiers come from the schema, not user input.
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tempName, common, common, table.name)
		if _, err = tx.ExecContext(ctx, copySQL); err != nil {
			return fmt.Errorf("copy rows: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, "DROP TABLE "+table.name); err != nil {
		return fmt.Errorf("drop old table: %w", err)
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tempName, table.name)); err != nil {
		return fmt.Errorf("rename temporary table: %w", err)
	}
	return nil
}

// migrateDependents synchronises indexes or triggers. Changed definitions are dropped and recreated.
func (db *Database) migrateDependents(ctx context.Context, tx *sql.Tx, typ string) error {
	objects, err := diffSchema(ctx, tx, typ)
	if err != nil {
		return err
	}

	dropSQL := "DROP " + strings.ToUpper(typ) + " "
	for _, object := range objects {
		if !object.created() && !object.deleted() && !object.changed() {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating schema object",
			slog.String("type", typ),
			slog.String("name", object.name),
			slog.String("target_sql", object.targetSQL))
		if !object.created() {
			if _, err = tx.ExecContext(ctx, dropSQL+object.name); err != nil {
				return fmt.Errorf("drop %s %s: %w", typ, object.name, err)
			}
		}
		if !object.deleted() {
			if _, err = tx.ExecContext(ctx, object.targetSQL); err != nil {
				return fmt.Errorf("create %s %s: %w", typ, object.name, err)
			}
		}
	}
	return nil
}

// diffSchema lists every object of typ in either schema. Internal objects such as autoindexes are skipped.
func diffSchema(ctx context.Context, tx *sql.Tx, typ string) ([]schemaObject, error) {
	rows, err := tx.QueryContext(ctx, `SELECT COALESCE(live.name, target.name),
       COALESCE(live.sql, ''),
       COALESCE(target.sql, '')
FROM (SELECT name, sql FROM main.sqlite_schema WHERE type = :type AND name NOT LIKE 'sqlite_%' AND sql IS NOT NULL) AS live
         FULL OUTER JOIN
     (SELECT name, sql FROM schemaTarget.sqlite_schema WHERE type = :type AND name NOT LIKE 'sqlite_%' AND sql IS NOT NULL) AS target
     ON live.name = target.name
ORDER BY 1`, sql.Named("type", typ))
	if err != nil {
		return nil, fmt.Errorf("query %s diff: %w", typ, err)
	}
	defer rows.Close()

	var objects []schemaObject
	for rows.Next() {
		var o schemaObject
		if err = rows.Scan(&o.name, &o.liveSQL, &o.targetSQL); err != nil {
			return nil, fmt.Errorf("scan %s diff: %w", typ, err)
		}
		objects = append(objects, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s diff: %w", typ, err)
	}
	return objects, nil
}

func queryStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var s string
		if err = rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		results = append(results, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return results, nil
}

func checkForeignKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	var violations []string
	for rows.Next() {
		var (
			table  string
			rowID  sql.NullInt64
			parent string
			fkID   int
		)
		if err = rows.Scan(&table, &rowID, &parent, &fkID); err != nil {
			return fmt.Errorf("scan foreign key violation: %w", err)
		}
		violations = append(violations, table+" -> "+parent)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("foreign key check rows: %w", err)
	}
	if len(violations) > 0 {
		return fmt.Errorf("foreign key violations: %s", strings.Join(violations, ", ")) //nolint:err113 // one-off.
	}
	return nil
}
