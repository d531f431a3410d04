package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	_ "embed"
)

//go:embed schema.sql
var schemaDefinition string

// Database holds separate pools for writes and reads. Writes are serialised through a single connection.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
}

// NewDatabase connects to the SQLite database at url and migrates it to the embedded schema.
//
// The url parameter is the path to the database file or ":memory:" for a private in-memory database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(ctx, url, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate: %w", err), db.Close())
	}

	// Recommended once per long-lived connection before the periodic optimize runs.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA optimize = 0x10002;"); err != nil {
		return nil, errors.Join(fmt.Errorf("initial optimize: %w", err), db.Close())
	}

	return db, nil
}

//nolint:gochecknoglobals // the driver must be registered exactly once per process.
var once sync.Once

const optimizedDriver = "sqlite3burnplan"

func registerOptimizedDriver() {
	sql.Register(optimizedDriver,
		&sqlite3.SQLiteDriver{
			Extensions: nil,
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if _, err := conn.Exec(
					// Temporary tables and indices live in memory.
					"PRAGMA temp_store = memory;"+
						"PRAGMA mmap_size = 30000000000;", nil); err != nil {
					return fmt.Errorf("exec connection pragmas: %w", err)
				}
				return nil
			},
		})
}

func dsn(url string, readOnly bool) string {
	params := []string{
		"_loc=auto",
		"_defer_foreign_keys=1",
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}
	if readOnly {
		params = append(params, "mode=ro", "_txlock=deferred", "_query_only=true")
	} else {
		params = append(params, "mode=rwc", "_txlock=immediate")
	}
	if strings.HasPrefix(url, "file:") && strings.Contains(url, "mode=memory") {
		// Shared in-memory database created by connect. The mode parameter is already present.
		base, query, _ := strings.Cut(url, "?")
		kept := params[:0]
		for _, p := range params {
			if !strings.HasPrefix(p, "mode=") {
				kept = append(kept, p)
			}
		}
		return base + "?" + query + "&" + strings.Join(kept, "&")
	}
	return "file:" + url + "?" + strings.Join(params, "&")
}

func connect(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	// Each in-memory database gets a random name so that parallel tests do not share data. Both pools need the
	// shared cache to see the same database. See https://www.sqlite.org/inmemorydb.html.
	if strings.Contains(url, ":memory:") {
		url = fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	}

	once.Do(registerOptimizedDriver)

	readWriteDSN := dsn(url, false)
	readWriteDB, err := sql.Open(optimizedDriver, readWriteDSN)
	if err != nil {
		return nil, fmt.Errorf("open read-write database: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "opened database", slog.String("dsn", readWriteDSN))

	readWriteDB.SetMaxOpenConns(1)
	readWriteDB.SetMaxIdleConns(1)
	readWriteDB.SetConnMaxLifetime(time.Hour)
	readWriteDB.SetConnMaxIdleTime(time.Hour)

	// sql.DB is lazy. Pinging creates the database file before the read-only pool opens it.
	if err = readWriteDB.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping read-write database: %w", err), readWriteDB.Close())
	}

	readDB, err := sql.Open(optimizedDriver, dsn(url, true))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open read database: %w", err), readWriteDB.Close())
	}

	maxReadConns := 10
	readDB.SetMaxOpenConns(maxReadConns)
	readDB.SetMaxIdleConns(maxReadConns)
	readDB.SetConnMaxLifetime(time.Hour)
	readDB.SetConnMaxIdleTime(time.Hour)

	return &Database{
		ReadWrite: readWriteDB,
		ReadOnly:  readDB,
		logger:    logger,
	}, nil
}

// WithTx runs fn inside a write transaction and commits when fn returns nil.
func (db *Database) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer db.rollback(ctx, tx)()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes both connection pools.
func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
