package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/glebarez/go-sqlite"

	"go.hackfix.me/portcullis/db/migrator"
	"go.hackfix.me/portcullis/db/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Pragmas applied to file databases. Concurrent invocations of the CLI wait
// for each other instead of failing with SQLITE_BUSY.
var filePragmas = []string{"busy_timeout(5000)", "journal_mode(WAL)"}

// DB is the rule store, a SQLite database whose schema migrations are embedded
// in the binary.
type DB struct {
	*sql.DB
	ctx        context.Context
	timeNow    func() time.Time
	path       string
	migrations []*migrator.Migration
}

var _ types.Querier = (*DB)(nil)

// Open opens the SQLite database at path, which is either a file path or a
// SQLite URI. In-memory databases must use a shared cache, e.g.
// "file:name?mode=memory&cache=shared". The schema is only created by Init.
func Open(ctx context.Context, path string, timeNow func() time.Time) (*DB, error) {
	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed getting migrations directory: %w", err)
	}
	migrations, err := migrator.LoadMigrations(migrationsDir)
	if err != nil {
		return nil, err
	}

	memory := isMemory(path)
	dsn := path
	if !memory {
		dsn = withPragmas(path, filePragmas...)
	}

	sqliteDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed opening SQLite database: %w", err)
	}
	if memory {
		// A shared in-memory database is dropped when its last connection is
		// closed, so keep idle connections around.
		// See https://github.com/mattn/go-sqlite3#faq
		sqliteDB.SetMaxIdleConns(10)
		sqliteDB.SetConnMaxLifetime(0)
	}

	return &DB{
		DB:         sqliteDB,
		ctx:        ctx,
		timeNow:    timeNow,
		path:       path,
		migrations: migrations,
	}, nil
}

// Init creates the database schema and records the application version it
// was initialized with. Both happen in a single transaction, so a failed Init
// leaves the database untouched.
func (d *DB) Init(appVersion string, logger *slog.Logger) error {
	dblogger := logger.With("path", d.path)
	dblogger.Debug("initializing database")

	err := d.Update(func(tx *Tx) error {
		err := migrator.RunMigrations(tx, d.migrations, migrator.MigrationUp, "all", logger)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(tx.NewContext(), `INSERT INTO _meta (version) VALUES (?)`, appVersion)
		if err != nil {
			return fmt.Errorf("failed inserting into _meta: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	dblogger.Info("database initialized")

	return nil
}

// Update runs fn within a transaction, which is committed if fn returns nil
// and rolled back otherwise.
func (d *DB) Update(fn func(tx *Tx) error) error {
	sqlTx, err := d.BeginTx(d.ctx, nil)
	if err != nil {
		return fmt.Errorf("failed starting transaction: %w", err)
	}

	if err = fn(&Tx{Tx: sqlTx, d: d}); err != nil {
		if rerr := sqlTx.Rollback(); rerr != nil {
			return errors.Join(err, fmt.Errorf("failed rolling back transaction: %w", rerr))
		}
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed committing transaction: %w", err)
	}

	return nil
}

// NewContext returns the context queries are run with.
func (d *DB) NewContext() context.Context {
	return d.ctx
}

// TimeNow returns the current system time.
func (d *DB) TimeNow() time.Time {
	return d.timeNow()
}

// Tx is a database transaction started by DB.Update.
type Tx struct {
	*sql.Tx
	d *DB
}

var _ types.Querier = (*Tx)(nil)

// NewContext returns the context queries are run with.
func (tx *Tx) NewContext() context.Context {
	return tx.d.NewContext()
}

// TimeNow returns the current system time.
func (tx *Tx) TimeNow() time.Time {
	return tx.d.TimeNow()
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func withPragmas(path string, pragmas ...string) string {
	var sb strings.Builder
	sb.WriteString(path)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, p := range pragmas {
		sb.WriteString(sep + "_pragma=" + p)
		sep = "&"
	}
	return sb.String()
}
