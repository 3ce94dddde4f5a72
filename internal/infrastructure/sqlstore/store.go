// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package sqlstore implements the meeting and task repositories on a SQL
// database. PostgreSQL is reached through pgx; SQLite through modernc.org/sqlite.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	_ "modernc.org/sqlite"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/pkg/metrics"
)

//go:embed migrations
var migrations embed.FS

// Supported backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

const pgUniqueViolation = "23505"

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store holds the database handle shared by the SQL repositories.
type Store struct {
	db      *sqlx.DB
	backend string
}

// Open connects to the database for the given backend.
func Open(ctx context.Context, backend, dsn string) (*Store, error) {
	var driver string
	switch backend {
	case BackendPostgres:
		driver = "pgx"
	case BackendSQLite:
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported SQL backend %q", backend)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", backend, err)
	}
	if backend == BackendSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	return &Store{db: db, backend: backend}, nil
}

// Migrate applies the embedded migrations in the given direction.
func (s *Store) Migrate(direction migrate.MigrationDirection) (int, error) {
	source := migrate.AssetMigrationSource{
		Asset: migrations.ReadFile,
		AssetDir: func(path string) ([]string, error) {
			entries, err := migrations.ReadDir(path)
			if err != nil {
				return nil, err
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			return names, nil
		},
		Dir: "migrations",
	}

	dialect := "postgres"
	if s.backend == BackendSQLite {
		dialect = "sqlite3"
	}
	return migrate.Exec(s.db.DB, dialect, source, direction)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsReady pings the database.
func (s *Store) IsReady(ctx context.Context) bool {
	if s == nil || s.db == nil {
		return false
	}
	return s.db.PingContext(ctx) == nil
}

// observe records latency and failures of a store call.
func (s *Store) observe(method string, started time.Time, err *error) {
	metrics.ObserveStore(s.backend, method, started, err)
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.NewInternalError("failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "error rolling back transaction", logging.ErrKey, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.NewInternalError("failed to commit transaction", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a primary key or unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps a database error to the domain taxonomy.
func translate(ctx context.Context, entity, op string, notFound error, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.NewNotFoundError(entity+" not found", notFound, err)
	case isUniqueViolation(err):
		return domain.NewConflictError(entity+" already exists", err)
	}
	slog.ErrorContext(ctx, fmt.Sprintf("error on %s %s in SQL store", op, entity), logging.ErrKey, err)
	return domain.NewInternalError(fmt.Sprintf("failed to %s %s in store", op, entity), err)
}

// checkRevisionWrite turns the row count of a revision-guarded write into a
// domain error. Zero rows means the record is gone or has moved on.
func (s *Store) checkRevisionWrite(ctx context.Context, table, uid, entity string, notFound error, res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.NewInternalError("failed to read affected rows", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	query := s.db.Rebind("SELECT 1 FROM " + table + " WHERE uid = ?")
	if err := s.db.GetContext(ctx, &exists, query, uid); err != nil {
		return translate(ctx, entity, "check", notFound, err)
	}
	return domain.NewConflictError(entity+" has been modified", domain.ErrRevisionMismatch)
}
