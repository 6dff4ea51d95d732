// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fedinode/internal/dbx"
	"github.com/dmitrijs2005/fedinode/internal/server/migrations"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/actors"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/followers"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/keys"
	"github.com/dmitrijs2005/fedinode/internal/server/repositories/outbox"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Actors returns an actors.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Actors(db dbx.DBTX) actors.Repository {
	return actors.NewPostgresRepository(db)
}

// Keys returns a keys.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Keys(db dbx.DBTX) keys.Repository {
	return keys.NewPostgresRepository(db)
}

// Followers returns a followers.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Followers(db dbx.DBTX) followers.Repository {
	return followers.NewPostgresRepository(db)
}

// Outbox returns an outbox.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Outbox(db dbx.DBTX) outbox.Repository {
	return outbox.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

// OpenDB opens a pgx-backed *sql.DB and checks connectivity.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
