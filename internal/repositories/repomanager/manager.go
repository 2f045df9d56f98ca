// Package repomanager opens the configured database (embedded SQLite or
// PostgreSQL through pgx), applies the goose migrations and vends the
// repositories bound to it.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/newsnexus/internal/dbx"
	"github.com/dmitrijs2005/newsnexus/internal/migrations"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/accounts"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/articles"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/posts"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/settings"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Posts() posts.Repository
	Accounts() accounts.Repository
	Settings() settings.Repository
	Articles() articles.Repository
	Close() error
}

// Manager is the RepositoryManager for both supported drivers. Queries are
// written once with '?' placeholders and rebound by dbx for pgx.
type Manager struct {
	db     *dbx.DB
	driver string
}

// seams for tests
var (
	sqlOpen   = sql.Open
	migrateUp = migrations.Up
)

// Open connects to dsn with driver ("sqlite" or "pgx") and verifies the
// connection.
func Open(ctx context.Context, driver, dsn string) (*Manager, error) {
	if _, _, err := migrations.Dialect(driver); err != nil {
		return nil, err
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	// SQLite serialises writers anyway; one connection also keeps
	// in-memory databases alive across calls.
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	return New(db, driver), nil
}

// New wraps an already opened handle.
func New(db *sql.DB, driver string) *Manager {
	return &Manager{db: dbx.New(db, driver), driver: driver}
}

// RunMigrations applies the embedded migrations for the manager's driver.
func (m *Manager) RunMigrations(ctx context.Context) error {
	return migrateUp(ctx, m.db.SQL(), m.driver)
}

func (m *Manager) Posts() posts.Repository {
	return posts.NewSQLRepository(m.db)
}

func (m *Manager) Accounts() accounts.Repository {
	return accounts.NewSQLRepository(m.db)
}

func (m *Manager) Settings() settings.Repository {
	return settings.NewSQLRepository(m.db)
}

func (m *Manager) Articles() articles.Repository {
	return articles.NewSQLRepository(m.db)
}

func (m *Manager) Close() error {
	return m.db.SQL().Close()
}
