package dbx

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Conn is a DBTX that can also open a transactional scope. Repositories that
// need read-modify-write take a Conn; inside InTx they must only use the tx
// handle they are given.
type Conn interface {
	DBTX
	InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// DB wraps *sql.DB and rewrites '?' placeholders into the driver's bind style
// (e.g. $1 for pgx). Queries in repositories are always written with '?'.
type DB struct {
	db       *sql.DB
	bindType int
}

// New binds db to the placeholder style of driverName ("sqlite", "pgx", ...).
// Unknown drivers keep '?' untouched.
func New(db *sql.DB, driverName string) *DB {
	return &DB{db: db, bindType: sqlx.BindType(driverName)}
}

// SQL exposes the underlying handle for migrations and Close.
func (d *DB) SQL() *sql.DB {
	return d.db
}

func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, sqlx.Rebind(d.bindType, query), args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, sqlx.Rebind(d.bindType, query), args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, sqlx.Rebind(d.bindType, query), args...)
}

func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, d.db, nil, func(ctx context.Context, tx DBTX) error {
		return fn(ctx, &txConn{tx: tx, bindType: d.bindType})
	})
}

// txConn is the rebinding view of an open transaction. Nested InTx calls join
// the outer transaction.
type txConn struct {
	tx       DBTX
	bindType int
}

func (t *txConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, sqlx.Rebind(t.bindType, query), args...)
}

func (t *txConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, sqlx.Rebind(t.bindType, query), args...)
}

func (t *txConn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, sqlx.Rebind(t.bindType, query), args...)
}

func (t *txConn) InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return fn(ctx, t)
}
