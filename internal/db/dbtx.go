package db

import (
	"context"
	"database/sql"
)

// DBTX is the common interface satisfied by both *sql.DB and *sql.Tx.
// Repository implementations depend on this interface instead of the
// concrete *sql.DB, enabling transactional composition.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Compile-time verification that *sql.DB, *sql.Tx and *Conn satisfy DBTX.
var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
	_ DBTX = (*Conn)(nil)
)

// Conn binds a DBTX to its SQL dialect. Queries are written with '?'
// placeholders and rebound on the way through.
type Conn struct {
	inner   DBTX
	dialect Dialect
}

// Wrap returns conn bound to dialect. Wrapping a *Conn rebinds it.
func Wrap(conn DBTX, dialect Dialect) *Conn {
	if c, ok := conn.(*Conn); ok {
		conn = c.inner
	}
	return &Conn{inner: conn, dialect: dialect}
}

func (c *Conn) Dialect() Dialect { return c.dialect }

func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.inner.ExecContext(ctx, c.dialect.Rebind(query), args...)
}

func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.inner.QueryContext(ctx, c.dialect.Rebind(query), args...)
}

func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.inner.QueryRowContext(ctx, c.dialect.Rebind(query), args...)
}

// DialectOf reports the dialect of conn, defaulting to SQLite for bare
// *sql.DB and *sql.Tx values.
func DialectOf(conn DBTX) Dialect {
	if d, ok := conn.(interface{ Dialect() Dialect }); ok {
		return d.Dialect()
	}
	return SQLite
}
