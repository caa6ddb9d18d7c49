package db

import (
	"strings"

	"github.com/jmoiron/sqlx"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func ParseDialect(s string) (Dialect, bool) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case SQLite, "":
		return SQLite, true
	case Postgres, "pgx", "postgresql":
		return Postgres, true
	}
	return "", false
}

// Rebind rewrites '?' placeholders into the dialect's native form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

// LockClause returns the row-lock suffix for a SELECT that precedes a
// write in the same transaction. SQLite takes the write lock at BEGIN
// instead, so it has none.
func (d Dialect) LockClause() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}
