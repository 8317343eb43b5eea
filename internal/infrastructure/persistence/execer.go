package persistence

import (
	"context"
	"database/sql"
)

// Execer abstracts over *sql.DB and *sql.Tx so repository writes can join a
// caller's transaction when the caller has one.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var (
	_ Execer = (*sql.DB)(nil)
	_ Execer = (*sql.Tx)(nil)
)
