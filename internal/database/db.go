package database

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Queryable is the common query surface shared by *sqlx.DB and *sqlx.Tx,
// allowing store methods to run either inside or outside of a transaction.
type Queryable interface {
	sqlx.Queryer
	sqlx.Execer

	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	NamedExec(query string, arg interface{}) (sql.Result, error)
	Rebind(query string) string
}
