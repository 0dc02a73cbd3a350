package core

import "github.com/jmoiron/sqlx"

// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx so repositories can run inside a transaction.
type DBExecutor interface {
	sqlx.ExtContext
}
