package engine

import (
	"context"
	"database/sql"

	"changeplan/internal/dbclient"
	"changeplan/internal/domain"
)

// runReverted is the single choke point every mutating probe passes through.
// It takes a dedicated connection, disables foreign-key enforcement, begins
// an explicit transaction, runs fn, and rolls back on every exit path. No
// probe ever commits: the store is byte-for-byte unchanged when this returns.
func runReverted(ctx context.Context, db *sql.DB, dialect dbclient.Dialect, table string, op domain.Operation, fn func(tx *sql.Tx) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer conn.Close()

	if err := dialect.DisableForeignKeys(ctx, conn); err != nil {
		return &ConnectionError{Err: err}
	}
	// Restore enforcement before the connection returns to the pool.
	defer dialect.EnableForeignKeys(ctx, conn)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if dialect.IsIntegrityViolation(err) {
			return &IntegrityError{Table: table, Op: op, Err: err}
		}
		return err
	}
	return nil
}
