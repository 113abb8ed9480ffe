package dbclient

import (
	"context"
	"database/sql"
	"errors"

	"changeplan/internal/domain"

	sqlite "modernc.org/sqlite"
)

// SQLITE_CONSTRAINT primary result code; extended constraint codes carry it
// in their low byte.
const sqliteConstraint = 19

type sqliteDialect struct{}

func (sqliteDialect) DriverName() string { return "sqlite" }

// DSN opens the file in WAL mode with a busy timeout for concurrent access.
func (sqliteDialect) DSN(t domain.Target) string {
	return t.Host + "?_journal_mode=WAL&_busy_timeout=5000"
}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) DisableForeignKeys(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF")
	return err
}

func (sqliteDialect) EnableForeignKeys(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON")
	return err
}

func (sqliteDialect) IsIntegrityViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqliteConstraint
	}
	return false
}
