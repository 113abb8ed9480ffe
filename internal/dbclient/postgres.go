package dbclient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"changeplan/internal/domain"

	"github.com/lib/pq"
)

type postgresDialect struct{}

func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) DSN(t domain.Target) string {
	port := t.Port
	if port == 0 {
		port = 5432
	}
	sslMode := t.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		t.Host, port, t.Username, t.Password, t.Database, sslMode,
	)
}

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

// Postgres has no session switch for FK checks; replica replication role
// skips trigger-based enforcement. Requires a role with sufficient privilege.
func (postgresDialect) DisableForeignKeys(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, "SET session_replication_role = replica")
	return err
}

func (postgresDialect) EnableForeignKeys(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, "SET session_replication_role = DEFAULT")
	return err
}

func (postgresDialect) IsIntegrityViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) {
		// SQLSTATE class 23: integrity constraint violation
		return pe.Code.Class() == "23"
	}
	return false
}
