// Package dbclient opens and pools connections to the stores that validation
// probes run against. A Dialect captures the per-driver details the sandbox
// executor needs: DSN construction, parameter placeholders, foreign-key
// enforcement, and integrity-error detection.
package dbclient

import (
	"context"
	"database/sql"
	"fmt"

	"changeplan/internal/domain"
)

// Dialect abstracts driver-specific behavior for sandbox probes.
type Dialect interface {
	// DriverName returns the database/sql driver name.
	DriverName() string

	// DSN constructs the connection string for a target.
	DSN(t domain.Target) string

	// Placeholder returns the parameter marker for the n-th argument (1-based).
	Placeholder(n int) string

	// DisableForeignKeys turns off foreign-key enforcement on the connection
	// for the duration of a probe, so plans can be validated independently of
	// ordering and placeholder references.
	DisableForeignKeys(ctx context.Context, conn *sql.Conn) error

	// EnableForeignKeys restores enforcement before the connection goes back
	// to the pool.
	EnableForeignKeys(ctx context.Context, conn *sql.Conn) error

	// IsIntegrityViolation reports whether err is a constraint violation
	// (uniqueness, check, foreign key) raised by the store.
	IsIntegrityViolation(err error) bool
}

// DialectFor returns the Dialect for a target's driver.
func DialectFor(driver domain.Driver) (Dialect, error) {
	switch driver {
	case domain.DriverSQLite:
		return sqliteDialect{}, nil
	case domain.DriverMySQL:
		return mysqlDialect{}, nil
	case domain.DriverPostgres:
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}
