package dbclient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"changeplan/internal/domain"

	"github.com/go-sql-driver/mysql"
)

type mysqlDialect struct{}

func (mysqlDialect) DriverName() string { return "mysql" }

func (mysqlDialect) DSN(t domain.Target) string {
	port := t.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		t.Username, t.Password, t.Host, port, t.Database,
	)
	if t.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) DisableForeignKeys(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0")
	return err
}

func (mysqlDialect) EnableForeignKeys(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")
	return err
}

// Constraint violation error numbers: duplicate entry, FK parent/child, CHECK.
var mysqlIntegrityCodes = map[uint16]struct{}{
	1062: {}, // ER_DUP_ENTRY
	1451: {}, // ER_ROW_IS_REFERENCED_2
	1452: {}, // ER_NO_REFERENCED_ROW_2
	3819: {}, // ER_CHECK_CONSTRAINT_VIOLATED
}

func (mysqlDialect) IsIntegrityViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		_, ok := mysqlIntegrityCodes[me.Number]
		return ok
	}
	return false
}
