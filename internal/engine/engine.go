// Package engine implements the transactional change-validation core: every
// mutation probe runs inside a transaction that is always rolled back, so a
// caller can learn exactly what an insert/update/delete would do without the
// store ever changing.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"changeplan/internal/dbclient"
	"changeplan/internal/domain"
	"changeplan/internal/schema"
	"changeplan/internal/sqlguard"
)

// DefaultMaxResults bounds read-query results unless the caller overrides it.
const DefaultMaxResults = 1000

// Engine validates proposed mutations against a relational store. It is safe
// for concurrent use: calls share only the immutable whitelist and the
// connector pool.
type Engine struct {
	whitelist *schema.Whitelist
	pool      *dbclient.Pool
}

// New creates an Engine over the given whitelist and connector pool.
func New(whitelist *schema.Whitelist, pool *dbclient.Pool) *Engine {
	return &Engine{whitelist: whitelist, pool: pool}
}

// Whitelist exposes the engine's table/column vocabulary.
func (e *Engine) Whitelist() *schema.Whitelist {
	return e.whitelist
}

// QueryRows executes a read-only query and returns at most limit rows,
// flagging truncation. Anything but a single SELECT is rejected before
// execution. limit <= 0 selects DefaultMaxResults.
func (e *Engine) QueryRows(ctx context.Context, target domain.Target, sqlText string, limit int) (*QueryResult, error) {
	if err := sqlguard.ValidateReadQuery(sqlText); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	db, _, err := e.pool.Get(ctx, target)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("query database: %w", err)
	}
	defer rows.Close()

	return paginate(rows, limit)
}

// ValidateInsert probes inserting record into table. The record is echoed
// back verbatim in the fragment, including any placeholder id; the insert
// itself is rolled back.
func (e *Engine) ValidateInsert(ctx context.Context, target domain.Target, table string, record domain.Record) (domain.Fragment, error) {
	if err := e.whitelist.ValidateTable(table); err != nil {
		return nil, err
	}
	columns, err := recordColumns(record)
	if err != nil {
		return nil, err
	}
	if err := e.whitelist.ValidateColumns(table, columns); err != nil {
		return nil, err
	}

	db, dialect, err := e.pool.Get(ctx, target)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	err = runReverted(ctx, db, dialect, table, domain.OpInsert, func(tx *sql.Tx) error {
		placeholders := make([]string, len(columns))
		args := make([]any, len(columns))
		for i, col := range columns {
			placeholders[i] = dialect.Placeholder(i + 1)
			args[i] = record[col]
		}
		// Identifiers are whitelisted above; values are bound parameters.
		insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
		_, execErr := tx.ExecContext(ctx, insertSQL, args...)
		return execErr
	})
	if err != nil {
		return nil, err
	}

	return domain.NewFragment(table, domain.OpInsert, record), nil
}

// ValidateUpdate probes updating the row with the given id, echoing only the
// id plus the supplied fields in the fragment. A missing id yields a
// *NotFoundError without attempting the mutation.
func (e *Engine) ValidateUpdate(ctx context.Context, target domain.Target, table, id string, fields domain.Record) (domain.Fragment, error) {
	if err := e.whitelist.ValidateTable(table); err != nil {
		return nil, err
	}
	columns, err := recordColumns(fields)
	if err != nil {
		return nil, err
	}
	if err := e.whitelist.ValidateColumns(table, columns); err != nil {
		return nil, err
	}

	db, dialect, err := e.pool.Get(ctx, target)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	err = runReverted(ctx, db, dialect, table, domain.OpUpdate, func(tx *sql.Tx) error {
		if err := checkExists(ctx, tx, dialect, table, id); err != nil {
			return err
		}

		setClauses := make([]string, len(columns))
		args := make([]any, 0, len(columns)+1)
		for i, col := range columns {
			setClauses[i] = fmt.Sprintf("%s = %s", col, dialect.Placeholder(i+1))
			args = append(args, fields[col])
		}
		args = append(args, id)
		updateSQL := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
			table, strings.Join(setClauses, ", "), dialect.Placeholder(len(columns)+1))
		_, execErr := tx.ExecContext(ctx, updateSQL, args...)
		return execErr
	})
	if err != nil {
		return nil, err
	}

	changed := domain.Record{"id": id}
	for col, val := range fields {
		changed[col] = val
	}
	return domain.NewFragment(table, domain.OpUpdate, changed), nil
}

// ValidateDelete probes deleting the row with the given id. The fragment
// carries the id only.
func (e *Engine) ValidateDelete(ctx context.Context, target domain.Target, table, id string) (domain.Fragment, error) {
	if err := e.whitelist.ValidateTable(table); err != nil {
		return nil, err
	}

	db, dialect, err := e.pool.Get(ctx, target)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	err = runReverted(ctx, db, dialect, table, domain.OpDelete, func(tx *sql.Tx) error {
		if err := checkExists(ctx, tx, dialect, table, id); err != nil {
			return err
		}
		deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE id = %s", table, dialect.Placeholder(1))
		_, execErr := tx.ExecContext(ctx, deleteSQL, id)
		return execErr
	})
	if err != nil {
		return nil, err
	}

	return domain.NewFragment(table, domain.OpDelete, domain.Record{"id": id}), nil
}

// checkExists verifies the target row is present before update/delete.
func checkExists(ctx context.Context, tx *sql.Tx, dialect dbclient.Dialect, table, id string) error {
	checkSQL := fmt.Sprintf("SELECT id FROM %s WHERE id = %s", table, dialect.Placeholder(1))
	var found string
	if err := tx.QueryRowContext(ctx, checkSQL, id).Scan(&found); err != nil {
		if err == sql.ErrNoRows {
			return &NotFoundError{Table: table, ID: id}
		}
		return fmt.Errorf("existence check: %w", err)
	}
	return nil
}

// recordColumns extracts the record's column names in a deterministic order
// and rejects payloads that are not flat scalar records.
func recordColumns(record domain.Record) ([]string, error) {
	if len(record) == 0 {
		return nil, &MalformedInputError{Reason: "record has no columns"}
	}
	columns := make([]string, 0, len(record))
	for col, val := range record {
		switch val.(type) {
		case nil, string, bool, int, int64, float64:
		default:
			return nil, &MalformedInputError{Reason: fmt.Sprintf("column %q has non-scalar value", col)}
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns, nil
}
