package engine

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"changeplan/internal/domain"
)

// QueryResult is a bounded read-query result. When Truncated is set the
// result carries only the first limit rows plus a hint to narrow the query.
type QueryResult struct {
	Results   []domain.Record
	Truncated bool
	Message   string
}

// MarshalJSON renders a plain row list when the result fits, and a wrapper
// object with the truncation flag when it does not.
func (r *QueryResult) MarshalJSON() ([]byte, error) {
	if !r.Truncated {
		return json.Marshal(r.Results)
	}
	return json.Marshal(struct {
		Results   []domain.Record `json:"results"`
		Truncated bool            `json:"truncated"`
		Message   string          `json:"message"`
	}{r.Results, true, r.Message})
}

// paginate reads at most limit+1 rows to detect overflow without a separate
// count query, then trims to limit.
func paginate(rows *sql.Rows, limit int) (*QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	results := make([]domain.Record, 0, limit)
	truncated := false
	for rows.Next() {
		if len(results) == limit {
			truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		record := make(domain.Record, len(cols))
		for i, col := range cols {
			record[col] = formatValue(values[i])
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}

	result := &QueryResult{Results: results}
	if truncated {
		result.Truncated = true
		result.Message = fmt.Sprintf(
			"Results limited to %d rows. Refine your query for more specific results.", limit)
	}
	return result, nil
}

// formatValue converts a database value to a JSON-friendly scalar.
func formatValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}
