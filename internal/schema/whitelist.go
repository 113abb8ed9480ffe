// Package schema holds the closed vocabulary of tables and columns a
// validation probe may reference. Table and column names cannot be bound as
// query parameters, so this whitelist is the sole barrier against identifier
// injection: anything not in the set is rejected before SQL text is built.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Whitelist is an immutable registry of permitted tables and, per table, the
// permitted column names. Fixed at construction; safe for concurrent use.
type Whitelist struct {
	tables map[string]map[string]struct{}
}

// New builds a Whitelist from a table → columns mapping. The input is copied;
// later changes to the argument do not affect the whitelist.
func New(tables map[string][]string) *Whitelist {
	w := &Whitelist{tables: make(map[string]map[string]struct{}, len(tables))}
	for table, cols := range tables {
		set := make(map[string]struct{}, len(cols))
		for _, c := range cols {
			set[c] = struct{}{}
		}
		w.tables[table] = set
	}
	return w
}

// Default returns the whitelist for the form-builder schema.
func Default() *Whitelist {
	return New(map[string][]string{
		"categories": {
			"id", "slug", "name", "description", "created_at", "updated_at",
		},
		"forms": {
			"id", "org_id", "slug", "title", "description", "status",
			"category_id", "created_at", "updated_at",
		},
		"form_pages": {
			"id", "form_id", "title", "description", "position",
			"created_at", "updated_at",
		},
		"field_types": {
			"id", "key", "has_options", "allows_multiple", "builtin_validators",
		},
		"form_fields": {
			"id", "form_id", "page_id", "type_id", "code", "label",
			"help_text", "position", "required", "read_only", "placeholder",
			"default_value", "validation_schema", "visible_by_default",
			"created_at", "updated_at",
		},
		"option_sets": {
			"id", "form_id", "name", "created_at", "updated_at",
		},
		"option_items": {
			"id", "option_set_id", "value", "label", "position", "is_active",
		},
		"field_option_binding": {
			"field_id", "option_set_id", "display_pattern",
		},
		"logic_rules": {
			"id", "form_id", "name", "trigger", "scope", "priority", "enabled",
		},
		"logic_conditions": {
			"id", "rule_id", "group_id", "lhs_ref", "operator", "rhs",
			"bool_join", "position",
		},
		"logic_actions": {
			"id", "rule_id", "action", "target_ref", "params", "position",
		},
	})
}

// IsAllowedTable reports whether table is in the registry.
func (w *Whitelist) IsAllowedTable(table string) bool {
	_, ok := w.tables[table]
	return ok
}

// Tables returns the sorted table names.
func (w *Whitelist) Tables() []string {
	names := make([]string, 0, len(w.tables))
	for t := range w.tables {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

// AllowedColumns returns the sorted column names for table, or nil if the
// table is not in the registry.
func (w *Whitelist) AllowedColumns(table string) []string {
	set, ok := w.tables[table]
	if !ok {
		return nil
	}
	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// ValidateTable returns an *UnknownTableError unless table is whitelisted.
// No partial matching, no case normalization.
func (w *Whitelist) ValidateTable(table string) error {
	if !w.IsAllowedTable(table) {
		return &UnknownTableError{Table: table, Allowed: w.Tables()}
	}
	return nil
}

// ValidateColumns checks every column against the table's whitelist. The
// returned *UnknownColumnError lists exactly the invalid names, sorted; valid
// names are never flagged. The table must be validated first.
func (w *Whitelist) ValidateColumns(table string, columns []string) error {
	set, ok := w.tables[table]
	if !ok {
		return &UnknownTableError{Table: table, Allowed: w.Tables()}
	}
	var invalid []string
	for _, c := range columns {
		if _, ok := set[c]; !ok {
			invalid = append(invalid, c)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return &UnknownColumnError{Table: table, Columns: invalid, Allowed: w.AllowedColumns(table)}
	}
	return nil
}

// UnknownTableError reports a table name outside the whitelist.
type UnknownTableError struct {
	Table   string
	Allowed []string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("invalid table name %q. Allowed tables: %s",
		e.Table, strings.Join(e.Allowed, ", "))
}

// UnknownColumnError reports column names outside a table's whitelist.
type UnknownColumnError struct {
	Table   string
	Columns []string // the offending names, sorted
	Allowed []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("invalid columns for table %q: %s. Allowed columns: %s",
		e.Table, strings.Join(e.Columns, ", "), strings.Join(e.Allowed, ", "))
}
