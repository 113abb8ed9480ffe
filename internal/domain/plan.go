package domain

// Operation is the kind of mutation a change-plan fragment describes.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Record maps column names to scalar values (string, number, bool, or nil).
// For inserts it may carry a placeholder id, a caller-chosen string with the
// PlaceholderPrefix standing in for a not-yet-persisted row's primary key.
// The engine treats placeholders as opaque strings and never resolves them.
type Record map[string]any

// PlaceholderPrefix marks placeholder identifiers in insert records.
const PlaceholderPrefix = "$"

// Fragment is the validated change plan for exactly one operation on exactly
// one table: {table: {operation: [records]}}.
type Fragment map[string]map[Operation][]Record

// NewFragment builds a fragment for a single table/operation pair.
func NewFragment(table string, op Operation, records ...Record) Fragment {
	return Fragment{table: {op: records}}
}

// ChangeSet is a session-level changelog: fragments from several validation
// calls merged into one structure, keyed by table and operation.
type ChangeSet map[string]map[Operation][]Record

// MergeFragments combines per-call fragments into one ChangeSet. Records for
// the same table and operation are appended in call order. Merging is the
// caller's responsibility; the engine only ever emits single fragments.
func MergeFragments(fragments ...Fragment) ChangeSet {
	merged := ChangeSet{}
	for _, f := range fragments {
		for table, ops := range f {
			if merged[table] == nil {
				merged[table] = map[Operation][]Record{}
			}
			for op, records := range ops {
				merged[table][op] = append(merged[table][op], records...)
			}
		}
	}
	return merged
}
