// Package sqlguard classifies raw SQL text for the read-only query path. It
// is a shape guard, not a parser: it rejects anything it cannot prove to be a
// single SELECT, erring on the side of refusal.
package sqlguard

import (
	"fmt"
	"strings"
)

// Forbidden verbs rejected anywhere in the statement, not just at the start,
// since they can hide after a semicolon or inside a subquery.
var forbiddenKeywords = map[string]struct{}{
	"drop": {}, "delete": {}, "insert": {}, "update": {}, "alter": {},
	"create": {}, "pragma": {}, "attach": {}, "detach": {}, "truncate": {},
	"replace": {},
}

// ValidateReadQuery accepts only statements that begin with SELECT
// (case-insensitive, after trimming) and contain no forbidden keyword as a
// whole whitespace-delimited token. Whole-token matching keeps substrings
// like "created_at" or "updates" from tripping the guard; it is deliberately
// no stronger than that, so keywords fused to punctuation are not chased.
func ValidateReadQuery(sql string) error {
	lowered := strings.ToLower(strings.TrimSpace(sql))

	if !strings.HasPrefix(lowered, "select") {
		return fmt.Errorf("only SELECT queries are allowed")
	}

	for _, token := range strings.Fields(lowered) {
		if _, ok := forbiddenKeywords[token]; ok {
			return fmt.Errorf("query contains forbidden keyword: %s", token)
		}
	}
	return nil
}
