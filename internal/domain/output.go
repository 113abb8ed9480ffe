package domain

import (
	"encoding/json"
	"fmt"
)

// OutputKind discriminates the two terminal responses a planner can produce.
type OutputKind string

const (
	OutputClarification OutputKind = "clarification"
	OutputChangelog     OutputKind = "changelog"
)

// AgentOutput is the planner's final answer for a session: either a question
// back to the user or a merged changelog. Exactly one variant is populated,
// selected by Type.
type AgentOutput struct {
	Type          OutputKind `json:"type"`
	Clarification string     `json:"clarification,omitempty"`
	Changes       ChangeSet  `json:"changes,omitempty"`
}

// ParseAgentOutput decodes and validates a tagged output payload. The
// discriminator must name a known variant and the variant's field must be
// populated; the other variant's field must be absent.
func ParseAgentOutput(data []byte) (*AgentOutput, error) {
	var out AgentOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode agent output: %w", err)
	}
	switch out.Type {
	case OutputClarification:
		if out.Clarification == "" {
			return nil, fmt.Errorf("clarification output requires a non-empty clarification field")
		}
		if out.Changes != nil {
			return nil, fmt.Errorf("clarification output must not carry changes")
		}
	case OutputChangelog:
		if len(out.Changes) == 0 {
			return nil, fmt.Errorf("changelog output requires a non-empty changes field")
		}
		if out.Clarification != "" {
			return nil, fmt.Errorf("changelog output must not carry a clarification")
		}
		for table, ops := range out.Changes {
			if table == "" {
				return nil, fmt.Errorf("changelog contains an empty table name")
			}
			for op := range ops {
				switch op {
				case OpInsert, OpUpdate, OpDelete:
				default:
					return nil, fmt.Errorf("changelog for table %q contains unknown operation %q", table, op)
				}
			}
		}
	default:
		return nil, fmt.Errorf("unknown output type %q (expected %q or %q)",
			out.Type, OutputClarification, OutputChangelog)
	}
	return &out, nil
}
