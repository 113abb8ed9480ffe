package domain

import "time"

// Conversation is the metadata record for one planner session. The message
// transcript itself lives with the external orchestrator; this engine only
// tracks identity, trace linkage, and activity counters.
type Conversation struct {
	SessionID    string    `json:"sessionId"`
	Title        string    `json:"title"`
	TraceID      string    `json:"traceId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
}
