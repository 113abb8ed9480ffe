// Package trace records tool invocations per trace id. It is a passive
// observer: the engine's behavior is unaffected by whether calls are
// recorded. The registry is a bounded arena, not an ambient process-wide
// map; traces are evicted by age and by count.
package trace

import (
	"sort"
	"sync"
	"time"
)

// ToolCall is one recorded tool invocation.
type ToolCall struct {
	TraceID   string    `json:"traceId"`
	Tool      string    `json:"tool"`
	Input     string    `json:"input"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// Registry holds tool calls keyed by trace id.
type Registry struct {
	mu        sync.Mutex
	traces    map[string]*traceEntry
	maxTraces int
	ttl       time.Duration
}

type traceEntry struct {
	calls    []ToolCall
	lastSeen time.Time
}

// Defaults for a long-running server: enough headroom for concurrent
// sessions without growing unbounded.
const (
	DefaultMaxTraces = 256
	DefaultTTL       = 24 * time.Hour
)

// NewRegistry creates a Registry. maxTraces <= 0 or ttl <= 0 select the
// defaults.
func NewRegistry(maxTraces int, ttl time.Duration) *Registry {
	if maxTraces <= 0 {
		maxTraces = DefaultMaxTraces
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		traces:    make(map[string]*traceEntry),
		maxTraces: maxTraces,
		ttl:       ttl,
	}
}

// Record appends a tool call to its trace, creating the trace if needed.
// If the registry is at capacity, the least recently touched trace is
// evicted first.
func (r *Registry) Record(call ToolCall) {
	if call.TraceID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.traces[call.TraceID]
	if !ok {
		if len(r.traces) >= r.maxTraces {
			r.evictOldestLocked()
		}
		entry = &traceEntry{}
		r.traces[call.TraceID] = entry
	}
	entry.calls = append(entry.calls, call)
	entry.lastSeen = time.Now()
}

// Calls returns the recorded tool calls for a trace in arrival order.
func (r *Registry) Calls(traceID string) []ToolCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.traces[traceID]
	if !ok {
		return nil
	}
	out := make([]ToolCall, len(entry.calls))
	copy(out, entry.calls)
	return out
}

// Drop removes a trace and its calls.
func (r *Registry) Drop(traceID string) {
	r.mu.Lock()
	delete(r.traces, traceID)
	r.mu.Unlock()
}

// Len returns the number of live traces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.traces)
}

// Sweep evicts every trace idle longer than the TTL and returns how many
// were removed. Intended to run on a schedule.
func (r *Registry) Sweep() int {
	cutoff := time.Now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.traces {
		if entry.lastSeen.Before(cutoff) {
			delete(r.traces, id)
			removed++
		}
	}
	return removed
}

// evictOldestLocked removes the least recently touched trace. Must be called
// while holding r.mu.
func (r *Registry) evictOldestLocked() {
	type aged struct {
		id       string
		lastSeen time.Time
	}
	var all []aged
	for id, entry := range r.traces {
		all = append(all, aged{id: id, lastSeen: entry.lastSeen})
	}
	if len(all) == 0 {
		return
	}
	sort.Slice(all, func(i, j int) bool { return all[i].lastSeen.Before(all[j].lastSeen) })
	delete(r.traces, all[0].id)
}
