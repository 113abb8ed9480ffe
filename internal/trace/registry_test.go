package trace_test

import (
	"fmt"
	"testing"
	"time"

	"changeplan/internal/trace"
)

func TestRegistry_RecordAndCalls(t *testing.T) {
	r := trace.NewRegistry(10, time.Hour)

	r.Record(trace.ToolCall{TraceID: "t1", Tool: "validate_insert", Input: `{"table":"forms"}`})
	r.Record(trace.ToolCall{TraceID: "t1", Tool: "validate_update"})
	r.Record(trace.ToolCall{TraceID: "t2", Tool: "query_database"})

	calls := r.Calls("t1")
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls for t1, got %d", len(calls))
	}
	if calls[0].Tool != "validate_insert" || calls[1].Tool != "validate_update" {
		t.Errorf("calls out of order: %v", calls)
	}
	if len(r.Calls("t2")) != 1 {
		t.Error("expected 1 call for t2")
	}
	if r.Calls("unknown") != nil {
		t.Error("expected nil for unknown trace")
	}
}

func TestRegistry_IgnoresEmptyTraceID(t *testing.T) {
	r := trace.NewRegistry(10, time.Hour)
	r.Record(trace.ToolCall{Tool: "query_database"})
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d traces", r.Len())
	}
}

func TestRegistry_CallsReturnsCopy(t *testing.T) {
	r := trace.NewRegistry(10, time.Hour)
	r.Record(trace.ToolCall{TraceID: "t1", Tool: "a"})

	calls := r.Calls("t1")
	calls[0].Tool = "mutated"

	if r.Calls("t1")[0].Tool != "a" {
		t.Error("Calls must return a copy, not the internal slice")
	}
}

func TestRegistry_EvictsOldestAtCapacity(t *testing.T) {
	r := trace.NewRegistry(3, time.Hour)

	for i := 0; i < 3; i++ {
		r.Record(trace.ToolCall{TraceID: fmt.Sprintf("t%d", i), Tool: "x"})
		time.Sleep(2 * time.Millisecond) // distinct lastSeen ordering
	}
	r.Record(trace.ToolCall{TraceID: "t3", Tool: "x"})

	if r.Len() != 3 {
		t.Fatalf("expected capacity 3, got %d", r.Len())
	}
	if r.Calls("t0") != nil {
		t.Error("expected oldest trace t0 to be evicted")
	}
	if r.Calls("t3") == nil {
		t.Error("expected newest trace t3 to be present")
	}
}

func TestRegistry_Sweep(t *testing.T) {
	r := trace.NewRegistry(10, 20*time.Millisecond)

	r.Record(trace.ToolCall{TraceID: "stale", Tool: "x"})
	time.Sleep(40 * time.Millisecond)
	r.Record(trace.ToolCall{TraceID: "fresh", Tool: "x"})

	if removed := r.Sweep(); removed != 1 {
		t.Errorf("expected 1 evicted trace, got %d", removed)
	}
	if r.Calls("stale") != nil {
		t.Error("stale trace should be gone")
	}
	if r.Calls("fresh") == nil {
		t.Error("fresh trace should survive the sweep")
	}
}

func TestRegistry_Drop(t *testing.T) {
	r := trace.NewRegistry(10, time.Hour)
	r.Record(trace.ToolCall{TraceID: "t1", Tool: "x"})
	r.Drop("t1")
	if r.Len() != 0 {
		t.Error("expected trace to be dropped")
	}
}
