package storage_test

import (
	"path/filepath"
	"testing"

	"changeplan/internal/domain"
	"changeplan/internal/storage"
)

func newTestStore(t *testing.T) *storage.ConversationStore {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.NewConversationStore(db)
}

func TestConversationStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)

	c := &domain.Conversation{Title: "Add Paris option"}
	if err := store.CreateConversation(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.SessionID == "" {
		t.Fatal("expected generated session id")
	}

	got, err := store.GetConversation(c.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Title != "Add Paris option" || got.MessageCount != 0 {
		t.Errorf("unexpected conversation: %#v", got)
	}
}

func TestConversationStore_GetMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetConversation("nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing conversation, got %#v", got)
	}
}

func TestConversationStore_EnsureIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	first, err := store.EnsureConversation("sess-1", "First title")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := store.EnsureConversation("sess-1", "Other title")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if second.Title != first.Title {
		t.Errorf("ensure must not overwrite: %q vs %q", second.Title, first.Title)
	}

	all, err := store.ListConversations()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 conversation, got %d", len(all))
	}
}

func TestConversationStore_TraceID(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.EnsureConversation("sess-1", "t"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := store.SetTraceID("sess-1", "trace_abc"); err != nil {
		t.Fatalf("set trace id: %v", err)
	}

	traceID, err := store.GetTraceID("sess-1")
	if err != nil {
		t.Fatalf("get trace id: %v", err)
	}
	if traceID != "trace_abc" {
		t.Errorf("expected trace_abc, got %q", traceID)
	}

	// Missing session yields empty, not an error.
	traceID, err = store.GetTraceID("missing")
	if err != nil || traceID != "" {
		t.Errorf("expected empty trace for missing session, got %q err=%v", traceID, err)
	}
}

func TestConversationStore_TouchLeavesCounterAlone(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.EnsureConversation("sess-1", "t"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := store.Touch("sess-1"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := store.Touch("sess-1"); err != nil {
		t.Fatalf("touch: %v", err)
	}

	got, err := store.GetConversation("sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MessageCount != 0 {
		t.Errorf("touch must not count messages, got count %d", got.MessageCount)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set")
	}
}

func TestConversationStore_AddMessageBumpsCounter(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.EnsureConversation("sess-1", "t"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := store.AddMessage("sess-1"); err != nil {
		t.Fatalf("add message: %v", err)
	}
	if err := store.AddMessage("sess-1"); err != nil {
		t.Fatalf("add message: %v", err)
	}

	got, err := store.GetConversation("sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MessageCount != 2 {
		t.Errorf("expected message count 2, got %d", got.MessageCount)
	}
}

func TestConversationStore_DeleteConversation(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.EnsureConversation("sess-1", "t"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := store.SaveOutput("sess-1", domain.OutputClarification, `{"type":"clarification"}`); err != nil {
		t.Fatalf("save output: %v", err)
	}

	deleted, err := store.DeleteConversation("sess-1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion to report true")
	}

	kind, payload, err := store.LatestOutput("sess-1")
	if err != nil {
		t.Fatalf("latest output: %v", err)
	}
	if kind != "" || payload != "" {
		t.Error("outputs should be removed with the conversation")
	}

	deleted, err = store.DeleteConversation("sess-1")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Error("second delete should report false")
	}
}

func TestConversationStore_Outputs(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.EnsureConversation("sess-1", "t"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	kind, payload, err := store.LatestOutput("sess-1")
	if err != nil || kind != "" || payload != "" {
		t.Fatalf("expected no output yet, got kind=%q payload=%q err=%v", kind, payload, err)
	}

	if err := store.SaveOutput("sess-1", domain.OutputChangelog, `{"type":"changelog","changes":{}}`); err != nil {
		t.Fatalf("save output: %v", err)
	}

	kind, payload, err = store.LatestOutput("sess-1")
	if err != nil {
		t.Fatalf("latest output: %v", err)
	}
	if kind != domain.OutputChangelog {
		t.Errorf("expected changelog kind, got %q", kind)
	}
	if payload == "" {
		t.Error("expected stored payload")
	}
}
