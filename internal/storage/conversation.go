package storage

import (
	"database/sql"
	"fmt"
	"time"

	"changeplan/internal/domain"

	"github.com/google/uuid"
)

// ConversationStore manages conversation metadata records in SQLite.
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a new ConversationStore.
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// CreateConversation inserts a new conversation. A missing session id is
// generated; the trace id may be empty and set later.
func (s *ConversationStore) CreateConversation(c *domain.Conversation) error {
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
	if c.Title == "" {
		c.Title = "New Conversation"
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.Conn().Exec(
		`INSERT INTO conversations (session_id, title, trace_id, created_at, updated_at, message_count)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		c.SessionID, c.Title, c.TraceID, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// GetConversation returns the conversation for a session, or nil if absent.
func (s *ConversationStore) GetConversation(sessionID string) (*domain.Conversation, error) {
	row := s.db.Conn().QueryRow(
		`SELECT session_id, title, trace_id, created_at, updated_at, message_count
		 FROM conversations WHERE session_id = ?`, sessionID,
	)

	c := &domain.Conversation{}
	err := row.Scan(&c.SessionID, &c.Title, &c.TraceID, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListConversations returns all conversations, most recently active first.
func (s *ConversationStore) ListConversations() ([]domain.Conversation, error) {
	rows, err := s.db.Conn().Query(
		`SELECT session_id, title, trace_id, created_at, updated_at, message_count
		 FROM conversations ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(&c.SessionID, &c.Title, &c.TraceID, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// EnsureConversation creates the conversation if it does not exist yet.
func (s *ConversationStore) EnsureConversation(sessionID, title string) (*domain.Conversation, error) {
	existing, err := s.GetConversation(sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	c := &domain.Conversation{SessionID: sessionID, Title: title}
	if err := s.CreateConversation(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Touch bumps updated_at for a session. The message counter is untouched:
// many tool calls can serve one conversation message.
func (s *ConversationStore) Touch(sessionID string) error {
	_, err := s.db.Conn().Exec(
		`UPDATE conversations SET updated_at = ? WHERE session_id = ?`,
		time.Now().UTC(), sessionID,
	)
	return err
}

// AddMessage bumps the message counter and updated_at for a session.
func (s *ConversationStore) AddMessage(sessionID string) error {
	_, err := s.db.Conn().Exec(
		`UPDATE conversations SET updated_at = ?, message_count = message_count + 1
		 WHERE session_id = ?`,
		time.Now().UTC(), sessionID,
	)
	return err
}

// SetTraceID assigns the trace id for a session.
func (s *ConversationStore) SetTraceID(sessionID, traceID string) error {
	_, err := s.db.Conn().Exec(
		`UPDATE conversations SET trace_id = ? WHERE session_id = ?`,
		traceID, sessionID,
	)
	return err
}

// GetTraceID returns the trace id for a session, or empty if unset.
func (s *ConversationStore) GetTraceID(sessionID string) (string, error) {
	var traceID string
	err := s.db.Conn().QueryRow(
		`SELECT trace_id FROM conversations WHERE session_id = ?`, sessionID,
	).Scan(&traceID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return traceID, err
}

// DeleteConversation removes a conversation and its recorded outputs.
// Returns true if a conversation row was deleted.
func (s *ConversationStore) DeleteConversation(sessionID string) (bool, error) {
	if _, err := s.db.Conn().Exec(
		`DELETE FROM agent_outputs WHERE session_id = ?`, sessionID,
	); err != nil {
		return false, err
	}
	res, err := s.db.Conn().Exec(
		`DELETE FROM conversations WHERE session_id = ?`, sessionID,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SaveOutput records a validated planner output against a session.
func (s *ConversationStore) SaveOutput(sessionID string, kind domain.OutputKind, payloadJSON string) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO agent_outputs (id, session_id, kind, payload_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, string(kind), payloadJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save output: %w", err)
	}
	return nil
}

// LatestOutput returns the most recent recorded output for a session, or
// empty values if none exists.
func (s *ConversationStore) LatestOutput(sessionID string) (domain.OutputKind, string, error) {
	var kind, payload string
	err := s.db.Conn().QueryRow(
		`SELECT kind, payload_json FROM agent_outputs
		 WHERE session_id = ? ORDER BY created_at DESC LIMIT 1`, sessionID,
	).Scan(&kind, &payload)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	return domain.OutputKind(kind), payload, nil
}
