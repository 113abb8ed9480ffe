package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// ── changeplan://schema ────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"changeplan://schema",
		"Mutable Tables and Columns",
		mcp.WithMIMEType("application/json"),
	), s.handleSchemaResource)

	// ── changeplan://conversations ─────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"changeplan://conversations",
		"Conversation Sessions",
		mcp.WithMIMEType("application/json"),
	), s.handleConversationsResource)
}

func (s *Server) handleSchemaResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	whitelist := s.engine.Whitelist()

	vocabulary := map[string][]string{}
	for _, table := range whitelist.Tables() {
		vocabulary[table] = whitelist.AllowedColumns(table)
	}

	data, _ := json.MarshalIndent(vocabulary, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "changeplan://schema",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleConversationsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	conversations, err := s.conversations.ListConversations()
	if err != nil {
		return nil, err
	}

	data, _ := json.MarshalIndent(conversations, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "changeplan://conversations",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
