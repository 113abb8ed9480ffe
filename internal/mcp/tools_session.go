package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"changeplan/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSessionTools() {
	s.mcp.AddTool(mcp.NewTool("set_active_session",
		mcp.WithDescription("Set the conversation session subsequent tool calls are traced under. "+
			"Creates the conversation and its trace if they do not exist yet."),
		mcp.WithString("sessionId", mcp.Description("Session ID (generated when omitted)")),
		mcp.WithString("title", mcp.Description("Conversation title (used when creating)")),
	), s.handleSetActiveSession)

	s.mcp.AddTool(mcp.NewTool("list_conversations",
		mcp.WithDescription("List all conversation sessions, most recently active first"),
	), s.handleListConversations)

	s.mcp.AddTool(mcp.NewTool("delete_conversation",
		mcp.WithDescription("Delete a conversation session and its recorded outputs"),
		mcp.WithString("sessionId", mcp.Description("Session ID"), mcp.Required()),
	), s.handleDeleteConversation)

	s.mcp.AddTool(mcp.NewTool("get_session_trace",
		mcp.WithDescription("Get the recorded tool calls for a session's trace"),
		mcp.WithString("sessionId", mcp.Description("Session ID (optional, defaults to active session)")),
	), s.handleGetSessionTrace)

	s.mcp.AddTool(mcp.NewTool("merge_change_plans",
		mcp.WithDescription("Merge change-plan fragments from several validation calls into one changelog"),
		mcp.WithString("fragments", mcp.Description("JSON array of change-plan fragments"), mcp.Required()),
	), s.handleMergeChangePlans)

	s.mcp.AddTool(mcp.NewTool("submit_agent_output",
		mcp.WithDescription("Validate and record the final planner output for a session: "+
			"either {\"type\":\"clarification\",\"clarification\":...} or {\"type\":\"changelog\",\"changes\":...}"),
		mcp.WithString("output", mcp.Description("Tagged output JSON"), mcp.Required()),
		mcp.WithString("sessionId", mcp.Description("Session ID (optional, defaults to active session)")),
	), s.handleSubmitAgentOutput)
}

func (s *Server) handleSetActiveSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sessionID, _ := args["sessionId"].(string)
	title, _ := args["title"].(string)
	if title == "" {
		title = "New Conversation"
	}

	conv, err := s.conversations.EnsureConversation(sessionID, title)
	if err != nil {
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}
	if conv.TraceID == "" {
		conv.TraceID = newTraceID()
		if err := s.conversations.SetTraceID(conv.SessionID, conv.TraceID); err != nil {
			return nil, fmt.Errorf("set trace id: %w", err)
		}
	}

	// Activating a session marks one conversation turn; the tool calls that
	// follow only refresh activity.
	if err := s.conversations.AddMessage(conv.SessionID); err != nil {
		return nil, fmt.Errorf("count message: %w", err)
	}
	conv.MessageCount++

	s.activeSessionID = conv.SessionID
	s.activeTraceID = conv.TraceID
	return jsonResult(conv)
}

func (s *Server) handleListConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conversations, err := s.conversations.ListConversations()
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return jsonResult(conversations)
}

func (s *Server) handleDeleteConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("sessionId", "")
	if sessionID == "" {
		return nil, fmt.Errorf("sessionId is required")
	}

	traceID, _ := s.conversations.GetTraceID(sessionID)
	deleted, err := s.conversations.DeleteConversation(sessionID)
	if err != nil {
		return nil, fmt.Errorf("delete conversation: %w", err)
	}
	if !deleted {
		return textResult(fmt.Sprintf("No conversation found for session %s", sessionID)), nil
	}
	if traceID != "" {
		s.registry.Drop(traceID)
	}
	if s.activeSessionID == sessionID {
		s.activeSessionID = ""
		s.activeTraceID = ""
	}
	return textResult(fmt.Sprintf("Deleted conversation %s", sessionID)), nil
}

func (s *Server) handleGetSessionTrace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := s.resolveSessionID(req.GetArguments())
	if err != nil {
		return nil, err
	}

	traceID, err := s.conversations.GetTraceID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("get trace id: %w", err)
	}
	if traceID == "" {
		return textResult(fmt.Sprintf("No trace found for session %s", sessionID)), nil
	}

	return jsonResult(map[string]any{
		"sessionId": sessionID,
		"traceId":   traceID,
		"toolCalls": s.registry.Calls(traceID),
	})
}

func (s *Server) handleMergeChangePlans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("fragments", "")
	if raw == "" {
		return nil, fmt.Errorf("fragments is required")
	}

	var fragments []domain.Fragment
	if err := json.Unmarshal([]byte(raw), &fragments); err != nil {
		return textResult("Error parsing fragments JSON: " + err.Error()), nil
	}

	return jsonResult(domain.MergeFragments(fragments...))
}

func (s *Server) handleSubmitAgentOutput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	raw, _ := args["output"].(string)
	if raw == "" {
		return nil, fmt.Errorf("output is required")
	}
	sessionID, err := s.resolveSessionID(args)
	if err != nil {
		return nil, err
	}

	output, err := domain.ParseAgentOutput([]byte(raw))
	if err != nil {
		return textResult("Invalid agent output: " + err.Error()), nil
	}

	payload, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("marshal output: %w", err)
	}
	if err := s.conversations.SaveOutput(sessionID, output.Type, string(payload)); err != nil {
		return nil, err
	}

	return textResult(fmt.Sprintf("Recorded %s output for session %s", output.Type, sessionID)), nil
}
