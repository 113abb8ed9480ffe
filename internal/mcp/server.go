package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"changeplan/internal/domain"
	"changeplan/internal/engine"
	"changeplan/internal/schema"
	"changeplan/internal/storage"
	"changeplan/internal/trace"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the change-validation engine. It exposes the
// engine's operations as tools so an LLM planner can propose mutations and
// collect validated change-plan fragments.
type Server struct {
	mcp *server.MCPServer

	engine        *engine.Engine
	conversations *storage.ConversationStore
	registry      *trace.Registry

	// Default store probes run against; tools may override per call.
	target domain.Target

	// Active session context (set by set_active_session tool)
	activeSessionID string
	activeTraceID   string
}

// Deps holds all dependencies passed from the app layer to the MCP server.
type Deps struct {
	Engine        *engine.Engine
	Conversations *storage.ConversationStore
	Registry      *trace.Registry
	Target        domain.Target
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{
		engine:        deps.Engine,
		conversations: deps.Conversations,
		registry:      deps.Registry,
		target:        deps.Target,
	}

	s.mcp = server.NewMCPServer(
		"changeplan-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerQueryTools()
	s.registerValidationTools()
	s.registerSessionTools()
	s.registerResources()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// ── Tracing ────────────────────────────────────────────────

// traced wraps a tool handler so every invocation is recorded against the
// active session's trace. Recording is passive: the handler's result is
// returned unchanged whether or not a trace is active.
func (s *Server) traced(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		started := time.Now()
		result, err := h(ctx, req)

		if traceID := s.activeTraceID; traceID != "" && s.registry != nil {
			input, _ := json.Marshal(req.GetArguments())
			call := trace.ToolCall{
				TraceID:   traceID,
				Tool:      name,
				Input:     string(input),
				StartedAt: started,
				EndedAt:   time.Now(),
			}
			if err != nil {
				call.Error = err.Error()
			} else {
				call.Output = firstText(result)
			}
			s.registry.Record(call)
		}
		if s.activeSessionID != "" && s.conversations != nil {
			_ = s.conversations.Touch(s.activeSessionID)
		}
		return result, err
	}
}

// firstText extracts the first text content from a tool result.
func firstText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult converts an engine failure into a descriptive tool result the
// planner can read and adjust to. Errors never escape as protocol faults.
func errorResult(err error) *mcp.CallToolResult {
	var (
		unknownTable  *schema.UnknownTableError
		unknownColumn *schema.UnknownColumnError
		malformed     *engine.MalformedInputError
		notFound      *engine.NotFoundError
		integrity     *engine.IntegrityError
		connection    *engine.ConnectionError
	)
	switch {
	case errors.As(err, &unknownTable), errors.As(err, &unknownColumn), errors.As(err, &malformed):
		return textResult("Validation error: " + err.Error())
	case errors.As(err, &notFound):
		return textResult("Error: " + err.Error())
	case errors.As(err, &integrity):
		return textResult(err.Error())
	case errors.As(err, &connection):
		return textResult("Error connecting to database: " + connection.Err.Error())
	default:
		return textResult("Error: " + err.Error())
	}
}

// resolveTarget returns the store for this call: an explicit sqlite path in
// the args wins, otherwise the server default.
func (s *Server) resolveTarget(args map[string]any) domain.Target {
	if path, ok := args["databasePath"].(string); ok && path != "" {
		return domain.SQLiteTarget(path)
	}
	return s.target
}

// resolveSessionID returns the sessionId from tool args or falls back to the
// active session.
func (s *Server) resolveSessionID(args map[string]any) (string, error) {
	if sid, ok := args["sessionId"].(string); ok && sid != "" {
		return sid, nil
	}
	if s.activeSessionID != "" {
		return s.activeSessionID, nil
	}
	return "", fmt.Errorf("no sessionId provided and no active session set (use set_active_session first)")
}

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

// newTraceID generates a trace identifier.
func newTraceID() string {
	return "trace_" + uuid.NewString()
}
