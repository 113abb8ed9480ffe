package mcpserver

import (
	"context"
	"fmt"

	"changeplan/internal/engine"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerQueryTools() {
	s.mcp.AddTool(mcp.NewTool("query_database",
		mcp.WithDescription("Run a read-only SELECT query against the forms database. "+
			"Use this to understand current state and collect the real ids needed for updates and deletes."),
		mcp.WithString("sql", mcp.Description("A single SELECT SQL query"), mcp.Required()),
		mcp.WithNumber("maxResults", mcp.Description("Maximum rows to return (default 1000)")),
		mcp.WithString("databasePath", mcp.Description("SQLite file to query instead of the default store (optional)")),
	), s.traced("query_database", s.handleQueryDatabase))
}

func (s *Server) handleQueryDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sqlText, _ := args["sql"].(string)
	if sqlText == "" {
		return nil, fmt.Errorf("sql is required")
	}
	limit := int(getFloat(args, "maxResults", engine.DefaultMaxResults))

	result, err := s.engine.QueryRows(ctx, s.resolveTarget(args), sqlText, limit)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result)
}
