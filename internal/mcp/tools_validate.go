package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"changeplan/internal/domain"
	"changeplan/internal/engine"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerValidationTools() {
	s.mcp.AddTool(mcp.NewTool("validate_insert",
		mcp.WithDescription("Validate inserting a new record inside a transaction that is always rolled back; "+
			"the database is never modified. Returns the insert change-plan fragment. "+
			"Use "+domain.PlaceholderPrefix+"-prefixed placeholder ids for not-yet-persisted records "+
			"(e.g. \""+domain.PlaceholderPrefix+"opt_paris\")."),
		mcp.WithString("table", mcp.Description("Table to insert into"), mcp.Required()),
		mcp.WithString("record", mcp.Description("JSON object of column names to values for the new record"), mcp.Required()),
		mcp.WithString("databasePath", mcp.Description("SQLite file to probe instead of the default store (optional)")),
	), s.traced("validate_insert", s.handleValidateInsert))

	s.mcp.AddTool(mcp.NewTool("validate_update",
		mcp.WithDescription("Validate updating an existing record inside a transaction that is always rolled back; "+
			"the database is never modified. Returns the update change-plan fragment."),
		mcp.WithString("table", mcp.Description("Table to update"), mcp.Required()),
		mcp.WithString("recordId", mcp.Description("Exact existing id of the record to update"), mcp.Required()),
		mcp.WithString("updates", mcp.Description("JSON object of changed column names to new values"), mcp.Required()),
		mcp.WithString("databasePath", mcp.Description("SQLite file to probe instead of the default store (optional)")),
	), s.traced("validate_update", s.handleValidateUpdate))

	s.mcp.AddTool(mcp.NewTool("validate_delete",
		mcp.WithDescription("Validate deleting a record inside a transaction that is always rolled back; "+
			"the database is never modified. Returns the delete change-plan fragment."),
		mcp.WithString("table", mcp.Description("Table to delete from"), mcp.Required()),
		mcp.WithString("recordId", mcp.Description("Exact existing id of the record to delete"), mcp.Required()),
		mcp.WithString("databasePath", mcp.Description("SQLite file to probe instead of the default store (optional)")),
	), s.traced("validate_delete", s.handleValidateDelete))
}

func (s *Server) handleValidateInsert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	table, _ := args["table"].(string)
	if table == "" {
		return nil, fmt.Errorf("table is required")
	}
	record, err := recordArg(args, "record")
	if err != nil {
		return errorResult(err), nil
	}

	fragment, err := s.engine.ValidateInsert(ctx, s.resolveTarget(args), table, record)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(fragment)
}

func (s *Server) handleValidateUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	table, _ := args["table"].(string)
	recordID, _ := args["recordId"].(string)
	if table == "" || recordID == "" {
		return nil, fmt.Errorf("table and recordId are required")
	}
	updates, err := recordArg(args, "updates")
	if err != nil {
		return errorResult(err), nil
	}

	fragment, err := s.engine.ValidateUpdate(ctx, s.resolveTarget(args), table, recordID, updates)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(fragment)
}

func (s *Server) handleValidateDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	table, _ := args["table"].(string)
	recordID, _ := args["recordId"].(string)
	if table == "" || recordID == "" {
		return nil, fmt.Errorf("table and recordId are required")
	}

	fragment, err := s.engine.ValidateDelete(ctx, s.resolveTarget(args), table, recordID)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(fragment)
}

// recordArg reads a record payload that may arrive as a JSON string or as a
// structured object. A payload that cannot be interpreted as a flat record is
// reported in the same shape as the engine's malformed-input failures.
func recordArg(args map[string]any, key string) (domain.Record, error) {
	switch v := args[key].(type) {
	case map[string]any:
		return domain.Record(v), nil
	case string:
		var record domain.Record
		if err := json.Unmarshal([]byte(v), &record); err != nil {
			return nil, &engine.MalformedInputError{Reason: fmt.Sprintf("%s is not valid JSON: %v", key, err)}
		}
		return record, nil
	default:
		return nil, &engine.MalformedInputError{Reason: key + " must be a JSON object"}
	}
}
