package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tedtam/fieldops/internal/filter"
	"github.com/tedtam/fieldops/internal/report"
	"github.com/tedtam/fieldops/internal/store"
)

// NewMCPServer exposes the customer table to assistants: search, record
// lookup, and the performance rollup.
func NewMCPServer(st store.Store) *server.MCPServer {
	s := server.NewMCPServer(
		"fieldops",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions("fieldops, a field-operations CRM: debt-collection accounts, team performance, and commissions."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_customers",
			mcp.WithDescription("Search customer accounts by name, account number, or hub code, optionally narrowed by status/team/work group."),
			mcp.WithString("query", mcp.Description("Free-text search term")),
			mcp.WithString("status", mcp.Description("Status filter (จบ or ไม่จบ)")),
			mcp.WithString("team", mcp.Description("Team filter")),
			mcp.WithString("workGroup", mcp.Description("Work group filter (6090 or NPL)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpSearchCustomers(st),
	)

	s.AddTool(
		mcp.NewTool("get_customer",
			mcp.WithDescription("Fetch one customer account by id."),
			mcp.WithString("id", mcp.Description("Customer id"), mcp.Required()),
		),
		mcpGetCustomer(st),
	)

	s.AddTool(
		mcp.NewTool("performance_summary",
			mcp.WithDescription("Per-team performance rollup over the current collection: assigned, completed, and case dispositions."),
		),
		mcpPerformanceSummary(st),
	)

	return s
}

func mcpSearchCustomers(st store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		records, err := st.List(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing customers: %v", err)), nil
		}

		cr := filter.Criteria{SearchTerm: req.GetString("query", "")}
		if v := req.GetString("status", ""); v != "" {
			cr.Status = []string{v}
		}
		if v := req.GetString("team", ""); v != "" {
			cr.Team = []string{v}
		}
		if v := req.GetString("workGroup", ""); v != "" {
			cr.WorkGroup = []string{v}
		}

		matched := filter.Apply(records, cr)
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit < len(matched) {
			matched = matched[:limit]
		}

		b, err := json.Marshal(matched)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetCustomer(st store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		c, err := st.Get(ctx, id)
		if err == store.ErrNotFound {
			return mcpError(fmt.Sprintf("no customer with id %s", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("fetching customer: %v", err)), nil
		}

		b, err := json.Marshal(c)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding customer: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpPerformanceSummary(st store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		records, err := st.List(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing customers: %v", err)), nil
		}

		b, err := json.Marshal(report.Summarize(records))
		if err != nil {
			return mcpError(fmt.Sprintf("encoding summary: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
