package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ramarlina/tally-cli/pkg/services"
)

// ToolDefinitions returns all tool definitions for the tally MCP server.
func ToolDefinitions() []mcp.Tool {
	return []mcp.Tool{
		// Authentication tools
		toolLogin(),
		toolStatus(),

		// Reading tools
		toolList(),
		toolGet(),
		toolSearch(),
		toolValidate(),

		// Time report tools
		toolCloseReport(),
		toolOpenReport(),
	}
}

func resourceParam() mcp.ToolOption {
	return mcp.WithString("resource",
		mcp.Description("Collection name, e.g. users, projects, timereport"),
		mcp.Required(),
		mcp.Enum(services.Names()...),
	)
}

// === Authentication Tools ===

func toolLogin() mcp.Tool {
	return mcp.NewTool("tally_login",
		mcp.WithDescription("Log in to tally with a username and password. Required when the server rejects calls with 401."),
		mcp.WithString("username",
			mcp.Description("Login name"),
			mcp.Required(),
		),
		mcp.WithString("password",
			mcp.Description("Password"),
			mcp.Required(),
		),
	)
}

func toolStatus() mcp.Tool {
	return mcp.NewTool("tally_status",
		mcp.WithDescription("Check which user the session belongs to"),
	)
}

// === Reading Tools ===

func toolList() mcp.Tool {
	return mcp.NewTool("tally_list",
		mcp.WithDescription("List every entity of a collection, optionally only active or inactive ones"),
		resourceParam(),
		mcp.WithString("active",
			mcp.Description("Filter by status: true or false (default: no filter)"),
			mcp.Enum("true", "false"),
		),
	)
}

func toolGet() mcp.Tool {
	return mcp.NewTool("tally_get",
		mcp.WithDescription("Get a single entity by id"),
		resourceParam(),
		mcp.WithString("id",
			mcp.Description("Entity id"),
			mcp.Required(),
		),
	)
}

func toolSearch() mcp.Tool {
	return mcp.NewTool("tally_search",
		mcp.WithDescription("Paged, filtered and sorted listing of a collection"),
		resourceParam(),
		mcp.WithNumber("page",
			mcp.Description("Zero-based page number (default 0)"),
		),
		mcp.WithNumber("size",
			mcp.Description("Page size (default 20, max 200)"),
		),
		mcp.WithString("sort",
			mcp.Description("Field to sort by, e.g. lastName"),
		),
		mcp.WithString("direction",
			mcp.Description("Sort direction"),
			mcp.Enum("asc", "desc"),
		),
		mcp.WithString("active",
			mcp.Description("Filter by status: true or false"),
			mcp.Enum("true", "false"),
		),
		mcp.WithObject("filters",
			mcp.Description("Field filters, e.g. {\"firstName\": \"ada\"}"),
		),
	)
}

func toolValidate() mcp.Tool {
	return mcp.NewTool("tally_validate",
		mcp.WithDescription("Ask the server whether a value is acceptable for a field, e.g. whether an email is already in use"),
		resourceParam(),
		mcp.WithString("field",
			mcp.Description("Field name"),
			mcp.Required(),
		),
		mcp.WithString("value",
			mcp.Description("Candidate value"),
			mcp.Required(),
		),
		mcp.WithString("id",
			mcp.Description("Id of the entity being edited; omit for new entities"),
		),
	)
}

// === Time Report Tools ===

func toolCloseReport() mcp.Tool {
	return mcp.NewTool("tally_close_report",
		mcp.WithDescription("Close a user's time report up to a date so no more time can be reported before it"),
		mcp.WithString("user_id",
			mcp.Description("User id"),
			mcp.Required(),
		),
		mcp.WithString("close_date",
			mcp.Description("Last closed day, YYYY-MM-DD"),
			mcp.Required(),
		),
	)
}

func toolOpenReport() mcp.Tool {
	return mcp.NewTool("tally_open_report",
		mcp.WithDescription("Reopen a user's time report"),
		mcp.WithString("user_id",
			mcp.Description("User id"),
			mcp.Required(),
		),
		mcp.WithString("close_date",
			mcp.Description("New close date, YYYY-MM-DD (optional)"),
		),
	)
}
