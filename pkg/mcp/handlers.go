package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ramarlina/tally-cli/pkg/client"
	"github.com/ramarlina/tally-cli/pkg/format"
)

const maxPageSize = 200

// Handlers contains all tool handlers for the tally MCP server.
type Handlers struct {
	auth *AuthState
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(auth *AuthState) *Handlers {
	return &Handlers{auth: auth}
}

// apiError turns a failed call into a tool error carrying the user message.
func apiError(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", action, client.Normalize(err).UserMessage("")))
}

// === Authentication Handlers ===

// HandleLogin handles the tally_login tool.
func (h *Handlers) HandleLogin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := req.RequireString("username")
	if err != nil {
		return mcp.NewToolResultError("username is required"), nil
	}
	password, err := req.RequireString("password")
	if err != nil {
		return mcp.NewToolResultError("password is required"), nil
	}

	user, err := h.auth.Login(ctx, username, password)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return apiError("Login failed", err), nil
		}
		return mcp.NewToolResultErrorFromErr("Login failed", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Logged in as %s\nSession active.", displayName(user))), nil
}

// HandleStatus handles the tally_status tool.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !h.auth.IsAuthenticated() {
		return mcp.NewToolResultText("Not authenticated. Use tally_login to authenticate."), nil
	}

	// Verify the session is still valid by calling the API
	sess, err := h.auth.Services().Session.Current(ctx)
	if err != nil || !sess.Authenticated {
		h.auth.Clear()
		if err == nil {
			return mcp.NewToolResultText("Session expired. Use tally_login to authenticate."), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Session expired: %s", client.Normalize(err).UserMessage(""))), nil
	}

	return mcp.NewToolResultText(FormatSession(sess)), nil
}

// === Reading Handlers ===

// HandleList handles the tally_list tool.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError("resource is required"), nil
	}
	res, err := h.auth.Services().Records(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	active := req.GetString("active", "")
	var recs []map[string]any
	switch active {
	case "":
		recs, err = res.List(ctx)
	case "true", "false":
		recs, err = res.ListByStatus(ctx, active == "true")
	default:
		return mcp.NewToolResultError("active must be true or false"), nil
	}
	if err != nil {
		return apiError("Failed to list "+name, err), nil
	}

	return mcp.NewToolResultText(FormatRecords(name, recs)), nil
}

// HandleGet handles the tally_get tool.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError("resource is required"), nil
	}
	id, err := req.RequireString("id")
	if err != nil || id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	res, err := h.auth.Services().Records(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := res.Get(ctx, id)
	if err != nil {
		return apiError(fmt.Sprintf("Failed to fetch %s %s", name, id), err), nil
	}

	return mcp.NewToolResultText(FormatRecord(*rec)), nil
}

// HandleSearch handles the tally_search tool.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError("resource is required"), nil
	}
	res, err := h.auth.Services().Records(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	page := req.GetInt("page", 0)
	if page < 0 {
		page = 0
	}
	size := req.GetInt("size", 20)
	if size < 1 {
		size = 20
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	q := client.PagedQuery{
		Page:      client.Int(page),
		Size:      client.Int(size),
		Sort:      req.GetString("sort", ""),
		Direction: req.GetString("direction", ""),
	}
	if active := req.GetString("active", ""); active != "" {
		v, err := strconv.ParseBool(active)
		if err != nil {
			return mcp.NewToolResultError("active must be true or false"), nil
		}
		q.Active = client.Bool(v)
	}
	if filters, ok := req.GetArguments()["filters"].(map[string]any); ok {
		q.Filters = filters
	}

	result, err := res.ListPaged(ctx, q)
	if err != nil {
		return apiError("Failed to search "+name, err), nil
	}

	return mcp.NewToolResultText(FormatPage(name, result)), nil
}

// HandleValidate handles the tally_validate tool.
func (h *Handlers) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError("resource is required"), nil
	}
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError("field is required"), nil
	}
	value := req.GetString("value", "")
	res, err := h.auth.Services().Records(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	v, err := res.ValidateField(ctx, req.GetString("id", ""), field, value)
	if err != nil {
		return apiError("Validation failed", err), nil
	}

	return mcp.NewToolResultText(FormatValidation(field, value, v)), nil
}

// === Time Report Handlers ===

// HandleCloseReport handles the tally_close_report tool.
func (h *Handlers) HandleCloseReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil || userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	closeDate, err := req.RequireString("close_date")
	if err != nil {
		return mcp.NewToolResultError("close_date is required"), nil
	}
	if _, err := format.ParseDate(closeDate); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := h.auth.Services().TimeReportStatus.Close(ctx, userID, closeDate); err != nil {
		return apiError("Failed to close time report", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Time report of user %s closed up to %s.", userID, closeDate)), nil
}

// HandleOpenReport handles the tally_open_report tool.
func (h *Handlers) HandleOpenReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil || userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	closeDate := req.GetString("close_date", "")
	if closeDate != "" {
		if _, err := format.ParseDate(closeDate); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	if err := h.auth.Services().TimeReportStatus.Open(ctx, userID, closeDate); err != nil {
		return apiError("Failed to open time report", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Time report of user %s reopened.", userID)), nil
}
