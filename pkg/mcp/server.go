package mcp

import (
	"context"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ramarlina/tally-cli/pkg/client"
	"github.com/ramarlina/tally-cli/pkg/session"
)

var log = logging.Logger("tally/mcp")

const (
	// ServerName is the name of the MCP server.
	ServerName = "tally-mcp"
	// ServerVersion is the version of the MCP server.
	ServerVersion = "0.1.0"
)

// Server wraps the MCP server with tally-specific functionality.
type Server struct {
	mcpServer *server.MCPServer
	auth      *AuthState
	handlers  *Handlers
}

// NewServer creates a new tally MCP server for apiURL. sess may be nil.
func NewServer(apiURL string, sess *session.Session, opts ...client.Option) *Server {
	auth := NewAuthState(apiURL, sess, opts...)
	handlers := NewHandlers(auth)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		auth:      auth,
		handlers:  handlers,
	}

	s.registerTools()

	return s
}

// registerTools registers all tally tools with the MCP server.
func (s *Server) registerTools() {
	tools := ToolDefinitions()

	for _, tool := range tools {
		switch tool.Name {
		// Authentication
		case "tally_login":
			s.mcpServer.AddTool(tool, s.handlers.HandleLogin)
		case "tally_status":
			s.mcpServer.AddTool(tool, s.handlers.HandleStatus)

		// Reading
		case "tally_list":
			s.mcpServer.AddTool(tool, s.handlers.HandleList)
		case "tally_get":
			s.mcpServer.AddTool(tool, s.handlers.HandleGet)
		case "tally_search":
			s.mcpServer.AddTool(tool, s.handlers.HandleSearch)
		case "tally_validate":
			s.mcpServer.AddTool(tool, s.handlers.HandleValidate)

		// Time reports
		case "tally_close_report":
			s.mcpServer.AddTool(tool, s.handlers.HandleCloseReport)
		case "tally_open_report":
			s.mcpServer.AddTool(tool, s.handlers.HandleOpenReport)

		default:
			log.Warnw("tool without handler", "tool", tool.Name)
		}
	}
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeContext starts the MCP server on stdio with a context.
func (s *Server) ServeContext(ctx context.Context) error {
	return server.ServeStdio(s.mcpServer, server.WithStdioContextFunc(func(_ context.Context) context.Context {
		return ctx
	}))
}

// GetMCPServer returns the underlying MCP server for testing.
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// GetAuthState returns the authentication state for testing.
func (s *Server) GetAuthState() *AuthState {
	return s.auth
}
