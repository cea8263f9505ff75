package main

import (
	"github.com/ramarlina/tally-cli/pkg/client"
	"github.com/ramarlina/tally-cli/pkg/mcp"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP (Model Context Protocol) server",
	Long: `Run an MCP server that exposes tally to AI assistants.

The server communicates over stdio using the Model Context Protocol. It
starts from the session saved by ` + "`tally login`" + ` and never writes it back.

Available tools:
  Authentication:
    tally_login          - Log in with username and password
    tally_status         - Check which user the session belongs to

  Reading:
    tally_list           - List a collection, optionally by status
    tally_get            - Get one entity by id
    tally_search         - Paged, filtered, sorted listing
    tally_validate       - Check a field value, e.g. a duplicate email

  Time reports:
    tally_close_report   - Close a user's time report up to a date
    tally_open_report    - Reopen a user's time report

Environment variables:
  TALLY_API_URL        - API endpoint (default: http://localhost:8080)
  TALLY_CONFIG_DIR     - Custom config/session directory
  TALLY_LOG_LEVEL      - Log level, logs go to stderr

Example MCP configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "tally": {
        "command": "tally",
        "args": ["mcp"],
        "env": {
          "TALLY_API_URL": "https://tally.example.com"
        }
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, err := requestTimeout()
		if err != nil {
			return err
		}
		srv := mcp.NewServer(apiURL(), currentSession(), client.WithTimeout(timeout))
		return srv.ServeContext(cmd.Context())
	},
}
