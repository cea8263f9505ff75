package main

import (
	"context"
	"fmt"
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/ramarlina/tally-cli/pkg/config"
	"github.com/ramarlina/tally-cli/pkg/session"
	"github.com/spf13/cobra"
)

var log = logging.Logger("tally/cli")

// EnvLogLevel sets the log level when --log-level is not given.
const EnvLogLevel = "TALLY_LOG_LEVEL"

var (
	// Global flags
	flagJSON     bool
	flagRaw      bool
	flagYAML     bool
	flagQuiet    bool
	flagNoANSI   bool
	flagYes      bool
	flagAPIURL   string
	flagTimeout  string
	flagLogLevel string
	flagLogJSON  bool

	// Version metadata (filled by goreleaser)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "tally",
	Short:         "Time reporting and invoicing admin CLI",
	Long:          "Manage users, projects, rates and time reports of a tally backend from the shell",
	Version:       fmt.Sprintf("%s (%s, %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(); err != nil {
			return err
		}
		// Initialize configuration
		if _, err := config.Load(); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		// Load session (ignore errors, session is optional)
		session.Load() //nolint:errcheck
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		persistCookies()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&flagRaw, "raw", false, "Minimal human output (no decoration)")
	rootCmd.PersistentFlags().BoolVar(&flagYAML, "yaml", false, "YAML output")
	rootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&flagNoANSI, "no-ansi", false, "Disable ANSI formatting")
	rootCmd.PersistentFlags().BoolVar(&flagYes, "yes", false, "Skip confirmation prompts")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "API endpoint (default from config or "+config.EnvAPIURL+")")
	rootCmd.PersistentFlags().StringVar(&flagTimeout, "timeout", "", "Request timeout, e.g. 10s (0 disables)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default from "+EnvLogLevel+" or error)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Log as JSON")
}

// setupLogging keeps logs quiet unless asked for; they go to stderr so they
// never mix with command output.
func setupLogging() error {
	level := flagLogLevel
	if level == "" {
		level = os.Getenv(EnvLogLevel)
	}
	if level == "" {
		level = "error"
	}
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}

	lcfg := logging.GetConfig()
	lcfg.Stderr = true
	lcfg.Stdout = false
	lcfg.Level = lvl
	if flagLogJSON {
		lcfg.Format = logging.JSONOutput
	}
	logging.SetupLogging(lcfg)
	return nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
