package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ramarlina/tally-cli/internal/devserver"
	"github.com/spf13/cobra"
)

var (
	flagListen      string
	flagCSRFMode    string
	flagRequireAuth bool
	flagAccounts    []string
)

func init() {
	rootCmd.AddCommand(devServerCmd)

	devServerCmd.Flags().StringVar(&flagListen, "listen", "127.0.0.1:8080", "Address to listen on")
	devServerCmd.Flags().StringVar(&flagCSRFMode, "csrf", string(devserver.CSRFCookie), "CSRF mode: cookie, meta or off")
	devServerCmd.Flags().BoolVar(&flagRequireAuth, "require-auth", false, "Reject /api calls without a login session")
	devServerCmd.Flags().StringArrayVar(&flagAccounts, "account", nil, "Accepted login user:password (repeatable; none accepts any)")
}

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run an in-memory tally backend for local testing",
	Long: `Run an in-memory backend that serves every collection, the session
endpoints and the login form. Records live only as long as the process.

  tally dev-server --csrf meta --require-auth --account admin:admin
  tally --api-url http://127.0.0.1:8080 login -u admin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := devserver.CSRFMode(flagCSRFMode)
		switch mode {
		case devserver.CSRFCookie, devserver.CSRFMeta, devserver.CSRFOff:
		default:
			return fmt.Errorf("invalid --csrf %q (cookie, meta, off)", flagCSRFMode)
		}

		accounts := make(map[string]string, len(flagAccounts))
		for _, a := range flagAccounts {
			user, pass, ok := strings.Cut(a, ":")
			if !ok || user == "" {
				return fmt.Errorf("invalid --account %q, expected user:password", a)
			}
			accounts[user] = pass
		}

		srv := devserver.New(devserver.Options{
			CSRF:        mode,
			RequireAuth: flagRequireAuth,
			Accounts:    accounts,
		})

		errc := make(chan error, 1)
		go func() {
			errc <- srv.Start(flagListen)
		}()
		fmt.Fprintf(cmd.ErrOrStderr(), "tally dev server on http://%s (csrf: %s)\n", flagListen, mode)

		select {
		case err := <-errc:
			return err
		case <-cmd.Context().Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		return <-errc
	},
}
