package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ramarlina/tally-cli/pkg/format"
	"github.com/ramarlina/tally-cli/pkg/models"
	"github.com/ramarlina/tally-cli/pkg/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var flagUsername string

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVarP(&flagUsername, "username", "u", "", "Login name")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the tally backend",
	Long: `Log in with a username and password.

The index page is loaded first so that its CSRF token (cookie or meta tag)
accompanies the login form. The password is read without echo from the
terminal, or as the first line of stdin when it is piped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()
		ctx := cmd.Context()

		// Check if already logged in
		if sess := currentSession(); sess != nil && sess.User != nil && !out.IsStructured() {
			ok, err := getConfirmer().Confirm(ctx, fmt.Sprintf("Already logged in as %s. Log in again?", userLabel(sess.User)))
			if err != nil {
				return out.Error(err)
			}
			if !ok {
				out.Println("Keeping the current session (use --yes to log in again)")
				return nil
			}
		}

		in := bufio.NewReader(os.Stdin)
		username := flagUsername
		if username == "" {
			fmt.Fprint(os.Stderr, "Username: ")
			line, err := readLine(in)
			if err != nil {
				return out.Error(fmt.Errorf("read username: %w", err))
			}
			username = line
		}
		password, err := readPassword(in)
		if err != nil {
			return out.Error(fmt.Errorf("read password: %w", err))
		}

		svc, b, err := servicesFor(nil)
		if err != nil {
			return out.Error(err)
		}

		page, err := svc.Client().PageBody(ctx, "/")
		if err != nil {
			log.Warnw("could not load index page, continuing without meta token", "err", err)
		} else if err := b.LoadPage(bytes.NewReader(page)); err != nil {
			log.Warnw("could not read page tokens", "err", err)
		}

		if err := svc.Session.Login(ctx, username, password); err != nil {
			return out.Error(err)
		}

		cur, err := svc.Session.Current(ctx)
		if err != nil {
			return out.Error(err)
		}
		if !cur.Authenticated {
			return out.Error(fmt.Errorf("login was not accepted"))
		}
		user := cur.User
		if user == nil {
			user = &models.User{Username: username}
		}

		sess, err := session.Capture(b, apiURL(), user)
		if err != nil {
			return out.Error(err)
		}
		if err := session.Save(sess); err != nil {
			return out.Error(fmt.Errorf("save session: %w", err))
		}

		if out.IsStructured() {
			return out.Success(map[string]any{
				"authenticated": true,
				"user":          user,
				"roles":         cur.Roles,
			})
		}
		out.Done("Logged in as %s", userLabel(user))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()

		if currentSession() != nil {
			svc, _, err := getServices()
			if err == nil {
				if err := svc.Session.Logout(cmd.Context()); err != nil {
					log.Warnw("server logout failed, dropping local session anyway", "err", err)
				}
			}
		}
		activeBrowser = nil

		if err := session.Clear(); err != nil {
			return out.Error(err)
		}

		if out.IsStructured() {
			return out.Success(map[string]bool{"logged_out": true})
		}
		out.Println("Logged out successfully")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()

		saved := currentSession()
		if saved == nil {
			if out.IsStructured() {
				return out.Success(map[string]any{"authenticated": false})
			}
			out.Println("Not logged in")
			return nil
		}

		svc, _, err := getServices()
		if err != nil {
			return out.Error(err)
		}
		cur, err := svc.Session.Current(cmd.Context())
		if err != nil {
			return out.Error(err)
		}
		if !cur.Authenticated {
			if out.IsStructured() {
				return out.Success(map[string]any{"authenticated": false})
			}
			out.Println("Session expired, run `tally login`")
			return nil
		}

		if out.IsStructured() {
			return out.Success(map[string]any{
				"authenticated": true,
				"user":          cur.User,
				"roles":         cur.Roles,
				"since":         saved.CreatedAt,
			})
		}

		out.Printf("Logged in as %s\n", userLabel(cur.User))
		if cur.User != nil && cur.User.ID != 0 {
			out.Printf("User ID: %d\n", cur.User.ID)
		}
		if len(cur.Roles) > 0 {
			out.Printf("Roles: %s\n", strings.Join(cur.Roles, ", "))
		}
		if !saved.CreatedAt.IsZero() {
			out.Printf("Session started %s\n", format.Ago(saved.CreatedAt))
		}
		return nil
	},
}

func userLabel(u *models.User) string {
	if u == nil {
		return "unknown"
	}
	if name := u.FullName(); name != "" && name != u.Username {
		return fmt.Sprintf("%s (%s)", name, u.Username)
	}
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("user %d", u.ID)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readPassword(in *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(in)
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
