package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ramarlina/tally-cli/internal/devserver"
	"github.com/ramarlina/tally-cli/pkg/config"
	"github.com/ramarlina/tally-cli/pkg/output"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags puts every flag of cmd and its children back to its default, so
// that one test run does not leak into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil) //nolint:errcheck
		} else {
			f.Value.Set(f.DefValue) //nolint:errcheck
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command in process and returns what it printed.
func runCLI(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	resetFlags(rootCmd)
	activeBrowser = nil

	inR, inW, perr := os.Pipe()
	if perr != nil {
		t.Fatal(perr)
	}
	outR, outW, perr := os.Pipe()
	if perr != nil {
		t.Fatal(perr)
	}
	errR, errW, perr := os.Pipe()
	if perr != nil {
		t.Fatal(perr)
	}

	go func() {
		io.WriteString(inW, stdin) //nolint:errcheck
		inW.Close()
	}()

	var outBuf, errBuf bytes.Buffer
	done := make(chan struct{}, 2)
	go func() { io.Copy(&outBuf, outR); done <- struct{}{} }() //nolint:errcheck
	go func() { io.Copy(&errBuf, errR); done <- struct{}{} }() //nolint:errcheck

	oldIn, oldOut, oldErr := os.Stdin, os.Stdout, os.Stderr
	os.Stdin, os.Stdout, os.Stderr = inR, outW, errW

	rootCmd.SetArgs(args)
	err = rootCmd.ExecuteContext(context.Background())

	os.Stdin, os.Stdout, os.Stderr = oldIn, oldOut, oldErr
	outW.Close()
	errW.Close()
	<-done
	<-done
	inR.Close()

	return outBuf.String(), errBuf.String(), err
}

// envelope decodes the --json output of a command.
func envelope(t *testing.T, stdout string) (bool, json.RawMessage) {
	t.Helper()

	var resp struct {
		OK     bool            `json:"ok"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("stdout is not a JSON envelope: %v\n%s", err, stdout)
	}
	var compact bytes.Buffer
	if len(resp.Result) > 0 {
		if err := json.Compact(&compact, resp.Result); err != nil {
			t.Fatal(err)
		}
	}
	return resp.OK, compact.Bytes()
}

func setupCLI(t *testing.T, opts devserver.Options) *devserver.Server {
	t.Helper()

	srv := devserver.New(opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	t.Setenv(config.EnvConfigDir, t.TempDir())
	t.Setenv(config.EnvAPIURL, ts.URL)
	config.Reset()
	t.Cleanup(config.Reset)

	return srv
}

func TestCLIBasicCommands(t *testing.T) {
	setupCLI(t, devserver.Options{CSRF: devserver.CSRFCookie})

	t.Run("help lists collections", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "--help")
		if err != nil {
			t.Fatalf("--help failed: %v", err)
		}
		for _, want := range []string{"users", "timereportstatus", "dev-server", "doctor"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("help output missing %q", want)
			}
		}
	})

	t.Run("config set and get", func(t *testing.T) {
		if _, _, err := runCLI(t, "", "config", "set", "locale", "sv-SE"); err != nil {
			t.Fatalf("config set failed: %v", err)
		}
		stdout, _, err := runCLI(t, "", "--raw", "config", "get", "locale")
		if err != nil {
			t.Fatalf("config get failed: %v", err)
		}
		if strings.TrimSpace(stdout) != "sv-SE" {
			t.Errorf("locale = %q, want sv-SE", stdout)
		}
	})

	t.Run("config unset", func(t *testing.T) {
		if _, _, err := runCLI(t, "", "config", "set", "locale", "sv-SE"); err != nil {
			t.Fatal(err)
		}
		if _, _, err := runCLI(t, "", "config", "unset", "locale"); err != nil {
			t.Fatalf("config unset failed: %v", err)
		}
		stdout, _, err := runCLI(t, "", "--raw", "config", "ls")
		if err != nil {
			t.Fatalf("config ls failed: %v", err)
		}
		if !strings.Contains(stdout, "locale=en\n") {
			t.Errorf("config ls = %q, want locale=en", stdout)
		}
		if _, _, err := runCLI(t, "", "config", "unset", "no-such-key"); err == nil {
			t.Error("expected error for unknown key")
		}
	})

	t.Run("invalid config value", func(t *testing.T) {
		_, stderr, err := runCLI(t, "", "config", "set", "output.format", "xml")
		if err == nil {
			t.Fatal("expected error")
		}
		if !output.IsReported(err) {
			t.Errorf("expected the error to be reported, got %v", err)
		}
		if !strings.Contains(stderr, "invalid output.format") {
			t.Errorf("stderr = %q", stderr)
		}
	})

	t.Run("unknown log level", func(t *testing.T) {
		if _, _, err := runCLI(t, "", "--log-level", "chatty", "config", "ls"); err == nil {
			t.Error("expected error for unknown log level")
		}
	})
}

func TestCLIWorkflow(t *testing.T) {
	srv := setupCLI(t, devserver.Options{
		CSRF:        devserver.CSRFMeta,
		RequireAuth: true,
		Accounts:    map[string]string{"ada": "secret"},
	})

	t.Run("unauthenticated call hints at login", func(t *testing.T) {
		_, stderr, err := runCLI(t, "", "companies", "ls")
		if err == nil {
			t.Fatal("expected 401")
		}
		if !strings.Contains(stderr, "tally login") {
			t.Errorf("missing login hint in %q", stderr)
		}
	})

	t.Run("login", func(t *testing.T) {
		stdout, stderr, err := runCLI(t, "secret\n", "login", "-u", "ada")
		if err != nil {
			t.Fatalf("login failed: %v\n%s", err, stderr)
		}
		if !strings.Contains(stdout, "Logged in as ada") {
			t.Errorf("stdout = %q", stdout)
		}
	})

	t.Run("whoami", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "--json", "whoami")
		if err != nil {
			t.Fatalf("whoami failed: %v", err)
		}
		ok, result := envelope(t, stdout)
		if !ok || !strings.Contains(string(result), `"authenticated":true`) {
			t.Errorf("whoami = %s", stdout)
		}
	})

	file := filepath.Join(t.TempDir(), "acme.json")
	if err := os.WriteFile(file, []byte(`{"name": "Acme", "orgNumber": "556000-1234", "active": true}`), 0600); err != nil {
		t.Fatal(err)
	}

	t.Run("create", func(t *testing.T) {
		stdout, stderr, err := runCLI(t, "", "--json", "companies", "create", "-f", file)
		if err != nil {
			t.Fatalf("create failed: %v\n%s%s", err, stdout, stderr)
		}
		ok, result := envelope(t, stdout)
		if !ok || !strings.Contains(string(result), `"name":"Acme"`) {
			t.Errorf("create = %s", stdout)
		}
	})

	t.Run("duplicate create is a validation error", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "--json", "companies", "create", "-f", file)
		if err == nil {
			t.Fatal("expected validation error")
		}
		if !strings.Contains(stdout, `"code": "validation"`) || !strings.Contains(stdout, "already in use") {
			t.Errorf("stdout = %s", stdout)
		}
	})

	t.Run("get this", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "companies", "get", "this")
		if err != nil {
			t.Fatalf("get this failed: %v", err)
		}
		if !strings.Contains(stdout, "Acme") {
			t.Errorf("stdout = %q", stdout)
		}
	})

	t.Run("list by status", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "companies", "ls", "--active", "false")
		if err != nil {
			t.Fatalf("ls failed: %v", err)
		}
		if !strings.Contains(stdout, "No companies found") {
			t.Errorf("inactive companies = %q", stdout)
		}

		stdout, _, err = runCLI(t, "", "--raw", "companies", "ls", "--active", "true")
		if err != nil {
			t.Fatalf("ls failed: %v", err)
		}
		if strings.TrimSpace(stdout) != "1" {
			t.Errorf("active company ids = %q, want 1", stdout)
		}
	})

	t.Run("search", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "--json", "companies", "search", "--filter", "name=acm", "--size", "5")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		_, result := envelope(t, stdout)
		var page struct {
			TotalElements int `json:"totalElements"`
		}
		if err := json.Unmarshal(result, &page); err != nil {
			t.Fatal(err)
		}
		if page.TotalElements != 1 {
			t.Errorf("totalElements = %d, want 1", page.TotalElements)
		}
	})

	t.Run("validate", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "companies", "validate", "name", "Acme")
		if err == nil {
			t.Error("expected a non-zero exit for an invalid value")
		}
		if !strings.Contains(stdout, "already in use") {
			t.Errorf("stdout = %q", stdout)
		}

		if _, _, err := runCLI(t, "", "companies", "validate", "name", "Globex"); err != nil {
			t.Errorf("Globex should be valid: %v", err)
		}
	})

	t.Run("close time report", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "--json", "timereport", "close", "--user", "7", "--date", "2026-09-30")
		if err != nil {
			t.Fatalf("close failed: %v", err)
		}
		_, result := envelope(t, stdout)
		if !strings.Contains(string(result), `"Closed":true`) || !strings.Contains(string(result), "2026-09-30") {
			t.Errorf("row = %s", result)
		}
	})

	t.Run("truncate needs confirmation", func(t *testing.T) {
		stdout, _, err := runCLI(t, "", "system", "truncate")
		if err != nil {
			t.Fatalf("truncate failed: %v", err)
		}
		if !strings.Contains(stdout, "Cancelled") {
			t.Errorf("stdout = %q", stdout)
		}
		if slices.Contains(srv.Actions(), "POST /api/system/truncate") {
			t.Error("truncate was sent without confirmation")
		}

		if _, _, err := runCLI(t, "", "--yes", "system", "truncate"); err != nil {
			t.Fatalf("truncate --yes failed: %v", err)
		}
		if !slices.Contains(srv.Actions(), "POST /api/system/truncate") {
			t.Errorf("actions = %v", srv.Actions())
		}
	})

	t.Run("rm this", func(t *testing.T) {
		if _, _, err := runCLI(t, "", "companies", "get", "this"); err != nil {
			t.Fatalf("get this failed: %v", err)
		}
		stdout, _, err := runCLI(t, "", "--yes", "companies", "rm", "this")
		if err != nil {
			t.Fatalf("rm failed: %v", err)
		}
		if !strings.Contains(stdout, "Deleted companies") {
			t.Errorf("stdout = %q", stdout)
		}
	})

	t.Run("logout", func(t *testing.T) {
		if _, _, err := runCLI(t, "", "logout"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		stdout, _, _ := runCLI(t, "", "--json", "whoami")
		if ok, result := envelope(t, stdout); !ok || !strings.Contains(string(result), `"authenticated":false`) {
			t.Errorf("whoami after logout = %s", stdout)
		}
	})
}
