package main

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/ramarlina/tally-cli/pkg/client"
	"github.com/ramarlina/tally-cli/pkg/config"
	"github.com/ramarlina/tally-cli/pkg/csrf"
	"github.com/ramarlina/tally-cli/pkg/format"
	"github.com/ramarlina/tally-cli/pkg/services"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// checkParallelism bounds the concurrent requests of doctor.
const checkParallelism = 4

// Check is the outcome of one reachability check.
type Check struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	OK     bool   `json:"ok"`
	Status string `json:"status"`
	TookMS int64  `json:"took_ms"`
}

// Report is what doctor found.
type Report struct {
	APIURL    string  `json:"api_url"`
	ConfigDir string  `json:"config_dir"`
	Timeout   string  `json:"timeout"`
	User      string  `json:"user,omitempty"`
	Since     string  `json:"since,omitempty"`
	CSRF      string  `json:"csrf"`
	Checks    []Check `json:"checks"`
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, session and backend reachability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()
		ctx := cmd.Context()

		dir, err := config.Dir()
		if err != nil {
			return out.Error(err)
		}
		timeout, err := requestTimeout()
		if err != nil {
			return out.Error(err)
		}

		rep := Report{
			APIURL:    apiURL(),
			ConfigDir: dir,
			Timeout:   timeout.String(),
		}
		if sess := currentSession(); sess != nil && sess.User != nil {
			rep.User = userLabel(sess.User)
			if !sess.CreatedAt.IsZero() {
				rep.Since = format.Ago(sess.CreatedAt)
			}
		}

		svc, b, err := getServices()
		if err != nil {
			return out.Error(err)
		}
		rep.CSRF = detectCSRF(ctx, svc.Client(), b)
		rep.Checks = checkAll(ctx, svc.Client(), services.Catalog)

		failed := 0
		for _, p := range rep.Checks {
			if !p.OK {
				failed++
			}
		}

		if out.IsStructured() {
			return out.Success(rep)
		}

		user := rep.User
		if user == "" {
			user = "not logged in"
		} else if rep.Since != "" {
			user += ", since " + rep.Since
		}
		out.Printf("API:     %s\n", rep.APIURL)
		out.Printf("Config:  %s\n", rep.ConfigDir)
		out.Printf("Timeout: %s\n", rep.Timeout)
		out.Printf("Session: %s\n", user)
		out.Printf("CSRF:    %s\n\n", rep.CSRF)

		rows := make([][]string, 0, len(rep.Checks))
		for _, p := range rep.Checks {
			rows = append(rows, []string{p.Name, p.Path, p.Status, (time.Duration(p.TookMS) * time.Millisecond).String()})
		}
		if err := out.Table([]string{"resource", "path", "status", "took"}, rows); err != nil {
			return err
		}

		if failed > 0 {
			out.Printf("\n%d of %d checks failed\n", failed, len(rep.Checks))
		} else {
			out.Done("All %d checks passed", len(rep.Checks))
		}
		return nil
	},
}

// detectCSRF loads the index page and reports which token mode the server uses.
func detectCSRF(ctx context.Context, c *client.Client, b *csrf.Browser) string {
	page, err := c.PageBody(ctx, "/")
	if err != nil {
		return "unknown (" + client.Normalize(err).UserMessage("") + ")"
	}
	if err := b.LoadPage(bytes.NewReader(page)); err != nil {
		log.Debugw("could not parse index page", "err", err)
	}
	if v, ok := b.Cookie(csrf.CookieName); ok && v != "" {
		return "cookie (" + csrf.CookieName + ")"
	}
	if v, ok := b.Meta(csrf.MetaName); ok && v != "" {
		return "meta (" + csrf.MetaName + ")"
	}
	return "none"
}

// checkAll lists every collection concurrently. A failing check does not stop
// the others.
func checkAll(ctx context.Context, c *client.Client, entries []services.Entry) []Check {
	checks := make([]Check, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(checkParallelism)
	for i, e := range entries {
		g.Go(func() error {
			start := time.Now()
			var body json.RawMessage
			err := c.Get(ctx, e.Path, nil, &body)

			p := Check{Name: e.Name, Path: e.Path, OK: err == nil, Status: "ok"}
			if err != nil {
				apiErr := client.Normalize(err)
				p.Status = apiErr.Code()
				if apiErr.Status != 0 {
					p.Status += " (" + apiErr.Error() + ")"
				}
			}
			p.TookMS = time.Since(start).Milliseconds()
			checks[i] = p
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	return checks
}
