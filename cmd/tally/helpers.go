package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ramarlina/tally-cli/pkg/client"
	"github.com/ramarlina/tally-cli/pkg/config"
	"github.com/ramarlina/tally-cli/pkg/csrf"
	"github.com/ramarlina/tally-cli/pkg/models"
	"github.com/ramarlina/tally-cli/pkg/output"
	"github.com/ramarlina/tally-cli/pkg/prompt"
	"github.com/ramarlina/tally-cli/pkg/services"
	"github.com/ramarlina/tally-cli/pkg/session"
)

// activeBrowser holds the cookies of the running command so they can be
// written back to the session once it is done.
var activeBrowser *csrf.Browser

// getOutputPrinter creates an output printer based on global flags, falling
// back to the configured output format.
func getOutputPrinter() *output.Printer {
	format := output.FormatHuman
	switch {
	case flagJSON:
		format = output.FormatJSON
	case flagYAML:
		format = output.FormatYAML
	case flagRaw:
		format = output.FormatRaw
	default:
		if v, err := config.Get("output.format"); err == nil {
			if f, err := output.ParseFormat(v); err == nil {
				format = f
			}
		}
	}

	return output.New(format, flagQuiet, flagNoANSI)
}

func apiURL() string {
	if flagAPIURL != "" {
		return flagAPIURL
	}
	return config.GetAPIUrl()
}

func requestTimeout() (time.Duration, error) {
	if flagTimeout == "" {
		return config.GetTimeout(), nil
	}
	d, err := time.ParseDuration(flagTimeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid --timeout %q", flagTimeout)
	}
	return d, nil
}

// currentSession returns the saved session if it belongs to the API in use.
func currentSession() *session.Session {
	sess, err := session.Load()
	if err != nil || sess.APIURL != apiURL() {
		return nil
	}
	return sess
}

// getServices creates the API clients, carrying the saved session cookies
// and CSRF tokens.
func getServices() (*services.Set, *csrf.Browser, error) {
	return servicesFor(currentSession())
}

// servicesFor creates the API clients on a cookie jar seeded from sess,
// which may be nil.
func servicesFor(sess *session.Session) (*services.Set, *csrf.Browser, error) {
	timeout, err := requestTimeout()
	if err != nil {
		return nil, nil, err
	}

	b, err := session.NewBrowser(apiURL(), sess)
	if err != nil {
		return nil, nil, err
	}
	activeBrowser = b

	c := client.New(apiURL(),
		client.WithHTTPClient(&http.Client{Jar: b.Jar()}),
		client.WithCredentials(b),
		client.WithTimeout(timeout),
		client.WithUserAgent("tally-cli/"+version),
	)
	return services.New(c), b, nil
}

// persistCookies writes rotated cookies back to the saved session.
func persistCookies() {
	if activeBrowser == nil {
		return
	}
	sess := currentSession()
	if sess == nil {
		return
	}
	updated, err := session.Capture(activeBrowser, sess.APIURL, sess.User)
	if err != nil {
		log.Warnw("capture session", "err", err)
		return
	}
	updated.CreatedAt = sess.CreatedAt
	if err := session.Save(updated); err != nil {
		log.Warnw("save session", "err", err)
	}
}

func getConfirmer() prompt.Confirmer {
	return prompt.NewTerminal(flagYes)
}

// readRecord reads a JSON object from path, or from stdin when path is "-".
func readRecord(path string) (models.Record, error) {
	var r io.Reader
	switch path {
	case "":
		return nil, fmt.Errorf("an input file is required (-f file, or -f - for stdin)")
	case "-":
		r = os.Stdin
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	var rec models.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%s does not hold a JSON object", path)
	}
	return rec, nil
}
