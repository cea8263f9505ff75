// Package output handles formatting and displaying CLI output.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/ramarlina/tally-cli/pkg/api"
	"github.com/ramarlina/tally-cli/pkg/client"
	"gopkg.in/yaml.v3"
)

// Format represents the output format type.
type Format int

const (
	FormatHuman Format = iota
	FormatJSON
	FormatRaw
	FormatYAML
)

// ParseFormat maps a config value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "human":
		return FormatHuman, nil
	case "json":
		return FormatJSON, nil
	case "raw":
		return FormatRaw, nil
	case "yaml":
		return FormatYAML, nil
	default:
		return FormatHuman, fmt.Errorf("unknown output format %q", s)
	}
}

// Printer handles output formatting.
type Printer struct {
	writer    io.Writer
	errWriter io.Writer
	format    Format
	quiet     bool
	ansi      bool
}

// New creates a new output printer. ANSI styling is used only when stdout is
// a terminal and noANSI is not set.
func New(format Format, quiet, noANSI bool) *Printer {
	fd := os.Stdout.Fd()
	return &Printer{
		writer:    os.Stdout,
		errWriter: os.Stderr,
		format:    format,
		quiet:     quiet,
		ansi:      !noANSI && (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)),
	}
}

// WithWriters redirects output, for tests. ANSI styling is turned off.
func (p *Printer) WithWriters(out, errOut io.Writer) *Printer {
	p.writer = out
	p.errWriter = errOut
	p.ansi = false
	return p
}

// Reported wraps an error that has already been shown to the user.
type Reported struct {
	Err error
}

func (r *Reported) Error() string { return r.Err.Error() }
func (r *Reported) Unwrap() error { return r.Err }

// IsReported tells whether err was already printed.
func IsReported(err error) bool {
	var r *Reported
	return errors.As(err, &r)
}

// Success prints a success response.
func (p *Printer) Success(result any) error {
	switch p.format {
	case FormatJSON:
		return p.printJSON(api.Response[any]{
			OK:     true,
			Result: result,
		})
	case FormatYAML:
		return p.printYAML(result)
	case FormatRaw:
		fmt.Fprintf(p.writer, "%v\n", result)
		return nil
	default:
		if !p.quiet {
			fmt.Fprintf(p.writer, "%v\n", result)
		}
		return nil
	}
}

// Error prints an error response and returns it wrapped in Reported.
// API errors are rendered with their user message.
func (p *Printer) Error(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return p.APIError(apiErr)
	}

	switch p.format {
	case FormatJSON:
		if jerr := p.printJSON(api.Response[any]{
			OK: false,
			Error: &api.Error{
				Code:    "error",
				Message: err.Error(),
			},
		}); jerr != nil {
			return jerr
		}
	default:
		fmt.Fprintf(p.errWriter, "%s %v\n", p.style(ansiRed, "error:"), err)
	}
	return &Reported{Err: err}
}

// APIError prints a failed API call.
func (p *Printer) APIError(e *client.APIError) error {
	msg := e.UserMessage("")

	switch p.format {
	case FormatJSON:
		if jerr := p.printJSON(api.Response[any]{
			OK: false,
			Error: &api.Error{
				Code:        e.Code(),
				Status:      e.Status,
				Message:     msg,
				FieldErrors: e.FieldErrors,
			},
		}); jerr != nil {
			return jerr
		}
	default:
		fmt.Fprintf(p.errWriter, "%s %s\n", p.style(ansiRed, "error:"), msg)
		if e.Kind == client.KindHTTP && e.Status == http.StatusUnauthorized {
			fmt.Fprintln(p.errWriter, "hint: run `tally login` to start a new session")
		}
	}
	return &Reported{Err: e}
}

// Print prints arbitrary data.
func (p *Printer) Print(format string, args ...any) {
	if p.quiet && p.format != FormatJSON {
		return
	}
	fmt.Fprintf(p.writer, format, args...)
}

// Printf prints formatted data.
func (p *Printer) Printf(format string, args ...any) {
	if p.quiet && p.format != FormatJSON {
		return
	}
	fmt.Fprintf(p.writer, format, args...)
}

// Println prints a line of arbitrary data.
func (p *Printer) Println(args ...any) {
	if p.quiet && p.format != FormatJSON {
		return
	}
	fmt.Fprintln(p.writer, args...)
}

// Done prints a success line in human mode.
func (p *Printer) Done(format string, args ...any) {
	if p.quiet || p.format != FormatHuman {
		return
	}
	fmt.Fprintf(p.writer, "%s %s\n", p.style(ansiGreen, "✓"), fmt.Sprintf(format, args...))
}

// Table prints data in table format (only in human mode).
func (p *Printer) Table(headers []string, rows [][]string) error {
	if p.format != FormatHuman {
		return nil
	}

	if len(headers) == 0 || len(rows) == 0 {
		return nil
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range headers {
		fmt.Fprintf(p.writer, "%s  ", p.style(ansiBold, fmt.Sprintf("%-*s", widths[i], h)))
	}
	fmt.Fprintln(p.writer)

	for i := range headers {
		fmt.Fprint(p.writer, strings.Repeat("-", widths[i]), "  ")
	}
	fmt.Fprintln(p.writer)

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(p.writer, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(p.writer)
	}

	return nil
}

// Fields prints a record as sorted "key: value" lines (only in human mode).
func (p *Printer) Fields(rec map[string]any) {
	if p.format != FormatHuman {
		return
	}
	keys := make([]string, 0, len(rec))
	width := 0
	for k := range rec {
		keys = append(keys, k)
		width = max(width, len(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(p.writer, "%s  %v\n", p.style(ansiBold, fmt.Sprintf("%-*s", width, k)), rec[k])
	}
}

// printJSON marshals and prints JSON output.
func (p *Printer) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	fmt.Fprintf(p.writer, "%s\n", data)
	return nil
}

// printYAML prints v as YAML. v goes through JSON first so the keys match
// the API's field names.
func (p *Printer) printYAML(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}

	enc := yaml.NewEncoder(p.writer)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return enc.Close()
}

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
)

func (p *Printer) style(code, s string) string {
	if !p.ansi {
		return s
	}
	return code + s + ansiReset
}

// IsJSON returns true if the output format is JSON.
func (p *Printer) IsJSON() bool {
	return p.format == FormatJSON
}

// IsYAML returns true if the output format is YAML.
func (p *Printer) IsYAML() bool {
	return p.format == FormatYAML
}

// IsStructured returns true for JSON and YAML output.
func (p *Printer) IsStructured() bool {
	return p.format == FormatJSON || p.format == FormatYAML
}

// IsRaw returns true if the output format is raw.
func (p *Printer) IsRaw() bool {
	return p.format == FormatRaw
}

// IsQuiet returns true if quiet mode is enabled.
func (p *Printer) IsQuiet() bool {
	return p.quiet
}
