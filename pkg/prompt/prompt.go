// Package prompt asks the user for confirmation and shows notifications.
// Commands receive these as interfaces so tests can answer for the user.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Level is the severity of a notification.
type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// Always is a Confirmer with a fixed answer.
type Always bool

// Confirm implements Confirmer.
func (a Always) Confirm(context.Context, string) (bool, error) {
	return bool(a), nil
}

// Terminal prompts on an input stream and writes to an output stream.
type Terminal struct {
	In  io.Reader
	Out io.Writer
	// AssumeYes answers every question with yes without asking.
	AssumeYes bool
	// Color enables ANSI colors in notifications.
	Color bool

	interactive bool

	// one reader per Terminal so that input buffered for one question is
	// still there for the next
	once    sync.Once
	lines   chan string
	readErr error
}

// NewTerminal uses stdin and stderr. Questions are declined when stdin is not
// a terminal, unless assumeYes is set.
func NewTerminal(assumeYes bool) *Terminal {
	return &Terminal{
		In:          os.Stdin,
		Out:         os.Stderr,
		AssumeYes:   assumeYes,
		Color:       isTerminal(os.Stderr),
		interactive: isTerminal(os.Stdin),
	}
}

// Interactive marks the input as a terminal, for tests and piped prompts.
func (t *Terminal) Interactive(v bool) *Terminal {
	t.interactive = v
	return t
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Confirm implements Confirmer. Only "y" and "yes" count as consent.
func (t *Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	if t.AssumeYes {
		return true, nil
	}
	if !t.interactive {
		return false, nil
	}

	fmt.Fprintf(t.Out, "%s [y/N]: ", question)

	t.once.Do(func() {
		t.lines = make(chan string)
		go t.readLines()
	})

	select {
	case <-ctx.Done():
		fmt.Fprintln(t.Out)
		return false, ctx.Err()
	case line, ok := <-t.lines:
		if !ok {
			if t.readErr == io.EOF {
				return false, nil
			}
			return false, t.readErr
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// readLines feeds t.lines until the input fails. A read cannot be
// interrupted, so a line typed after a cancelled question answers the next
// one.
func (t *Terminal) readLines() {
	r := bufio.NewReader(t.In)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			t.lines <- line
		}
		if err != nil {
			t.readErr = err
			close(t.lines)
			return
		}
	}
}

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

// Notify implements Notifier.
func (t *Terminal) Notify(level Level, message string) {
	prefix := ""
	color := ""
	switch level {
	case Success:
		prefix, color = "✓ ", ansiGreen
	case Warning:
		prefix, color = "! ", ansiYellow
	case Error:
		prefix, color = "✗ ", ansiRed
	}
	if t.Color && color != "" {
		fmt.Fprintf(t.Out, "%s%s%s%s\n", color, prefix, message, ansiReset)
		return
	}
	fmt.Fprintf(t.Out, "%s%s\n", prefix, message)
}

// Discard is a Notifier that drops every message.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(Level, string) {}

// DeleteConfirmed asks before running del. When the user declines, del is
// not called and ok is false.
func DeleteConfirmed(ctx context.Context, c Confirmer, what string, del func(context.Context) error) (ok bool, err error) {
	yes, err := c.Confirm(ctx, fmt.Sprintf("Delete %s?", what))
	if err != nil {
		return false, err
	}
	if !yes {
		return false, nil
	}
	if err := del(ctx); err != nil {
		return false, err
	}
	return true, nil
}
