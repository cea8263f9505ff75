// Package debounce coalesces rapid triggers and detects stale responses.
package debounce

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Debouncer runs a function once the triggers have paused for the wait
// duration. Each trigger cancels the pending run and schedules a new one.
type Debouncer struct {
	wait time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a Debouncer.
func New(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Trigger schedules fn, replacing any run that has not fired yet.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, fn)
}

// Cancel drops the pending run, if any. It reports whether one was dropped.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// Token identifies one issued request.
type Token string

// Latest hands out request tokens and remembers the newest one, so that a
// caller can tell whether its response was overtaken by a later request.
type Latest struct {
	mu      sync.Mutex
	current Token
}

// Next issues a token that supersedes every earlier one.
func (l *Latest) Next() Token {
	tok := Token(uuid.NewString())

	l.mu.Lock()
	l.current = tok
	l.mu.Unlock()

	return tok
}

// Current reports whether tok is the newest token.
func (l *Latest) Current(tok Token) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return tok != "" && tok == l.current
}
