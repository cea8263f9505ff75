// Package board keeps the locally displayed open/closed state of users'
// time reports and toggles it optimistically.
package board

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"github.com/ramarlina/tally-cli/pkg/models"
)

var log = logging.Logger("tally/board")

// ErrPending is returned when a row already has a toggle in flight.
var ErrPending = errors.New("a status change for this user is already in progress")

// Toggler performs the status change on the server.
type Toggler interface {
	Close(ctx context.Context, userID, closeDate string) error
	Open(ctx context.Context, userID, closeDate string) error
}

// Lister loads the current statuses.
type Lister interface {
	List(ctx context.Context) ([]models.TimeReportStatus, error)
}

// Row is the displayed state of one user's time report.
type Row struct {
	UserID    string
	Name      string
	Closed    bool
	CloseDate string
	// Pending is set while the server call of a toggle is in flight.
	Pending bool
}

// StatusBoard holds rows keyed by user id.
type StatusBoard struct {
	api Toggler

	mu    sync.Mutex
	rows  map[string]*Row
	order []string
}

// New creates an empty board.
func New(api Toggler) *StatusBoard {
	return &StatusBoard{
		api:  api,
		rows: make(map[string]*Row),
	}
}

// Load replaces the rows with the server's statuses.
func (b *StatusBoard) Load(ctx context.Context, l Lister) error {
	statuses, err := l.List(ctx)
	if err != nil {
		return err
	}

	rows := make([]Row, 0, len(statuses))
	for _, s := range statuses {
		rows = append(rows, Row{
			UserID:    strconv.FormatInt(s.UserID, 10),
			Name:      models.User{FirstName: s.FirstName, LastName: s.LastName}.FullName(),
			Closed:    s.Closed,
			CloseDate: s.CloseDate,
		})
	}
	b.Set(rows...)
	return nil
}

// Set replaces the rows.
func (b *StatusBoard) Set(rows ...Row) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rows = make(map[string]*Row, len(rows))
	b.order = b.order[:0]
	for _, r := range rows {
		if _, dup := b.rows[r.UserID]; !dup {
			b.order = append(b.order, r.UserID)
		}
		b.rows[r.UserID] = &r
	}
}

// Rows returns a snapshot in load order.
func (b *StatusBoard) Rows() []Row {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Row, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.rows[id])
	}
	return out
}

// Row returns the state of one user.
func (b *StatusBoard) Row(userID string) (Row, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rows[userID]
	if !ok {
		return Row{}, false
	}
	return *r, true
}

// Close marks the report closed, then asks the server. On failure the row is
// restored and the server's error returned as is.
func (b *StatusBoard) Close(ctx context.Context, userID, closeDate string) error {
	return b.toggle(ctx, userID, closeDate, true)
}

// Open marks the report open, then asks the server. On failure the row is
// restored and the server's error returned as is.
func (b *StatusBoard) Open(ctx context.Context, userID, closeDate string) error {
	return b.toggle(ctx, userID, closeDate, false)
}

func (b *StatusBoard) toggle(ctx context.Context, userID, closeDate string, closed bool) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	b.mu.Lock()
	row, known := b.rows[userID]
	if !known {
		row = &Row{UserID: userID}
		b.rows[userID] = row
		b.order = append(b.order, userID)
	}
	if row.Pending {
		b.mu.Unlock()
		return ErrPending
	}
	prev := *row
	row.Closed = closed
	if closeDate != "" {
		row.CloseDate = closeDate
	}
	row.Pending = true
	b.mu.Unlock()

	var err error
	if closed {
		err = b.api.Close(ctx, userID, closeDate)
	} else {
		err = b.api.Open(ctx, userID, closeDate)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		log.Debugw("status change rejected, rolling back", "user", userID, "closed", closed, "err", err)
		if known {
			*row = prev
		} else {
			b.forget(userID)
		}
		return err
	}

	row.Pending = false
	return nil
}

// forget drops a row that only existed for a failed toggle. Callers hold mu.
func (b *StatusBoard) forget(userID string) {
	delete(b.rows, userID)
	for i, id := range b.order {
		if id == userID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			return
		}
	}
}
