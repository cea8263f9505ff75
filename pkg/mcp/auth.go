// Package mcp provides an MCP server implementation for tally.
package mcp

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/ramarlina/tally-cli/pkg/client"
	"github.com/ramarlina/tally-cli/pkg/csrf"
	"github.com/ramarlina/tally-cli/pkg/models"
	"github.com/ramarlina/tally-cli/pkg/services"
	"github.com/ramarlina/tally-cli/pkg/session"
)

// AuthState manages in-memory authentication state for the MCP server.
// It starts from the CLI's saved session, if any, but never writes it back.
type AuthState struct {
	mu      sync.RWMutex
	apiURL  string
	opts    []client.Option
	browser *csrf.Browser
	api     *services.Set
	user    *models.User
}

// NewAuthState creates an authentication state for apiURL, restoring the
// cookies and page tokens of sess when it belongs to the same API.
func NewAuthState(apiURL string, sess *session.Session, opts ...client.Option) *AuthState {
	a := &AuthState{apiURL: apiURL, opts: opts}
	a.reset(sess)
	if sess != nil && sess.APIURL == apiURL {
		a.user = sess.User
	}
	return a
}

func (a *AuthState) reset(sess *session.Session) {
	b, err := session.NewBrowser(a.apiURL, sess)
	if err != nil {
		log.Warnw("invalid api url, starting without a session", "url", a.apiURL, "err", err)
		b = csrf.NewBrowser(nil, nil)
	}
	a.browser = b

	all := append([]client.Option{
		client.WithHTTPClient(&http.Client{Jar: b.Jar()}),
		client.WithCredentials(b),
	}, a.opts...)
	a.api = services.New(client.New(a.apiURL, all...))
}

// IsAuthenticated returns true once a user is known.
func (a *AuthState) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user != nil
}

// GetUser returns the current authenticated user.
func (a *AuthState) GetUser() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

// Services returns the API clients bound to the current session.
func (a *AuthState) Services() *services.Set {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.api
}

// SetUser records the authenticated user.
func (a *AuthState) SetUser(user *models.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = user
}

// Clear drops the user and every cookie.
func (a *AuthState) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = nil
	a.reset(nil)
}

// Login loads the index page for its CSRF tokens, posts the credentials and
// confirms the session.
func (a *AuthState) Login(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	a.mu.RLock()
	api, b := a.api, a.browser
	a.mu.RUnlock()

	page, err := api.Client().PageBody(ctx, "/")
	if err != nil {
		return nil, fmt.Errorf("load index page: %w", err)
	}
	if err := b.LoadPage(bytes.NewReader(page)); err != nil {
		return nil, fmt.Errorf("read page tokens: %w", err)
	}

	if err := api.Session.Login(ctx, username, password); err != nil {
		return nil, err
	}

	cur, err := api.Session.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !cur.Authenticated {
		return nil, fmt.Errorf("login was not accepted")
	}

	user := cur.User
	if user == nil {
		user = &models.User{Username: username}
	}
	a.SetUser(user)
	return user, nil
}
