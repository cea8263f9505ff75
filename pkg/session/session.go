// Package session manages authentication session storage. A session is the
// set of cookies and page tokens the server handed out at login.
package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ramarlina/tally-cli/pkg/config"
	"github.com/ramarlina/tally-cli/pkg/csrf"
	"github.com/ramarlina/tally-cli/pkg/models"
)

var (
	mu            sync.RWMutex
	globalSess    *Session
	sessionPath   string
	lastConfigDir string
)

// Cookie is a persisted cookie.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Session represents an authenticated user session.
type Session struct {
	APIURL    string            `json:"api_url"`
	User      *models.User      `json:"user,omitempty"`
	Cookies   []Cookie          `json:"cookies"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Load reads the session from disk.
func Load() (*Session, error) {
	mu.Lock()
	defer mu.Unlock()

	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}

	// Clear cached session if config directory changed
	if lastConfigDir != "" && lastConfigDir != dir {
		globalSess = nil
	}
	lastConfigDir = dir

	if globalSess != nil {
		return globalSess, nil
	}

	sessionPath = filepath.Join(dir, "session.json")

	if _, err := os.Stat(sessionPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no active session")
	}

	data, err := os.ReadFile(sessionPath)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}

	globalSess = &sess
	return globalSess, nil
}

// Save persists the session to disk.
func Save(sess *Session) error {
	mu.Lock()
	defer mu.Unlock()

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	lastConfigDir = dir
	sessionPath = filepath.Join(dir, "session.json")

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.WriteFile(sessionPath, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}

	globalSess = sess
	return nil
}

// Clear removes the session from disk and memory.
func Clear() error {
	mu.Lock()
	defer mu.Unlock()

	dir, err := config.Dir()
	if err != nil {
		return err
	}

	sessionPath = filepath.Join(dir, "session.json")

	if _, err := os.Stat(sessionPath); err == nil {
		if err := os.Remove(sessionPath); err != nil {
			return fmt.Errorf("remove session file: %w", err)
		}
	}

	globalSess = nil
	return nil
}

// IsAuthenticated checks if there's a session with a logged in user.
func IsAuthenticated() bool {
	mu.RLock()
	defer mu.RUnlock()

	return globalSess != nil && globalSess.User != nil
}

// GetUser returns the current authenticated user, or nil if not authenticated.
func GetUser() *models.User {
	mu.RLock()
	defer mu.RUnlock()

	if globalSess == nil {
		return nil
	}

	return globalSess.User
}

// Capture snapshots the browser's cookies and meta tokens for apiURL.
func Capture(b *csrf.Browser, apiURL string, user *models.User) (*Session, error) {
	base, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}

	sess := &Session{
		APIURL:    apiURL,
		User:      user,
		Meta:      b.MetaTags(),
		CreatedAt: time.Now().UTC(),
	}
	if jar := b.Jar(); jar != nil {
		for _, c := range jar.Cookies(base) {
			sess.Cookies = append(sess.Cookies, Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return sess, nil
}

// NewBrowser returns a credential source with its own cookie jar for apiURL.
// When sess belongs to the same API its cookies and meta tokens are restored.
func NewBrowser(apiURL string, sess *Session) (*csrf.Browser, error) {
	base, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	b := csrf.NewBrowser(jar, base)
	if sess == nil || sess.APIURL != apiURL {
		return b, nil
	}

	cookies := make([]*http.Cookie, 0, len(sess.Cookies))
	for _, c := range sess.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	jar.SetCookies(base, cookies)
	b.SetMeta(sess.Meta)
	return b, nil
}
