package csrf

import (
	"io"
	"net/http"
	"net/url"
	"sync"
)

// Static is a Source with fixed cookie and meta values.
type Static struct {
	Cookies map[string]string
	Metas   map[string]string
}

// Cookie implements Source.
func (s Static) Cookie(name string) (string, bool) {
	v, ok := s.Cookies[name]
	return v, ok
}

// Meta implements Source.
func (s Static) Meta(name string) (string, bool) {
	v, ok := s.Metas[name]
	return v, ok
}

// CookieString is a Source over a document.cookie style string ("a=b; c=d").
// It never has meta tags.
type CookieString string

// Cookie implements Source.
func (s CookieString) Cookie(name string) (string, bool) {
	r := http.Request{Header: http.Header{"Cookie": {string(s)}}}
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// Meta implements Source.
func (CookieString) Meta(string) (string, bool) { return "", false }

// Browser reads cookies live from a jar and meta tags from the last loaded
// page, the way a page script sees document.cookie and the DOM.
type Browser struct {
	jar  http.CookieJar
	base *url.URL

	mu   sync.RWMutex
	meta map[string]string
}

// NewBrowser creates a Browser for the API rooted at base.
func NewBrowser(jar http.CookieJar, base *url.URL) *Browser {
	return &Browser{
		jar:  jar,
		base: base,
		meta: make(map[string]string),
	}
}

// Jar returns the cookie jar backing the browser.
func (b *Browser) Jar() http.CookieJar {
	return b.jar
}

// Cookie implements Source.
func (b *Browser) Cookie(name string) (string, bool) {
	if b.jar == nil || b.base == nil {
		return "", false
	}
	for _, c := range b.jar.Cookies(b.base) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Meta implements Source.
func (b *Browser) Meta(name string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.meta[name]
	return v, ok
}

// LoadPage replaces the known meta tags with those found in an HTML page.
func (b *Browser) LoadPage(r io.Reader) error {
	meta, err := ParseMeta(r)
	if err != nil {
		return err
	}
	b.SetMeta(meta)
	return nil
}

// SetMeta replaces the known meta tags.
func (b *Browser) SetMeta(meta map[string]string) {
	cp := make(map[string]string, len(meta))
	for k, v := range meta {
		cp[k] = v
	}

	b.mu.Lock()
	b.meta = cp
	b.mu.Unlock()
}

// MetaTags returns a copy of the known meta tags.
func (b *Browser) MetaTags() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cp := make(map[string]string, len(b.meta))
	for k, v := range b.meta {
		cp[k] = v
	}
	return cp
}
