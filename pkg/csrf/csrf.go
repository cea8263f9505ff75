// Package csrf derives the headers sent with state-changing API requests.
//
// Two deployment modes are supported without the caller knowing which one
// is active: a standalone server that issues an XSRF-TOKEN cookie, and a
// server-rendered page that embeds the token in <meta name="_csrf">.
package csrf

import (
	"net/http"
	"net/url"
)

const (
	// CookieName is the cookie carrying the token in cookie mode.
	CookieName = "XSRF-TOKEN"
	// CookieHeader echoes the cookie token back to the server.
	CookieHeader = "X-XSRF-TOKEN"
	// MetaName is the meta tag carrying the token in page mode.
	MetaName = "_csrf"
	// MetaHeader echoes the meta tag token back to the server.
	MetaHeader = "X-CSRF-TOKEN"

	// HeaderContentType is the canonical Content-Type header name.
	HeaderContentType = "Content-Type"
	// ContentTypeJSON is the content type of every JSON request body.
	ContentTypeJSON = "application/json"
)

// Source exposes the ambient credential state a browser would hold.
type Source interface {
	// Cookie returns the raw value of the named cookie.
	Cookie(name string) (string, bool)
	// Meta returns the content attribute of the named meta tag.
	Meta(name string) (string, bool)
}

// Headers returns the headers for a single state-changing request.
//
// The cookie token wins over the meta tag; with neither present only the
// JSON content type is set. The source is read on every call, tokens rotate
// between logins.
func Headers(src Source) http.Header {
	h := http.Header{}
	h.Set(HeaderContentType, ContentTypeJSON)

	if src == nil {
		return h
	}

	if raw, ok := src.Cookie(CookieName); ok && raw != "" {
		h.Set(CookieHeader, decode(raw))
		return h
	}

	if token, ok := src.Meta(MetaName); ok && token != "" {
		h.Set(MetaHeader, token)
	}

	return h
}

// decode URL-decodes a cookie value, keeping '+' literal.
func decode(raw string) string {
	v, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return v
}
