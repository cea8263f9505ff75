package csrf

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		src        Source
		wantCookie string
		wantMeta   string
	}{
		{
			name:       "cookie only",
			src:        Static{Cookies: map[string]string{CookieName: "abc"}},
			wantCookie: "abc",
		},
		{
			name: "cookie wins over meta",
			src: Static{
				Cookies: map[string]string{CookieName: "from-cookie"},
				Metas:   map[string]string{MetaName: "from-meta"},
			},
			wantCookie: "from-cookie",
		},
		{
			name:       "cookie is url decoded",
			src:        Static{Cookies: map[string]string{CookieName: "a%2Fb%3D%3D"}},
			wantCookie: "a/b==",
		},
		{
			name:       "plus stays literal",
			src:        Static{Cookies: map[string]string{CookieName: "a+b"}},
			wantCookie: "a+b",
		},
		{
			name:       "malformed escape kept raw",
			src:        Static{Cookies: map[string]string{CookieName: "bad%zz"}},
			wantCookie: "bad%zz",
		},
		{
			name:     "meta fallback",
			src:      Static{Metas: map[string]string{MetaName: "T"}},
			wantMeta: "T",
		},
		{
			name: "empty cookie falls through to meta",
			src: Static{
				Cookies: map[string]string{CookieName: ""},
				Metas:   map[string]string{MetaName: "T"},
			},
			wantMeta: "T",
		},
		{
			name: "empty meta content",
			src:  Static{Metas: map[string]string{MetaName: ""}},
		},
		{
			name: "neither source",
			src:  Static{},
		},
		{
			name: "nil source",
			src:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Headers(tt.src)

			assert.Equal(t, ContentTypeJSON, h.Get(HeaderContentType))
			assert.Equal(t, tt.wantCookie, h.Get(CookieHeader))
			assert.Equal(t, tt.wantMeta, h.Get(MetaHeader))

			if tt.wantCookie != "" {
				assert.Empty(t, h.Values(MetaHeader), "X-CSRF-TOKEN must never accompany X-XSRF-TOKEN")
			}
			if tt.wantCookie == "" && tt.wantMeta == "" {
				assert.Len(t, h, 1, "only Content-Type expected")
			}
		})
	}
}

func TestHeadersReadFreshEachCall(t *testing.T) {
	t.Parallel()

	src := Static{Cookies: map[string]string{CookieName: "first"}}
	assert.Equal(t, "first", Headers(src).Get(CookieHeader))

	src.Cookies[CookieName] = "rotated"
	assert.Equal(t, "rotated", Headers(src).Get(CookieHeader))
}

func TestCookieString(t *testing.T) {
	t.Parallel()

	src := CookieString("JSESSIONID=42; XSRF-TOKEN=tok%3D; theme=dark")

	v, ok := src.Cookie(CookieName)
	require.True(t, ok)
	assert.Equal(t, "tok%3D", v)
	assert.Equal(t, "tok=", Headers(src).Get(CookieHeader))

	_, ok = src.Cookie("missing")
	assert.False(t, ok)

	_, ok = src.Meta(MetaName)
	assert.False(t, ok)
}

func TestBrowser(t *testing.T) {
	t.Parallel()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	base, err := url.Parse("http://tally.local/")
	require.NoError(t, err)

	b := NewBrowser(jar, base)

	t.Run("no state", func(t *testing.T) {
		h := Headers(b)
		assert.Len(t, h, 1)
	})

	t.Run("meta from page", func(t *testing.T) {
		page := `<html><head><meta name="_csrf" content="page-token"><meta name="_csrf_header" content="X-CSRF-TOKEN"></head></html>`
		require.NoError(t, b.LoadPage(strings.NewReader(page)))
		assert.Equal(t, "page-token", Headers(b).Get(MetaHeader))
	})

	t.Run("cookie takes over once set", func(t *testing.T) {
		jar.SetCookies(base, []*http.Cookie{{Name: CookieName, Value: "jar-token", Path: "/"}})
		h := Headers(b)
		assert.Equal(t, "jar-token", h.Get(CookieHeader))
		assert.Empty(t, h.Get(MetaHeader))
	})
}

func TestParseMeta(t *testing.T) {
	t.Parallel()

	page := `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="_csrf" content="first"/>
  <meta name="_csrf" content="second">
  <meta name="description">
  <title>Tally</title>
</head>
<body><div id="root"></div></body>
</html>`

	meta, err := ParseMeta(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"_csrf": "first"}, meta)
}
