// Package devserver is an in-memory tally backend for local development and
// tests. It stores and echoes records; it implements no business rules.
package devserver

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ramarlina/tally-cli/pkg/csrf"
	"github.com/ramarlina/tally-cli/pkg/services"
)

var log = logging.Logger("tally/devserver")

// CSRFMode selects how the server hands out its CSRF token.
type CSRFMode string

const (
	// CSRFCookie issues an XSRF-TOKEN cookie, like a standalone dev server.
	CSRFCookie CSRFMode = "cookie"
	// CSRFMeta renders the token into <meta name="_csrf"> on the index page.
	CSRFMeta CSRFMode = "meta"
	// CSRFOff disables CSRF protection.
	CSRFOff CSRFMode = "off"
)

// SessionCookie names the login session cookie.
const SessionCookie = "SESSION"

// Options configures a Server.
type Options struct {
	CSRF CSRFMode
	// RequireAuth rejects /api requests without a session with 401.
	RequireAuth bool
	// Accounts maps usernames to passwords. Empty accepts any login.
	Accounts map[string]string
}

// Upload is a file received on an upload endpoint.
type Upload struct {
	Path     string
	Filename string
	Size     int64
}

// Server is the development backend.
type Server struct {
	echo *echo.Echo
	opts Options

	stores map[string]*store

	mu       sync.Mutex
	sessions map[string]string
	actions  []string
	uploads  []Upload

	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

// New creates a Server with an empty collection for every API path.
func New(opts Options) *Server {
	if opts.CSRF == "" {
		opts.CSRF = CSRFCookie
	}

	s := &Server{
		opts:     opts,
		stores:   make(map[string]*store),
		sessions: make(map[string]string),
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "devserver",
			Name:      "requests_total",
			Help:      "Requests served by method and status.",
		}, []string{"method", "status"}),
	}
	s.registry.MustRegister(s.requests)

	for _, e := range services.Catalog {
		s.stores[e.Path] = newStore()
	}

	s.echo = s.setup()
	return s
}

func (s *Server) setup() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// logging middleware must be first
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Infow("request",
				"op", v.Method+" "+v.URI,
				"status", v.Status,
				"took", v.Latency,
			)
			s.requests.WithLabelValues(v.Method, strconv.Itoa(v.Status)).Inc()
			return nil
		},
	}))

	e.Use(middleware.Recover())

	switch s.opts.CSRF {
	case CSRFCookie:
		e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup: "header:" + csrf.CookieHeader,
			CookieName:  csrf.CookieName,
			CookiePath:  "/",
			Skipper:     skipMetrics,
		}))
	case CSRFMeta:
		e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "header:" + csrf.MetaHeader,
			CookieName:     "_csrf",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			Skipper:        skipMetrics,
		}))
	}

	e.GET("/", s.index)
	e.POST("/login", s.login)
	e.POST("/logout", s.logout)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := e.Group("/api", s.authenticate)
	api.GET("/session", s.session)
	s.routes(api)

	e.Any("/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("there is nothing at %s", c.Request().RequestURI))
	})

	return e
}

func skipMetrics(c echo.Context) bool {
	return c.Path() == "/metrics"
}

// Handler returns the server as an http.Handler, for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	log.Infow("dev server listening", "addr", addr, "csrf", s.opts.CSRF, "auth", s.opts.RequireAuth)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Seed inserts records into the collection at path and returns them with
// their assigned ids.
func (s *Server) Seed(path string, records ...map[string]any) []map[string]any {
	st, ok := s.stores[path]
	if !ok {
		panic(fmt.Sprintf("devserver: no collection at %s", path))
	}
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, st.insert(rec))
	}
	return out
}

// Actions returns the body-less actions received, as "POST <path>".
func (s *Server) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.actions...)
}

// Uploads returns the files received.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

var indexPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
{{- if .Token}}
<meta name="_csrf" content="{{.Token}}">
<meta name="_csrf_header" content="{{.Header}}">
{{- end}}
<title>Tally</title>
</head>
<body><div id="root"></div></body>
</html>
`))

func (s *Server) index(c echo.Context) error {
	data := struct {
		Token  string
		Header string
	}{Header: csrf.MetaHeader}

	if s.opts.CSRF == CSRFMeta {
		data.Token, _ = c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return indexPage.Execute(c.Response(), data)
}

func (s *Server) login(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	if username == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "bad credentials")
	}
	if len(s.opts.Accounts) > 0 {
		if want, ok := s.opts.Accounts[username]; !ok || want != password {
			return echo.NewHTTPError(http.StatusUnauthorized, "bad credentials")
		}
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = username
	s.mu.Unlock()

	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
	return c.JSON(http.StatusOK, map[string]any{"authenticated": true})
}

func (s *Server) logout(c echo.Context) error {
	if ck, err := c.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, ck.Value)
		s.mu.Unlock()
	}
	c.SetCookie(&http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) user(c echo.Context) (string, bool) {
	ck, err := c.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.sessions[ck.Value]
	return name, ok
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.opts.RequireAuth {
			return next(c)
		}
		if _, ok := s.user(c); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		return next(c)
	}
}

func (s *Server) session(c echo.Context) error {
	name, ok := s.user(c)
	if !ok {
		return c.JSON(http.StatusOK, map[string]any{"authenticated": false})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          map[string]any{"username": name, "firstName": name},
		"roles":         []string{"ADMIN"},
	})
}
