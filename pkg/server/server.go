// Package server serves registered forms over HTTP.
package server

import (
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-forms/pkg/form"
	"github.com/goliatone/go-forms/pkg/session"
	"github.com/goliatone/go-forms/pkg/telemetry"
)

// DefaultPrefix is the path forms are served under.
const DefaultPrefix = "/forms"

// Server routes form requests to a form manager.
type Server struct {
	manager  *form.Manager
	sessions *session.Manager
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	prefix   string
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithSessions sets the session manager. Defaults to an in-memory store.
func WithSessions(sessions *session.Manager) Option {
	return func(s *Server) {
		if sessions != nil {
			s.sessions = sessions
		}
	}
}

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPrefix sets the path forms are served under.
func WithPrefix(prefix string) Option {
	return func(s *Server) {
		prefix = "/" + strings.Trim(prefix, "/")
		if prefix != "/" {
			s.prefix = prefix
		}
	}
}

// New returns a server for the forms registered on manager.
func New(manager *form.Manager, options ...Option) *Server {
	s := &Server{
		manager: manager,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		prefix:  DefaultPrefix,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(session.NewMemoryStore(), session.WithLogger(s.logger))
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok")
	})

	r.Route(s.prefix, func(r chi.Router) {
		r.Use(s.sessions.Middleware)
		r.Get("/", s.index)
		r.Get("/{alias}", s.show)
		r.Post("/{alias}", s.submit)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router returns the chi router, for mounting extra routes.
func (s *Server) Router() chi.Router { return s.router }

// FormPath returns the path alias is served on.
func (s *Server) FormPath(alias string) string { return s.prefix + "/" + alias }

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		Alias string `json:"alias"`
		Path  string `json:"path"`
	}
	aliases := s.manager.Forms()
	out := make([]entry, 0, len(aliases))
	for _, alias := range aliases {
		out = append(out, entry{Alias: alias, Path: s.FormPath(alias)})
	}
	body, err := sonic.Marshal(out)
	if err != nil {
		s.fail(w, nil, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// show renders the form. GET forms are processed first, so a submitted
// GET form redirects.
func (s *Server) show(w http.ResponseWriter, r *http.Request) {
	f, ok := s.form(w, r)
	if !ok {
		return
	}
	if f.Method() == "get" {
		redirect, err := f.Proceed(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if redirect != nil {
			redirect.ServeHTTP(w, r)
			return
		}
	}
	s.render(w, r, f)
}

// submit processes a POST form and redirects. Requests that are not a
// submission, such as a rejected token, return to the form page.
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	f, ok := s.form(w, r)
	if !ok {
		return
	}
	if f.Method() != "post" {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	redirect, err := f.Proceed(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if redirect == nil {
		redirect = &form.Redirect{URL: s.FormPath(f.Alias()), Status: http.StatusSeeOther}
	}
	redirect.ServeHTTP(w, r)
}

func (s *Server) form(w http.ResponseWriter, r *http.Request) (*form.Form, bool) {
	alias := chi.URLParam(r, "alias")
	options := []form.FormOption{
		form.WithRequest(r),
		form.WithParams(map[string]any{"action": s.FormPath(alias)}),
	}
	if sess, ok := session.FromContext(r.Context()); ok {
		options = append(options, form.WithSession(sess))
	}

	f, err := s.manager.Get(alias, options...)
	if errors.Is(err, form.ErrUnknownForm) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return f, true
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, f *form.Form) {
	out, err := f.Render()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	title := f.Title()
	if title == "" {
		title = f.Alias()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, pageLayout, html.EscapeString(title), out)
}

const pageLayout = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
%s
</body>
</html>
`

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	attrs := []any{"error", err}
	if r != nil {
		attrs = append(attrs, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
	}
	s.logger.Error("form request failed", attrs...)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
