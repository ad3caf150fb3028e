package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultCookieName names the session cookie.
const DefaultCookieName = "forms_session"

// Manager loads and persists sessions identified by a cookie.
type Manager struct {
	store    Store
	name     string
	ttl      time.Duration
	secure   bool
	sameSite http.SameSite
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCookieName overrides DefaultCookieName.
func WithCookieName(name string) ManagerOption {
	return func(m *Manager) {
		if name != "" {
			m.name = name
		}
	}
}

// WithTTL sets the session lifetime. Default: 2 hours.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithSecureCookie marks the cookie Secure.
func WithSecureCookie(secure bool) ManagerOption {
	return func(m *Manager) {
		m.secure = secure
	}
}

// WithSameSite sets the cookie SameSite mode. Default: Lax.
func WithSameSite(mode http.SameSite) ManagerOption {
	return func(m *Manager) {
		m.sameSite = mode
	}
}

// WithLogger routes manager diagnostics to logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithIDGenerator overrides uuid based session ids.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager returns a manager persisting into store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		name:     DefaultCookieName,
		ttl:      2 * time.Hour,
		sameSite: http.SameSiteLaxMode,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CookieName returns the session cookie name.
func (m *Manager) CookieName() string { return m.name }

// Load returns the session named by the request cookie, or a new one.
// Unreadable payloads start a fresh session instead of failing the request.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.name)
	if err != nil || cookie.Value == "" {
		return New(m.newID()), nil
	}

	data, err := m.store.Load(ctx, cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("session: load %s: %w", cookie.Value, err)
	}
	if data == nil {
		return New(m.newID()), nil
	}

	sess, err := Decode(cookie.Value, data)
	if err != nil {
		m.logger.Warn("discarding unreadable session", "session", cookie.Value, "error", err)
		return New(m.newID()), nil
	}
	return sess, nil
}

// Save ages flash data and writes the session to the store.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	s.Age()
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, s.ID(), data, m.now().Add(m.ttl)); err != nil {
		return fmt.Errorf("session: save %s: %w", s.ID(), err)
	}
	return nil
}

// Destroy removes the session from the store.
func (m *Manager) Destroy(ctx context.Context, s *Session) error {
	if err := m.store.Delete(ctx, s.ID()); err != nil {
		return fmt.Errorf("session: delete %s: %w", s.ID(), err)
	}
	return nil
}

// Cookie returns the cookie carrying the session id.
func (m *Manager) Cookie(s *Session) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    s.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite,
		Expires:  m.now().Add(m.ttl),
	}
}

// Middleware loads the session before next runs and saves it afterwards.
// The cookie is written up front so handlers may commit the response.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.Load(r.Context(), r)
		if err != nil {
			m.logger.Error("session load failed", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, m.Cookie(sess))

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))

		if err := m.Save(r.Context(), sess); err != nil {
			m.logger.Error("session save failed", "session", sess.ID(), "error", err)
		}
	})
}

type contextKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by NewContext.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
