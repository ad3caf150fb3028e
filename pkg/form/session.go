package form

import (
	"github.com/goliatone/go-forms/pkg/session"
)

// SessionFactory is the form namespace ("form.<alias>") of the request
// session. Forms built without a session get a throwaway in-memory one.
type SessionFactory struct {
	form    *Form
	session *session.Session
	scope   *session.Scope
	booted  bool
}

func newSessionFactory(sess *session.Session) *SessionFactory {
	if sess == nil {
		sess = session.New("")
	}
	return &SessionFactory{session: sess}
}

// Boot binds the namespace. It fires session.booting and session.booted.
func (f *SessionFactory) Boot() error {
	if f.booted {
		return nil
	}
	if f.form == nil {
		return missingForm("session factory")
	}
	f.form.Event("session.booting", f)
	f.scope = f.session.Namespace("form." + f.form.alias)
	f.booted = true
	f.form.Event("session.booted", f)
	return nil
}

// IsBooted reports whether Boot ran.
func (f *SessionFactory) IsBooted() bool { return f.booted }

// Session returns the underlying request session.
func (f *SessionFactory) Session() *session.Session { return f.session }

// Key returns the namespace prefix.
func (f *SessionFactory) Key() string {
	return f.ns().Prefix()
}

func (f *SessionFactory) ns() *session.Scope {
	if f.scope == nil {
		alias := ""
		if f.form != nil {
			alias = f.form.alias
		}
		f.scope = f.session.Namespace("form." + alias)
	}
	return f.scope
}

func (f *SessionFactory) Has(key string) bool { return f.ns().Has(key) }

func (f *SessionFactory) Get(key string) any { return f.ns().Get(key) }

// GetOr returns fallback when key is not stored.
func (f *SessionFactory) GetOr(key string, fallback any) any { return f.ns().GetOr(key, fallback) }

func (f *SessionFactory) Set(key string, value any) { f.ns().Set(key, value) }

// Pull returns key and removes it.
func (f *SessionFactory) Pull(key string) any { return f.ns().Pull(key) }

func (f *SessionFactory) Remove(key string) { f.ns().Remove(key) }

// Flash stores value until the end of the next request.
func (f *SessionFactory) Flash(key string, value any) { f.ns().Flash(key, value) }

// All returns every value of the namespace.
func (f *SessionFactory) All() map[string]any { return f.ns().All() }

// Clear drops the whole namespace.
func (f *SessionFactory) Clear() { f.ns().Clear() }
