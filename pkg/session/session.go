package session

import (
	"strings"
	"sync"

	"github.com/goliatone/go-forms/pkg/params"
)

// Session is the attribute bag of one visitor. Keys are dot paths, so
// "form.contact.notices" addresses every level stored below it.
//
// Flashed keys live until the end of the request following the one that
// flashed them. Call Age once per request, before persisting.
type Session struct {
	id    string
	isNew bool

	mu    sync.Mutex
	bag   *params.Bag
	fresh []string
	stale []string
	dirty bool
}

// New returns an empty session with the given id.
func New(id string) *Session {
	return &Session{id: id, isNew: true, bag: params.New(nil)}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// IsNew reports whether the session was created during this request.
func (s *Session) IsNew() bool { return s.isNew }

// Dirty reports whether the session changed since it was loaded.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) Has(key string) bool {
	return s.bag.Has(key)
}

func (s *Session) Get(key string) any {
	return s.bag.Get(key)
}

// Set stores value. A key flashed by the previous request becomes permanent.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bag.Set(key, value)
	s.stale = withoutKey(s.stale, key)
	s.dirty = true
}

// Flash stores value for the current and the next request.
func (s *Session) Flash(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bag.Set(key, value)
	s.stale = withoutKey(s.stale, key)
	if !params.Contains(s.fresh, key) {
		s.fresh = append(s.fresh, key)
	}
	s.dirty = true
}

// Pull returns the value at key and removes it.
func (s *Session) Pull(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bag.Has(key) {
		return nil
	}
	s.dirty = true
	return s.bag.Pull(key)
}

// Delete removes key and everything stored below it.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bag.Has(key) {
		return
	}
	s.bag.Forget(key)
	s.dirty = true
}

// Clear empties the session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bag = params.New(nil)
	s.fresh, s.stale = nil, nil
	s.dirty = true
}

// Age expires the keys flashed by the previous request and schedules the
// keys flashed by this one for expiry at the end of the next.
func (s *Session) Age() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range s.stale {
		s.bag.Forget(key)
		s.dirty = true
	}
	s.stale, s.fresh = s.fresh, nil
}

// Namespace returns a view of the session scoped under prefix.
func (s *Session) Namespace(prefix string) *Scope {
	return &Scope{session: s, prefix: strings.Trim(prefix, ".")}
}

// withoutKey drops key and any key nested below it.
func withoutKey(keys []string, key string) []string {
	if len(keys) == 0 {
		return keys
	}
	out := keys[:0]
	for _, candidate := range keys {
		if candidate == key || strings.HasPrefix(candidate, key+".") {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

// Scope is a prefixed view over a Session.
type Scope struct {
	session *Session
	prefix  string
}

// Prefix returns the scope key prefix.
func (sc *Scope) Prefix() string { return sc.prefix }

// Session returns the underlying session.
func (sc *Scope) Session() *Session { return sc.session }

func (sc *Scope) key(key string) string {
	if key == "" {
		return sc.prefix
	}
	if sc.prefix == "" {
		return key
	}
	return sc.prefix + "." + key
}

func (sc *Scope) Has(key string) bool { return sc.session.Has(sc.key(key)) }

func (sc *Scope) Get(key string) any { return sc.session.Get(sc.key(key)) }

// GetOr returns fallback when key is missing.
func (sc *Scope) GetOr(key string, fallback any) any {
	if !sc.Has(key) {
		return fallback
	}
	return sc.Get(key)
}

func (sc *Scope) Set(key string, value any) { sc.session.Set(sc.key(key), value) }

func (sc *Scope) Flash(key string, value any) { sc.session.Flash(sc.key(key), value) }

func (sc *Scope) Pull(key string) any { return sc.session.Pull(sc.key(key)) }

// Remove deletes key and everything below it.
func (sc *Scope) Remove(key string) { sc.session.Delete(sc.key(key)) }

// All returns the values stored under the scope.
func (sc *Scope) All() map[string]any {
	return params.Map(sc.session.Get(sc.prefix))
}

// Clear removes every value stored under the scope.
func (sc *Scope) Clear() {
	sc.session.Delete(sc.prefix)
}
