package validation

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Rule checks value against optional arguments.
type Rule func(value any, args ...any) bool

// Library stores rules by name. Names ignore case, so "NotEmpty" and
// "notEmpty" resolve to the same rule.
type Library struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{rules: make(map[string]Rule)}
}

// Default returns a library holding the built-in rules.
func Default() *Library {
	lib := NewLibrary()
	for name, rule := range builtins() {
		lib.MustRegister(name, rule)
	}
	return lib
}

// Register adds rule under name. Duplicate names return an error.
func (l *Library) Register(name string, rule Rule) error {
	key := normalize(name)
	if key == "" {
		return fmt.Errorf("validation: rule name is required")
	}
	if rule == nil {
		return fmt.Errorf("validation: rule %q is nil", name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.rules[key]; exists {
		return fmt.Errorf("validation: rule %q already registered", name)
	}
	l.rules[key] = rule
	return nil
}

// MustRegister panics on registration failure.
func (l *Library) MustRegister(name string, rule Rule) {
	if err := l.Register(name, rule); err != nil {
		panic(err)
	}
}

// Lookup returns the rule registered under name.
func (l *Library) Lookup(name string) (Rule, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rule, ok := l.rules[normalize(name)]
	return rule, ok
}

// Validate runs the named rule. Unknown rules report ok=false.
func (l *Library) Validate(name string, value any, args ...any) (valid bool, ok bool) {
	rule, found := l.Lookup(name)
	if !found {
		return false, false
	}
	return rule(value, args...), true
}

// Names returns the sorted registered rule names.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.rules))
	for name := range l.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
