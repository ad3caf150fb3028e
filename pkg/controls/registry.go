package controls

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Renderer writes the HTML of ctl into buf.
type Renderer func(buf *bytes.Buffer, ctl Control) error

// Script is a JavaScript dependency emitted once per rendered form.
type Script struct {
	Src    string
	Inline string
	Module bool
	Defer  bool
}

func (s Script) key() string {
	if s.Src != "" {
		return "src:" + s.Src
	}
	return "inline:" + s.Inline
}

// Descriptor is a control type: its renderer and the assets a form needs
// once when any of its fields uses the type.
type Descriptor struct {
	Name        string
	Renderer    Renderer
	Stylesheets []string
	Scripts     []Script
}

func (d Descriptor) copy() Descriptor {
	d.Stylesheets = slices.Clone(d.Stylesheets)
	d.Scripts = slices.Clone(d.Scripts)
	return d
}

// Assets collects stylesheets and scripts without duplicates, in the order
// they were first added.
type Assets struct {
	Stylesheets []string
	Scripts     []Script
}

func (a *Assets) add(d Descriptor) {
	for _, href := range d.Stylesheets {
		if href != "" && !slices.Contains(a.Stylesheets, href) {
			a.Stylesheets = append(a.Stylesheets, href)
		}
	}
	for _, script := range d.Scripts {
		key := script.key()
		if !slices.ContainsFunc(a.Scripts, func(s Script) bool { return s.key() == key }) {
			a.Scripts = append(a.Scripts, script)
		}
	}
}

// Registry maps control type names, case-insensitively, to descriptors.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Descriptor)}
}

// Register adds the control type name, replacing an existing one.
func (r *Registry) Register(name string, descriptor Descriptor) error {
	key := normalize(name)
	if key == "" {
		return errors.New("controls: type name is required")
	}
	if descriptor.Renderer == nil {
		return fmt.Errorf("controls: %q has no renderer", key)
	}
	descriptor = descriptor.copy()
	descriptor.Name = key

	r.mu.Lock()
	r.entries[key] = descriptor
	r.mu.Unlock()
	return nil
}

// MustRegister panics when Register fails.
func (r *Registry) MustRegister(name string, descriptor Descriptor) {
	if err := r.Register(name, descriptor); err != nil {
		panic(err)
	}
}

// Descriptor returns a copy of the descriptor of name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	descriptor, ok := r.entries[normalize(name)]
	r.mu.RUnlock()
	if !ok {
		return Descriptor{}, false
	}
	return descriptor.copy(), true
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Descriptor(name)
	return ok
}

// Render renders ctl with the renderer of ctl.Type.
func (r *Registry) Render(ctl Control) (string, error) {
	descriptor, ok := r.Descriptor(ctl.Type)
	if !ok {
		return "", fmt.Errorf("controls: no renderer registered for %q", ctl.Type)
	}
	var buf bytes.Buffer
	if err := descriptor.Renderer(&buf, ctl); err != nil {
		return "", fmt.Errorf("controls: render %q: %w", ctl.Type, err)
	}
	return buf.String(), nil
}

// Assets gathers the assets of the given types. Unknown types are skipped.
func (r *Registry) Assets(types []string) Assets {
	var out Assets
	for _, name := range types {
		if descriptor, ok := r.Descriptor(name); ok {
			out.add(descriptor)
		}
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
