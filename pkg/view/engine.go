package view

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-forms/internal/textcase"
)

const templateExt = ".tpl"

// EngineOption configures the sources and globals of an Engine.
type EngineOption func(*engineSetup)

type engineSetup struct {
	dir     string
	sources []fs.FS
	globals pongo2.Context
	filters map[string]func(string) string
}

// WithBaseDir loads templates from dir ahead of every fs.FS source.
func WithBaseDir(dir string) EngineOption {
	return func(s *engineSetup) {
		s.dir = strings.TrimSpace(dir)
	}
}

// WithFS adds a template source. Sources added first win.
func WithFS(fsys fs.FS) EngineOption {
	return func(s *engineSetup) {
		if fsys != nil {
			s.sources = append(s.sources, fsys)
		}
	}
}

// WithGlobals sets values every template sees. Render data with the same
// key takes precedence.
func WithGlobals(values map[string]any) EngineOption {
	return func(s *engineSetup) {
		for key, value := range values {
			if key = strings.TrimSpace(key); key != "" {
				s.globals[key] = value
			}
		}
	}
}

// WithFilter registers a string filter usable as {{ value|name }}. pongo2
// filters are process wide: an existing filter of that name is replaced.
func WithFilter(name string, fn func(string) string) EngineOption {
	return func(s *engineSetup) {
		if name = strings.TrimSpace(name); name != "" && fn != nil {
			s.filters[name] = fn
		}
	}
}

// Engine renders named templates of a pongo2 template set. Compiled
// templates are kept per path.
type Engine struct {
	set *pongo2.TemplateSet

	mu       sync.Mutex
	compiled map[string]*pongo2.Template
}

var _ TemplateRenderer = (*Engine)(nil)

var defaultFilters sync.Once

// NewEngine builds an engine over a base dir, fs.FS sources or both.
func NewEngine(options ...EngineOption) (*Engine, error) {
	setup := &engineSetup{globals: pongo2.Context{}, filters: map[string]func(string) string{}}
	for _, opt := range options {
		if opt != nil {
			opt(setup)
		}
	}
	if setup.dir == "" && len(setup.sources) == 0 {
		return nil, errors.New("view: engine needs a base dir or an fs.FS")
	}

	var loaders []pongo2.TemplateLoader
	if setup.dir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(setup.dir)
		if err != nil {
			return nil, fmt.Errorf("view: template dir %q: %w", setup.dir, err)
		}
		loaders = append(loaders, loader)
	}
	for _, fsys := range setup.sources {
		loaders = append(loaders, pongo2.NewFSLoader(fsys))
	}

	var err error
	defaultFilters.Do(func() {
		err = errors.Join(
			setFilter("trim", strings.TrimSpace),
			setFilter("lowerfirst", lowerFirst),
		)
	})
	if err != nil {
		return nil, err
	}
	for name, fn := range setup.filters {
		if err := setFilter(name, fn); err != nil {
			return nil, err
		}
	}

	set := pongo2.NewSet("forms", loaders...)
	set.Globals.Update(setup.globals)
	return &Engine{set: set, compiled: make(map[string]*pongo2.Template)}, nil
}

// RenderTemplate renders the template at name, adding the ".tpl" extension
// when missing, and copies the result to every out writer.
func (e *Engine) RenderTemplate(name string, data map[string]any, out ...io.Writer) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("view: engine is nil")
	}
	if !strings.HasSuffix(name, templateExt) {
		name += templateExt
	}
	tmpl, err := e.load(name)
	if err != nil {
		return "", err
	}
	rendered, err := tmpl.Execute(pongo2.Context(data))
	if err != nil {
		return "", fmt.Errorf("view: execute template %q: %w", name, err)
	}
	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return rendered, err
		}
	}
	return rendered, nil
}

// load compiles path once. FromFile is used over FromCache because the
// cache resolves paths against the first loader only, which hides the
// fs.FS sources behind a base dir.
func (e *Engine) load(path string) (*pongo2.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.compiled[path]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("view: load template %q: %w", path, err)
	}
	e.compiled[path] = tmpl
	return tmpl, nil
}

func setFilter(name string, fn func(string) string) error {
	filter := func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		return pongo2.AsValue(fn(in.String())), nil
	}
	var err error
	if pongo2.FilterExists(name) {
		err = pongo2.ReplaceFilter(name, filter)
	} else {
		err = pongo2.RegisterFilter(name, filter)
	}
	if err != nil {
		return fmt.Errorf("view: filter %q: %w", name, err)
	}
	return nil
}

// lowerFirst lowercases the first letter, keeping leading whitespace.
func lowerFirst(s string) string {
	trimmed := strings.TrimLeft(s, " \t\r\n")
	return s[:len(s)-len(trimmed)] + textcase.LowerFirst(trimmed)
}
