// Package forms wires definitions, views, CSRF tokens and metrics into a
// ready form manager. Callers that need finer control use pkg/form directly.
package forms

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-forms/pkg/csrf"
	"github.com/goliatone/go-forms/pkg/definition"
	"github.com/goliatone/go-forms/pkg/form"
	"github.com/goliatone/go-forms/pkg/server"
	"github.com/goliatone/go-forms/pkg/telemetry"
	"github.com/goliatone/go-forms/pkg/view"
)

// Definition aliases definition.Definition for callers of the root package.
type Definition = definition.Definition

// Option configures New.
type Option func(*config)

type config struct {
	definitions []Definition
	sources     []fs.FS
	files       []string
	patches     map[string][]byte
	secret      []byte
	logger      *slog.Logger
	metrics     *telemetry.Metrics
	viewOptions []view.Option
	options     []form.Option
}

// WithDefinitions registers already parsed definitions.
func WithDefinitions(defs ...Definition) Option {
	return func(c *config) {
		c.definitions = append(c.definitions, defs...)
	}
}

// WithDefinitionsFS loads every definition file found in fsys.
func WithDefinitionsFS(fsys fs.FS) Option {
	return func(c *config) {
		if fsys != nil {
			c.sources = append(c.sources, fsys)
		}
	}
}

// WithDefinitionFiles loads the named definition files.
func WithDefinitionFiles(paths ...string) Option {
	return func(c *config) {
		c.files = append(c.files, paths...)
	}
}

// WithPatch applies overlay (a JSON patch or merge patch) to the form alias
// before it is registered.
func WithPatch(alias string, overlay []byte) Option {
	return func(c *config) {
		if c.patches == nil {
			c.patches = make(map[string][]byte)
		}
		c.patches[alias] = overlay
	}
}

// WithCSRFSecret enables CSRF tokens signed with secret.
func WithCSRFSecret(secret []byte) Option {
	return func(c *config) {
		c.secret = secret
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics records renders and submissions on metrics.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(c *config) {
		c.metrics = metrics
	}
}

// WithThemeSelector resolves name/variant through selector so templates
// pick up the theme partials and tokens.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return func(c *config) {
		if selector != nil {
			c.viewOptions = append(c.viewOptions, view.WithThemeSelector(selector, name, variant))
		}
	}
}

// WithViewOptions forwards options to the views.
func WithViewOptions(options ...view.Option) Option {
	return func(c *config) {
		c.viewOptions = append(c.viewOptions, options...)
	}
}

// WithManagerOptions forwards options to form.NewManager.
func WithManagerOptions(options ...form.Option) Option {
	return func(c *config) {
		c.options = append(c.options, options...)
	}
}

// New builds a manager and registers every configured definition.
func New(options ...Option) (*form.Manager, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	defs, err := cfg.load()
	if err != nil {
		return nil, err
	}

	managerOptions, err := cfg.managerOptions()
	if err != nil {
		return nil, err
	}
	m, err := form.NewManager(managerOptions...)
	if err != nil {
		return nil, err
	}
	if err := definition.Register(m, defs); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *config) load() ([]Definition, error) {
	defs := append([]Definition{}, c.definitions...)
	for _, fsys := range c.sources {
		loaded, err := definition.LoadFS(fsys)
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}
	for _, path := range c.files {
		loaded, err := definition.LoadFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}
	if len(c.patches) == 0 {
		return defs, nil
	}
	return definition.PatchAll(defs, c.patches)
}

func (c *config) managerOptions() ([]form.Option, error) {
	var out []form.Option
	if c.logger != nil {
		out = append(out, form.WithLogger(c.logger))
	}
	if c.metrics != nil {
		out = append(out, form.WithObserver(c.metrics))
	}
	if len(c.secret) > 0 {
		tokens, err := csrf.New(c.secret)
		if err != nil {
			return nil, fmt.Errorf("forms: csrf: %w", err)
		}
		out = append(out, form.WithCSRF(tokens))
	}
	if len(c.viewOptions) > 0 {
		views, err := view.New(c.viewOptions...)
		if err != nil {
			return nil, err
		}
		out = append(out, form.WithViews(views))
	}
	return append(out, c.options...), nil
}

// Handler serves the forms of m under server.DefaultPrefix.
func Handler(m *form.Manager, options ...server.Option) (http.Handler, error) {
	if m == nil {
		return nil, errors.New("forms: manager is required")
	}
	return server.New(m, options...), nil
}

// EmbeddedTemplates exposes the built-in templates so callers can copy or
// extend them.
func EmbeddedTemplates() fs.FS {
	return view.TemplatesFS()
}
