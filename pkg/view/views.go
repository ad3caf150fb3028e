package view

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// View names rendered by a form.
const (
	Index         = "index"
	Header        = "header"
	Body          = "body"
	Footer        = "footer"
	Notices       = "notices"
	Groups        = "groups"
	Group         = "group"
	Field         = "field"
	FieldLabel    = "field-label"
	FieldRequired = "field-required"
	Buttons       = "buttons"
	Button        = "button"
)

// NoticesView returns the view name for one notice level.
func NoticesView(level string) string {
	return Notices + "-" + level
}

//go:embed templates
var embeddedTemplates embed.FS

// TemplatesFS exposes the built-in templates rooted at "forms/".
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(fmt.Sprintf("view: embedded templates: %v", err))
	}
	return sub
}

// Views resolves view names to templates and renders them. Theme partials
// ("forms.<view>") and explicit overrides replace the built-in templates.
type Views struct {
	renderer  TemplateRenderer
	templates map[string]string
	theme     *theme.RendererConfig
	// passTheme adds the theme to each render for renderers without
	// engine globals.
	passTheme bool
}

// Option configures Views.
type Option func(*viewsConfig)

type viewsConfig struct {
	renderer      TemplateRenderer
	overrideDir   string
	engineOptions []EngineOption
	templates     map[string]string
	selection     *theme.Selection
	selector      theme.ThemeSelector
	themeName     string
	themeVariant  string
}

// WithRenderer replaces the default pongo2 engine.
func WithRenderer(renderer TemplateRenderer) Option {
	return func(cfg *viewsConfig) {
		cfg.renderer = renderer
	}
}

// WithOverrideDir loads templates from dir ahead of the built-in ones.
func WithOverrideDir(dir string) Option {
	return func(cfg *viewsConfig) {
		cfg.overrideDir = strings.TrimSpace(dir)
	}
}

// WithEngineOptions forwards options to the default engine.
func WithEngineOptions(opts ...EngineOption) Option {
	return func(cfg *viewsConfig) {
		cfg.engineOptions = append(cfg.engineOptions, opts...)
	}
}

// WithTemplates maps view names to template paths.
func WithTemplates(templates map[string]string) Option {
	return func(cfg *viewsConfig) {
		if cfg.templates == nil {
			cfg.templates = make(map[string]string, len(templates))
		}
		for name, path := range templates {
			cfg.templates[strings.TrimSpace(name)] = strings.TrimSpace(path)
		}
	}
}

// WithThemeSelection applies an already resolved theme selection.
func WithThemeSelection(selection *theme.Selection) Option {
	return func(cfg *viewsConfig) {
		cfg.selection = selection
	}
}

// WithThemeSelector resolves name/variant through selector when Views is built.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return func(cfg *viewsConfig) {
		cfg.selector = selector
		cfg.themeName = name
		cfg.themeVariant = variant
	}
}

// New builds Views over the embedded templates.
func New(opts ...Option) (*Views, error) {
	cfg := &viewsConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	selection := cfg.selection
	if selection == nil && cfg.selector != nil {
		selected, err := cfg.selector.Select(cfg.themeName, cfg.themeVariant)
		if err != nil {
			return nil, fmt.Errorf("view: select theme %q: %w", cfg.themeName, err)
		}
		selection = selected
	}

	views := &Views{
		renderer:  cfg.renderer,
		templates: make(map[string]string),
		theme:     ThemeConfig(selection),
	}
	if views.renderer == nil {
		engineOpts := append([]EngineOption{}, cfg.engineOptions...)
		if cfg.overrideDir != "" {
			engineOpts = append(engineOpts, WithBaseDir(cfg.overrideDir))
		}
		if views.theme != nil {
			engineOpts = append(engineOpts, WithGlobals(map[string]any{"theme": views.ThemeData()}))
		}
		engine, err := NewEngine(append(engineOpts, WithFS(TemplatesFS()))...)
		if err != nil {
			return nil, err
		}
		views.renderer = engine
	} else {
		views.passTheme = views.theme != nil
	}
	if views.theme != nil {
		for key, path := range views.theme.Partials {
			if name, ok := strings.CutPrefix(key, "forms."); ok {
				views.templates[name] = path
			}
		}
	}
	for name, path := range cfg.templates {
		if path != "" {
			views.templates[name] = path
		}
	}
	return views, nil
}

// With returns a copy whose templates are overridden by templates.
func (v *Views) With(templates map[string]string) *Views {
	if len(templates) == 0 {
		return v
	}
	clone := &Views{renderer: v.renderer, theme: v.theme, passTheme: v.passTheme, templates: make(map[string]string, len(v.templates)+len(templates))}
	for name, path := range v.templates {
		clone.templates[name] = path
	}
	for name, path := range templates {
		if path = strings.TrimSpace(path); path != "" {
			clone.templates[strings.TrimSpace(name)] = path
		}
	}
	return clone
}

// Template returns the template path used for name.
func (v *Views) Template(name string) string {
	if path, ok := v.templates[name]; ok {
		return path
	}
	return "forms/" + name
}

// Theme returns the flattened theme configuration, nil without a theme.
func (v *Views) Theme() *theme.RendererConfig {
	return v.theme
}

// ThemeData is the "theme" value handed to every view.
func (v *Views) ThemeData() map[string]any {
	if v.theme == nil {
		return nil
	}
	tokens := make(map[string]any, len(v.theme.Tokens))
	for key, value := range v.theme.Tokens {
		tokens[key] = value
	}
	return map[string]any{
		"name":    v.theme.Theme,
		"variant": v.theme.Variant,
		"tokens":  tokens,
		"style":   CSSVarsStyle(v.theme.CSSVars),
	}
}

// AssetURL resolves a theme asset key, "" without a theme.
func (v *Views) AssetURL(key string) string {
	if v.theme == nil || v.theme.AssetURL == nil {
		return ""
	}
	return v.theme.AssetURL(key)
}

// Render renders the view name with data.
func (v *Views) Render(name string, data map[string]any) (string, error) {
	payload := make(map[string]any, len(data)+1)
	for key, value := range data {
		payload[key] = value
	}
	if _, ok := payload["theme"]; !ok && v.passTheme {
		payload["theme"] = v.ThemeData()
	}
	out, err := v.renderer.RenderTemplate(v.Template(name), payload)
	if err != nil {
		return "", fmt.Errorf("view: render %q: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}
