package form

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-forms/internal/textcase"
	"github.com/goliatone/go-forms/pkg/controls"
	"github.com/goliatone/go-forms/pkg/csrf"
	"github.com/goliatone/go-forms/pkg/messages"
	"github.com/goliatone/go-forms/pkg/params"
	"github.com/goliatone/go-forms/pkg/session"
	"github.com/goliatone/go-forms/pkg/view"
)

// Form is one resolved form definition bound to a request and a session.
// It is not safe for concurrent use.
type Form struct {
	alias   string
	index   int
	manager *Manager
	params  *params.Bag

	request  *http.Request
	views    *view.Views
	messages *messages.Bag

	events   *EventsFactory
	session  *SessionFactory
	addons   *AddonsFactory
	fields   *FieldsFactory
	groups   *FieldGroupsFactory
	buttons  *ButtonsFactory
	options  *OptionsFactory
	validate *ValidateFactory
	handle   *HandleFactory

	successful bool
	built      bool
	booted     bool
	rendered   bool
}

// FormOption binds a form to its request context.
type FormOption func(*formConfig)

type formConfig struct {
	request   *http.Request
	session   *session.Session
	overrides map[string]any
}

// WithRequest sets the request a form reads submissions from.
func WithRequest(r *http.Request) FormOption {
	return func(cfg *formConfig) {
		cfg.request = r
	}
}

// WithSession sets the visitor session. Without one the form keeps its
// state in a throwaway session.
func WithSession(s *session.Session) FormOption {
	return func(cfg *formConfig) {
		cfg.session = s
	}
}

// WithParams overrides top-level params of the registered definition.
func WithParams(overrides map[string]any) FormOption {
	return func(cfg *formConfig) {
		if cfg.overrides == nil {
			cfg.overrides = make(map[string]any, len(overrides))
		}
		for key, value := range overrides {
			cfg.overrides[key] = value
		}
	}
}

func defaultFormParams(alias string) map[string]any {
	return map[string]any{
		"action":   "",
		"addons":   map[string]any{},
		"after":    "",
		"attrs":    map[string]any{},
		"before":   "",
		"buttons":  map[string]any{},
		"enctype":  "",
		"events":   map[string]any{},
		"fields":   []any{},
		"groups":   []any{},
		"labels":   map[string]any{},
		"method":   "post",
		"options":  map[string]any{},
		"supports": []string{SupportSession},
		"title":    alias,
		"viewer":   map[string]any{},
		"wrapper":  map[string]any{},
	}
}

func newForm(m *Manager, alias string, index int, definition map[string]any, cfg *formConfig) *Form {
	f := &Form{
		alias:    alias,
		index:    index,
		manager:  m,
		params:   params.New(definition),
		request:  cfg.request,
		messages: messages.New(),
	}
	for key, value := range cfg.overrides {
		f.params.Set(key, value)
	}
	f.params.Merge(defaultFormParams(alias))

	f.events = newEventsFactory(m.dispatcher)
	f.session = newSessionFactory(cfg.session)
	f.addons = newAddonsFactory()
	f.fields = newFieldsFactory()
	f.groups = newFieldGroupsFactory()
	f.buttons = newButtonsFactory()
	f.options = newOptionsFactory()
	f.validate = newValidateFactory(m.library)
	f.handle = newHandleFactory(cfg.request)
	return f
}

// Build attaches the factories, checks the method and resolves the views.
// It runs once.
func (f *Form) Build() error {
	if f.built {
		return nil
	}
	if f.manager == nil {
		return missingForm("form " + f.alias)
	}

	method := strings.ToLower(strings.TrimSpace(f.params.GetString("method")))
	switch method {
	case "get", "post":
		f.params.Set("method", method)
	default:
		return fmt.Errorf("form: %q: unsupported method %q", f.alias, method)
	}

	f.events.form = f
	f.session.form = f
	f.addons.form = f
	f.fields.form = f
	f.groups.form = f
	f.buttons.form = f
	f.options.form = f
	f.validate.form = f
	f.handle.form = f

	if err := f.groups.declare(f.params.Get("groups")); err != nil {
		return fmt.Errorf("form: %q: %w", f.alias, err)
	}

	viewer := make(map[string]string)
	for name, path := range f.params.GetMap("viewer") {
		viewer[name] = params.String(path)
	}
	f.views = f.manager.views.With(viewer)

	f.built = true
	return nil
}

// Boot boots the factories in order: events, session, addons, fields,
// groups, buttons, options, validate and handle. The successful flag is
// pulled from the session. It fires form.booting and form.booted once.
func (f *Form) Boot() error {
	if f.booted {
		return nil
	}
	if err := f.Build(); err != nil {
		return err
	}
	f.Event("form.booting", f)

	steps := []struct {
		name string
		boot func() error
	}{
		{"events", f.events.Boot},
		{"session", f.session.Boot},
		{"addons", f.addons.Boot},
		{"fields", f.fields.Boot},
		{"groups", f.groups.Boot},
		{"buttons", f.buttons.Boot},
		{"options", f.options.Boot},
		{"validate", f.validate.Boot},
		{"handle", f.handle.Boot},
	}
	for _, step := range steps {
		if err := step.boot(); err != nil {
			return fmt.Errorf("form: %q: boot %s: %w", f.alias, step.name, err)
		}
	}

	f.successful = params.Truthy(f.session.Pull("successful"))
	f.booted = true
	f.logger().Debug("form booted", "form", f.alias, "fields", f.fields.Count(), "buttons", f.buttons.Count())
	f.Event("form.booted", f)
	return nil
}

// IsBooted reports whether Boot ran.
func (f *Form) IsBooted() bool { return f.booted }

// Event fires the form scoped event name.
func (f *Form) Event(name string, args ...any) {
	if f.events == nil {
		return
	}
	f.events.Trigger(name, args...)
}

func (f *Form) Alias() string { return f.alias }

// Index is the registration order of the form definition.
func (f *Form) Index() int { return f.index }

func (f *Form) Manager() *Manager { return f.manager }

// Params returns the form params bag.
func (f *Form) Params() *params.Bag { return f.params }

func (f *Form) Request() *http.Request { return f.request }

func (f *Form) Views() *view.Views { return f.views }

func (f *Form) Messages() *messages.Bag { return f.messages }

func (f *Form) Events() *EventsFactory { return f.events }

func (f *Form) Session() *SessionFactory { return f.session }

func (f *Form) Addons() *AddonsFactory { return f.addons }

func (f *Form) Fields() *FieldsFactory { return f.fields }

func (f *Form) Groups() *FieldGroupsFactory { return f.groups }

func (f *Form) Buttons() *ButtonsFactory { return f.buttons }

func (f *Form) Options() *OptionsFactory { return f.options }

func (f *Form) Validation() *ValidateFactory { return f.validate }

func (f *Form) Handle() *HandleFactory { return f.handle }

// Field returns the field with slug.
func (f *Form) Field(slug string) (FieldDriver, bool) { return f.fields.Get(slug) }

func (f *Form) Action() string { return f.params.GetString("action") }

// Method returns "get" or "post".
func (f *Form) Method() string { return f.params.GetString("method") }

func (f *Form) Title() string { return f.params.GetString("title") }

// Option resolves a dot path form option.
func (f *Form) Option(key string) any { return f.options.Get(key) }

// Supports reports whether the form "supports" param holds flag.
func (f *Form) Supports(flag string) bool {
	return params.Contains(f.params.GetStrings("supports"), flag)
}

// Labels returns the singular, plural and gender labels of the form.
func (f *Form) Labels() map[string]any {
	labels := f.params.GetMap("labels")
	return params.MergeDefaults(labels, map[string]any{
		"gender":   false,
		"plural":   f.Title(),
		"singular": f.Title(),
	})
}

// TagName is the lower camel case form of the alias.
func (f *Form) TagName() string { return textcase.TagName(f.alias) }

func (f *Form) Before() string { return f.params.GetString("before") }

func (f *Form) After() string { return f.params.GetString("after") }

// Error records a form level error message.
func (f *Form) Error(message string) { f.messages.Error(message) }

// HasError reports whether an error message was recorded.
func (f *Form) HasError() bool { return f.messages.Exists(messages.Error) }

// IsSubmitted reports whether the request is a submission of the form.
func (f *Form) IsSubmitted() bool { return f.handle.IsSubmitted() }

func (f *Form) IsSuccessful() bool { return f.successful }

// HasWrapper reports whether the form is wrapped; an explicit false
// "wrapper" param removes it.
func (f *Form) HasWrapper() bool { return f.params.Get("wrapper") != false }

// ID returns the id attribute of the form element.
func (f *Form) ID() string {
	if f.params.Has("attrs.id") {
		return f.params.GetString("attrs.id")
	}
	return "FormContent--" + f.TagName()
}

// WrapperID returns the id attribute of the wrapper, "" without one.
func (f *Form) WrapperID() string {
	if !f.HasWrapper() {
		return ""
	}
	if f.params.Has("wrapper.attrs.id") {
		return f.params.GetString("wrapper.attrs.id")
	}
	return "Form--" + f.TagName()
}

// Anchor returns the fragment of redirect URLs. A string "anchor" option
// is used as is; any other truthy value points to the wrapper, or to the
// form when it has no wrapper.
func (f *Form) Anchor() string {
	anchor := f.options.Get("anchor")
	if !params.Truthy(anchor) {
		return ""
	}
	value, ok := anchor.(string)
	if !ok {
		if value = f.WrapperID(); value == "" {
			value = f.ID()
		}
	}
	return strings.TrimLeft(value, "#")
}

// CSRF returns a fresh token for the form, "" without a token manager.
func (f *Form) CSRF() string {
	tokens := f.tokens()
	if tokens == nil {
		return ""
	}
	token, err := tokens.Generate(f.tokenScope())
	if err != nil {
		f.logger().Error("form csrf token", "form", f.alias, "error", err)
		return ""
	}
	return token
}

// Proceed processes the submission of the form. See HandleFactory.Proceed.
func (f *Form) Proceed(ctx context.Context) (*Redirect, error) {
	return f.handle.Proceed(ctx)
}

// SetCurrent marks the form as the manager current form.
func (f *Form) SetCurrent() { f.manager.SetCurrent(f) }

func (f *Form) renderContext() context.Context {
	if f.request != nil {
		return f.request.Context()
	}
	return context.Background()
}

func (f *Form) tokenScope() string { return "Form" + f.alias }

func (f *Form) tokens() *csrf.Tokens { return f.manager.csrf }

func (f *Form) controls() *controls.Registry { return f.manager.registry }

func (f *Form) logger() *slog.Logger { return f.manager.logger }

func (f *Form) tracer() trace.Tracer { return f.manager.tracer }

func (f *Form) observer() Observer { return f.manager.observer }
