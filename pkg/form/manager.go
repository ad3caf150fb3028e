package form

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-forms/pkg/controls"
	"github.com/goliatone/go-forms/pkg/csrf"
	"github.com/goliatone/go-forms/pkg/validation"
	"github.com/goliatone/go-forms/pkg/view"
)

const tracerName = "github.com/goliatone/go-forms"

// Observer receives submission and render measurements.
type Observer interface {
	Submitted(alias, outcome string, elapsed time.Duration)
	Rendered(alias string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) Submitted(string, string, time.Duration) {}

func (nopObserver) Rendered(string, time.Duration) {}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Forms log at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTracer sets the tracer of the proceed and render spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(observer Observer) Option {
	return func(m *Manager) {
		if observer != nil {
			m.observer = observer
		}
	}
}

// WithCSRF enables token checks on submission.
func WithCSRF(tokens *csrf.Tokens) Option {
	return func(m *Manager) {
		m.csrf = tokens
	}
}

// WithViews replaces the built-in views.
func WithViews(views *view.Views) Option {
	return func(m *Manager) {
		if views != nil {
			m.views = views
		}
	}
}

// WithControls replaces the default controls registry.
func WithControls(registry *controls.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// WithValidation replaces the default rule library.
func WithValidation(library *validation.Library) Option {
	return func(m *Manager) {
		if library != nil {
			m.library = library
		}
	}
}

// WithDispatcher shares an event dispatcher.
func WithDispatcher(dispatcher *Dispatcher) Option {
	return func(m *Manager) {
		if dispatcher != nil {
			m.dispatcher = dispatcher
		}
	}
}

// Manager registers form, field, button and addon definitions and resolves
// fresh forms from them. It is safe for concurrent use; the forms it returns
// are not.
type Manager struct {
	mu        sync.RWMutex
	forms     map[string]map[string]any
	formOrder []string
	fields    map[string]FieldFactory
	buttons   map[string]ButtonFactory
	addons    map[string]AddonFactory
	functions map[string]validation.Rule
	current   *Form

	dispatcher *Dispatcher
	library    *validation.Library
	registry   *controls.Registry
	views      *view.Views
	csrf       *csrf.Tokens
	logger     *slog.Logger
	tracer     trace.Tracer
	observer   Observer
}

// NewManager returns a manager holding the built-in drivers: the "submit"
// button and the "html" and "tag" fields.
func NewManager(options ...Option) (*Manager, error) {
	m := &Manager{
		forms:     make(map[string]map[string]any),
		fields:    make(map[string]FieldFactory),
		buttons:   make(map[string]ButtonFactory),
		addons:    make(map[string]AddonFactory),
		functions: make(map[string]validation.Rule),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(m)
	}
	if err := m.applyDefaults(); err != nil {
		return nil, err
	}

	m.fields[controls.TypeHTML] = NewHTMLField
	m.fields[controls.TypeTag] = NewTagField
	m.buttons[SubmitAlias] = NewSubmitButton
	return m, nil
}

func (m *Manager) applyDefaults() error {
	if m.dispatcher == nil {
		m.dispatcher = NewDispatcher()
	}
	if m.library == nil {
		m.library = validation.Default()
	}
	if m.registry == nil {
		m.registry = controls.NewDefaultRegistry()
	}
	if m.views == nil {
		views, err := view.New()
		if err != nil {
			return fmt.Errorf("form: default views: %w", err)
		}
		m.views = views
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
	if m.observer == nil {
		m.observer = nopObserver{}
	}
	return nil
}

// RegisterForm registers a form definition under alias.
func (m *Manager) RegisterForm(alias string, definition map[string]any) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return errors.New("form: form alias required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.forms[alias]; exists {
		return fmt.Errorf("%w: form %q", ErrDuplicateAlias, alias)
	}
	if definition == nil {
		definition = map[string]any{}
	}
	m.forms[alias] = definition
	m.formOrder = append(m.formOrder, alias)
	m.logger.Debug("form registered", "form", alias)
	return nil
}

// MustRegisterForm panics when RegisterForm fails.
func (m *Manager) MustRegisterForm(alias string, definition map[string]any) {
	if err := m.RegisterForm(alias, definition); err != nil {
		panic(err)
	}
}

// RegisterField registers a field driver for a field type.
func (m *Manager) RegisterField(fieldType string, factory FieldFactory) error {
	return register(&m.mu, m.fields, "field", fieldType, factory)
}

// MustRegisterField panics when RegisterField fails.
func (m *Manager) MustRegisterField(fieldType string, factory FieldFactory) {
	if err := m.RegisterField(fieldType, factory); err != nil {
		panic(err)
	}
}

// RegisterButton registers a button driver under alias.
func (m *Manager) RegisterButton(alias string, factory ButtonFactory) error {
	return register(&m.mu, m.buttons, "button", alias, factory)
}

// MustRegisterButton panics when RegisterButton fails.
func (m *Manager) MustRegisterButton(alias string, factory ButtonFactory) {
	if err := m.RegisterButton(alias, factory); err != nil {
		panic(err)
	}
}

// RegisterAddon registers an addon driver under alias.
func (m *Manager) RegisterAddon(alias string, factory AddonFactory) error {
	return register(&m.mu, m.addons, "addon", alias, factory)
}

// MustRegisterAddon panics when RegisterAddon fails.
func (m *Manager) MustRegisterAddon(alias string, factory AddonFactory) {
	if err := m.RegisterAddon(alias, factory); err != nil {
		panic(err)
	}
}

// RegisterFunction registers a validation callback reachable by name from
// field validations, after the rule library.
func (m *Manager) RegisterFunction(name string, rule validation.Rule) error {
	return register(&m.mu, m.functions, "function", name, rule)
}

// MustRegisterFunction panics when RegisterFunction fails.
func (m *Manager) MustRegisterFunction(name string, rule validation.Rule) {
	if err := m.RegisterFunction(name, rule); err != nil {
		panic(err)
	}
}

func register[T any](mu *sync.RWMutex, registry map[string]T, kind, alias string, value T) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return fmt.Errorf("form: %s alias required", kind)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[alias]; exists {
		return fmt.Errorf("%w: %s %q", ErrDuplicateAlias, kind, alias)
	}
	registry[alias] = value
	return nil
}

// Get builds and boots a fresh form from the definition registered under
// alias.
func (m *Manager) Get(alias string, options ...FormOption) (*Form, error) {
	m.mu.RLock()
	definition, ok := m.forms[alias]
	index := m.indexLocked(alias)
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownForm, alias)
	}

	cfg := &formConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	form := newForm(m, alias, index, definition, cfg)
	if err := form.Boot(); err != nil {
		return nil, err
	}
	return form, nil
}

// Has reports whether a form is registered under alias.
func (m *Manager) Has(alias string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.forms[alias]
	return ok
}

// Index returns the registration order of the form alias, -1 when unknown.
func (m *Manager) Index(alias string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexLocked(alias)
}

func (m *Manager) indexLocked(alias string) int {
	for i, candidate := range m.formOrder {
		if candidate == alias {
			return i
		}
	}
	return -1
}

// Forms returns the registered form aliases in registration order.
func (m *Manager) Forms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.formOrder...)
}

// Fields returns the registered field types, sorted.
func (m *Manager) Fields() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.fields)
}

func sortedKeys[T any](registry map[string]T) []string {
	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SetCurrent records form as the current form and fires form.set.current.
func (m *Manager) SetCurrent(form *Form) {
	m.mu.Lock()
	m.current = form
	m.mu.Unlock()
	if form != nil {
		form.Event("form.set.current", form)
	}
}

// ResetCurrent clears the current form and fires form.reset.current on it.
func (m *Manager) ResetCurrent() {
	m.mu.Lock()
	previous := m.current
	m.current = nil
	m.mu.Unlock()
	if previous != nil {
		previous.Event("form.reset.current", previous)
	}
}

// Current returns the current form, nil when none is set.
func (m *Manager) Current() *Form {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Manager) Dispatcher() *Dispatcher { return m.dispatcher }

func (m *Manager) Validation() *validation.Library { return m.library }

func (m *Manager) Controls() *controls.Registry { return m.registry }

func (m *Manager) Views() *view.Views { return m.views }

func (m *Manager) Logger() *slog.Logger { return m.logger }

// fieldDriver returns a fresh driver for fieldType. Types without a
// registered driver use the generic one.
func (m *Manager) fieldDriver(fieldType string) FieldDriver {
	m.mu.RLock()
	factory, ok := m.fields[fieldType]
	m.mu.RUnlock()
	if ok {
		if driver := factory(); driver != nil {
			return driver
		}
	}
	return NewField()
}

// buttonDriver returns a fresh driver for alias, the generic button when
// none is registered.
func (m *Manager) buttonDriver(alias string) ButtonDriver {
	m.mu.RLock()
	factory, ok := m.buttons[alias]
	m.mu.RUnlock()
	if ok {
		if driver := factory(); driver != nil {
			return driver
		}
	}
	return NewButton()
}

func (m *Manager) addonDriver(alias string) (AddonDriver, error) {
	m.mu.RLock()
	factory, ok := m.addons[alias]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAddon, alias)
	}
	driver := factory()
	if driver == nil {
		return nil, fmt.Errorf("%w: %q resolved to nil", ErrUnknownAddon, alias)
	}
	return driver, nil
}

func (m *Manager) function(name string) (validation.Rule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rule, ok := m.functions[name]
	return rule, ok
}
