package form

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-forms/pkg/controls"
	"github.com/goliatone/go-forms/pkg/messages"
	"github.com/goliatone/go-forms/pkg/params"
	"github.com/goliatone/go-forms/pkg/sanitize"
	"github.com/goliatone/go-forms/pkg/validation"
	"github.com/goliatone/go-forms/pkg/view"
)

// Support flags.
const (
	SupportChecking   = "checking"
	SupportChoices    = "choices"
	SupportLabel      = "label"
	SupportRequest    = "request"
	SupportSession    = "session"
	SupportTabindex   = "tabindex"
	SupportTabindexes = "tabindexes"
	SupportTransport  = "transport"
	SupportWrapper    = "wrapper"
)

const (
	defaultRequiredMessage   = `The field "%s" must be filled.`
	defaultValidationMessage = `The format of field "%s" is invalid`
)

var defaultSupports = []string{SupportLabel, SupportRequest, SupportSession, SupportTabindex, SupportTransport, SupportWrapper}

var typeSupports = map[string][]string{
	controls.TypeButton:             {SupportRequest, SupportWrapper},
	controls.TypeCheckbox:           {SupportChecking, SupportLabel, SupportRequest, SupportWrapper, SupportSession, SupportTabindex, SupportTransport},
	controls.TypeCheckboxCollection: {SupportChoices, SupportLabel, SupportRequest, SupportSession, SupportTabindexes, SupportTransport, SupportWrapper},
	controls.TypeDatetimeJS:         {SupportLabel, SupportRequest, SupportSession, SupportTabindexes, SupportTransport, SupportWrapper},
	controls.TypeFile:               {SupportLabel, SupportRequest, SupportTabindex, SupportWrapper},
	controls.TypeHidden:             {SupportRequest, SupportSession, SupportTransport},
	controls.TypeLabel:              {SupportWrapper},
	controls.TypePassword:           {SupportLabel, SupportRequest, SupportTabindex, SupportWrapper},
	controls.TypeRadio:              {SupportLabel, SupportRequest, SupportSession, SupportTabindex, SupportTransport, SupportWrapper},
	controls.TypeRadioCollection:    {SupportChoices, SupportLabel, SupportRequest, SupportSession, SupportTabindexes, SupportTransport, SupportWrapper},
	controls.TypeRepeater:           {SupportLabel, SupportRequest, SupportSession, SupportTabindexes, SupportTransport, SupportWrapper},
	controls.TypeSelect:             {SupportChoices, SupportLabel, SupportRequest, SupportSession, SupportTabindex, SupportTransport, SupportWrapper},
	controls.TypeSelectJS:           {SupportChoices, SupportLabel, SupportRequest, SupportSession, SupportTabindex, SupportTransport, SupportWrapper},
	controls.TypeSubmit:             {SupportRequest, SupportTabindex, SupportWrapper},
	controls.TypeToggleSwitch:       {SupportRequest, SupportTabindex, SupportSession, SupportTransport, SupportWrapper},
}

// TypeSupports returns the default support flags of a control type.
func TypeSupports(fieldType string) []string {
	if supports, ok := typeSupports[fieldType]; ok {
		return append([]string(nil), supports...)
	}
	return append([]string(nil), defaultSupports...)
}

// FieldDriver is one field of a form. Custom drivers embed *Field and
// override the methods they need; the embedded Field dispatches Boot,
// Validate and rendering through the outer driver.
type FieldDriver interface {
	Slug() string
	Type() string
	Name() string
	Title() string
	Form() *Form
	Params() *params.Bag

	Boot() error
	ParseParams() error
	Validate() error
	PreRender() error
	Render() (string, error)
	IsRendering() bool

	Value(raw bool) any
	Values(raw bool, glue string) string
	SetValue(value any)
	ResetValue()
	Default() any
	SetDefault(value any)

	Position() int
	SetPosition(position int)
	Supports(flag string) bool
	SupportsList() []string
	HasLabel() bool
	HasWrapper() bool
	HasNotices(levels ...messages.Level) bool
	AddNotice(level messages.Level, message string)
	Error(message string)
	Before() string
	After() string
	AddonOption(alias, key string) any
	Extras() map[string]any
	Group() *FieldGroup

	field() *Field
}

// FieldFactory builds a fresh field driver.
type FieldFactory func() FieldDriver

// Field is the generic field driver, used for every type without a
// dedicated driver.
type Field struct {
	self FieldDriver
	form *Form
	slug string

	params       *params.Bag
	defaultValue any
	hasDefault   bool

	// DefaultSupports replaces the per-type supports when non-nil.
	DefaultSupports []string

	booted    bool
	rendering bool
}

// NewField returns a generic field driver.
func NewField() FieldDriver { return &Field{} }

func (f *Field) field() *Field { return f }

func (f *Field) bind(self FieldDriver, form *Form, slug string, values map[string]any) {
	f.self = self
	f.form = form
	f.slug = slug
	f.params = params.New(values)
	f.params.Merge(map[string]any{
		"addons":      map[string]any{},
		"after":       "",
		"attrs":       map[string]any{},
		"before":      "",
		"choices":     map[string]any{},
		"extras":      map[string]any{},
		"group":       "",
		"label":       true,
		"name":        slug,
		"position":    0,
		"required":    false,
		"session":     true,
		"supports":    nil,
		"title":       slug,
		"transport":   nil,
		"type":        controls.TypeHTML,
		"validations": []any{},
		"value":       "",
		"wrapper":     nil,
	})
}

func (f *Field) driver() FieldDriver {
	if f.self != nil {
		return f.self
	}
	return f
}

func (f *Field) Slug() string { return f.slug }

func (f *Field) Type() string { return f.Params().GetString("type") }

func (f *Field) Name() string { return f.Params().GetString("name") }

func (f *Field) Title() string { return f.Params().GetString("title") }

func (f *Field) Form() *Form { return f.form }

// Params returns the field params bag.
func (f *Field) Params() *params.Bag {
	if f.params == nil {
		f.params = params.New(nil)
	}
	return f.params
}

// Boot fires field.booting.<type> and field.booting, parses the params, then
// fires field.booted.<type> and field.booted. Later calls are no-ops.
func (f *Field) Boot() error {
	if f.booted {
		return nil
	}
	if f.form == nil {
		return missingForm(fmt.Sprintf("field %q", f.slug))
	}
	d := f.driver()
	f.form.Event("field.booting."+f.Type(), d)
	f.form.Event("field.booting", d)
	if err := d.ParseParams(); err != nil {
		return err
	}
	f.form.Event("field.booted."+f.Type(), d)
	f.form.Event("field.booted", d)
	f.booted = true
	return nil
}

// ParseParams normalizes name, supports, wrapper, required and validations,
// restores the session value and merges addon field defaults.
func (f *Field) ParseParams() error {
	p := f.Params()
	if !f.hasDefault {
		f.SetDefault(p.Get("value"))
	}

	if name := strings.TrimSpace(p.GetString("name")); name != "" {
		p.Set("name", name)
	} else {
		p.Set("name", f.slug)
	}

	supports := p.GetStrings("supports")
	if len(supports) == 0 {
		if f.DefaultSupports != nil {
			supports = append([]string{}, f.DefaultSupports...)
		} else {
			supports = TypeSupports(f.Type())
		}
	}
	supports = toggleSupport(supports, SupportTransport, p.Get("transport"))
	supports = toggleSupport(supports, SupportSession, p.Get("session"))
	supports = toggleSupport(supports, SupportWrapper, p.Get("wrapper"))
	p.Set("supports", supports)

	f.restoreSessionValue()

	if params.Contains(supports, SupportWrapper) && !params.Truthy(p.Get("wrapper")) {
		p.Set("wrapper", true)
	}

	if required := p.Get("required"); params.Truthy(required) {
		p.Set("required", normalizeRequired(required))
	}
	p.Set("validations", normalizeValidations(p.Get("validations")))

	if f.form != nil && f.form.addons != nil {
		for _, addon := range f.form.addons.All() {
			key := "addons." + addon.Alias()
			p.Set(key, params.MergeDefaults(params.Map(p.Get(key)), addon.DefaultFieldOptions()))
		}
	}
	return nil
}

// toggleSupport adds flag when value is truthy and drops it when value is an
// explicit false.
func toggleSupport(supports []string, flag string, value any) []string {
	if value == false {
		return params.Without(supports, flag)
	}
	if params.Truthy(value) && !params.Contains(supports, flag) {
		return append(supports, flag)
	}
	return supports
}

func (f *Field) restoreSessionValue() {
	if f.form == nil || !f.Supports(SupportSession) || !f.form.Supports(SupportSession) {
		return
	}
	if value := f.form.Session().Get("request." + f.Name()); value != nil {
		f.driver().SetValue(value)
	}
}

func normalizeRequired(raw any) map[string]any {
	var declared map[string]any
	switch v := raw.(type) {
	case string:
		declared = map[string]any{"message": v}
	default:
		declared = params.Map(v)
	}
	required := params.MergeDefaults(declared, map[string]any{
		"tagged":     true,
		"check":      true,
		"value_none": "",
		"call":       "",
		"args":       []any{},
		"raw":        true,
		"message":    defaultRequiredMessage,
		"html5":      false,
	})

	if tagged := required["tagged"]; params.Truthy(tagged) {
		var declaredTag map[string]any
		if s, ok := tagged.(string); ok {
			declaredTag = map[string]any{"content": s}
		} else {
			declaredTag = params.Map(tagged)
		}
		required["tagged"] = params.MergeDefaults(declaredTag, map[string]any{
			"tag":     "span",
			"attrs":   map[string]any{},
			"content": "*",
		})
	}

	if call := required["call"]; call == nil || call == "" {
		if valueNone := required["value_none"]; params.Truthy(valueNone) {
			required["call"] = "!equals"
			required["args"] = []any{valueNone}
		} else {
			required["call"] = "notEmpty"
			required["args"] = []any{}
		}
	}
	return required
}

func normalizeValidations(raw any) []any {
	var out []any
	var walk func(v any)
	walk = func(v any) {
		switch value := v.(type) {
		case nil:
			return
		case string:
			for _, call := range strings.Split(value, ",") {
				if call = strings.TrimSpace(call); call != "" {
					out = append(out, validationEntry(map[string]any{"call": call}))
				}
			}
			return
		}
		if entry := params.Map(v); entry != nil {
			if _, ok := entry["call"]; ok {
				out = append(out, validationEntry(entry))
				return
			}
			keys := make([]string, 0, len(entry))
			for key := range entry {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				walk(entry[key])
			}
			return
		}
		if isCallback(v) {
			out = append(out, validationEntry(map[string]any{"call": v}))
			return
		}
		for _, item := range params.List(v) {
			walk(item)
		}
	}
	walk(raw)
	if out == nil {
		out = []any{}
	}
	return out
}

func validationEntry(entry map[string]any) map[string]any {
	return params.MergeDefaults(entry, map[string]any{
		"alias":   "",
		"args":    []any{},
		"call":    "default",
		"message": defaultValidationMessage,
		"raw":     false,
	})
}

// Validate runs the required check, then every validation rule in order.
// The first failure is returned as a *FieldValidateError.
func (f *Field) Validate() error {
	if f.form == nil {
		return missingForm(fmt.Sprintf("field %q", f.slug))
	}
	d := f.driver()
	p := f.Params()
	f.form.Event("field.validate."+f.Type(), d)
	f.form.Event("field.validate", d)

	validator := f.form.Validation()
	if params.Truthy(p.Get("required.check")) {
		value := d.Value(params.Truthy(p.GetOr("required.raw", true)))
		if !validator.Call(p.Get("required.call"), value, params.List(p.Get("required.args"))) {
			return &FieldValidateError{
				Field:   d,
				Alias:   RequiredAlias,
				Message: formatMessage(p.GetString("required.message"), d.Title()),
			}
		}
	}

	for i, rule := range params.List(p.Get("validations")) {
		entry := params.Map(rule)
		if entry == nil {
			continue
		}
		value := d.Value(params.Truthy(entry["raw"]))
		if validator.Call(entry["call"], value, params.List(entry["args"])) {
			continue
		}
		alias := params.String(entry["alias"])
		if alias == "" {
			if call, ok := entry["call"].(string); ok {
				alias = call
			} else {
				alias = strconv.Itoa(i)
			}
		}
		return &FieldValidateError{
			Field:   d,
			Alias:   alias,
			Message: formatMessage(params.String(entry["message"]), d.Title()),
		}
	}

	f.form.Event("field.validated."+f.Type(), d)
	f.form.Event("field.validated", d)
	return nil
}

// formatMessage substitutes the first %s of message with title.
func formatMessage(message, title string) string {
	return strings.Replace(message, "%s", title, 1)
}

func (f *Field) IsRendering() bool { return f.rendering }

// PreRender computes the control, wrapper, required marker and label
// attributes. It runs once per render cycle.
func (f *Field) PreRender() error {
	if f.rendering {
		return nil
	}
	if f.form == nil {
		return missingForm(fmt.Sprintf("field %q", f.slug))
	}
	p := f.Params()
	slug, fieldType, index := f.slug, f.Type(), f.form.Index()

	defaultAttr(p, "attrs.id", fmt.Sprintf("FormField-input--%s_%d", slug, index))
	defaultClass(p, "attrs.class", fmt.Sprintf("FormField-input FormField-input--%s FormField-input--%s", fieldType, slug))
	if !p.Has("attrs.tabindex") {
		p.Set("attrs.tabindex", f.driver().Position())
	}
	if p.Get("attrs.tabindex") == false {
		p.Forget("attrs.tabindex")
	}
	if f.driver().HasNotices(messages.Error) {
		p.Set("attrs.aria-invalid", "true")
	}

	if wrapper := p.Get("wrapper"); params.Truthy(wrapper) {
		p.Set("wrapper", params.MergeDefaults(params.Map(wrapper), map[string]any{"tag": "div", "attrs": map[string]any{}}))
		defaultAttr(p, "wrapper.attrs.id", fmt.Sprintf("FormRow--%s_%d", slug, index))
		defaultClass(p, "wrapper.attrs.class", fmt.Sprintf("FormRow FormRow--%s FormRow--%s", fieldType, slug))
	}

	if params.Truthy(p.Get("required.tagged")) {
		defaultAttr(p, "required.tagged.attrs.id", fmt.Sprintf("FormField-required--%s_%d", slug, index))
		defaultClass(p, "required.tagged.attrs.class", fmt.Sprintf("FormField-required FormField-required--%s FormField-required--%s", fieldType, slug))
	}

	if label := p.Get("label"); params.Truthy(label) {
		var declared map[string]any
		switch v := label.(type) {
		case string:
			declared = map[string]any{"content": v}
		default:
			declared = params.Map(v)
		}
		_, customContent := declared["content"]
		p.Set("label", params.MergeDefaults(declared, map[string]any{
			"tag":      "label",
			"attrs":    map[string]any{},
			"wrapper":  false,
			"position": "before",
			"require":  true,
		}))
		defaultAttr(p, "label.attrs.id", fmt.Sprintf("FormField-label--%s_%d", slug, index))
		defaultClass(p, "label.attrs.class", fmt.Sprintf("FormField-label FormField-label--%s FormField-label--%s", fieldType, slug))
		if target := p.GetString("attrs.id"); target != "" {
			p.Set("label.attrs.for", target)
		}
		if !customContent {
			p.Set("label.content", html.EscapeString(f.driver().Title()))
		} else {
			p.Set("label.content", sanitize.Inline(p.GetString("label.content")))
		}
		if p.GetString("label.content") == "" {
			p.Forget("label.content")
		}
		if params.Truthy(p.Pull("label.require")) && params.Truthy(p.Get("required.tagged")) {
			marker, err := f.form.views.Render(view.FieldRequired, f.requiredData())
			if err != nil {
				return fmt.Errorf("form: render required marker of %q: %w", slug, err)
			}
			p.Set("label.content", p.GetString("label.content")+marker)
			p.Forget("required.tagged")
		}
		if params.Truthy(p.Get("label.wrapper")) {
			p.Set("label.wrapper", map[string]any{
				"tag": "div",
				"attrs": map[string]any{
					"id":    fmt.Sprintf("FormField-labelWrapper--%s_%d", slug, index),
					"class": fmt.Sprintf("FormField-labelWrapper FormField-labelWrapper--%s FormField-labelWrapper--%s", fieldType, slug),
				},
			})
		}
	}

	f.rendering = true
	return nil
}

// defaultAttr sets key to value unless declared, then drops falsy values.
func defaultAttr(p *params.Bag, key, value string) {
	if !p.Has(key) {
		p.Set(key, value)
	}
	if !params.Truthy(p.Get(key)) {
		p.Forget(key)
	}
}

// defaultClass sets key to class unless declared. A declared class holding
// "%s" receives class in its place.
func defaultClass(p *params.Bag, key, class string) {
	if !p.Has(key) {
		p.Set(key, class)
	} else if current := p.GetString(key); strings.Contains(current, "%s") {
		p.Set(key, strings.TrimSpace(strings.Replace(current, "%s", class, 1)))
	}
	if !params.Truthy(p.Get(key)) {
		p.Forget(key)
	}
}

func (f *Field) requiredData() map[string]any {
	tagged := params.Map(f.Params().Get("required.tagged"))
	if tagged == nil {
		return map[string]any{}
	}
	tag := params.String(tagged["tag"])
	if tag == "" {
		tag = "span"
	}
	return map[string]any{
		"required": map[string]any{
			"open":    controls.OpenTag(tag, params.Map(tagged["attrs"])),
			"content": params.String(tagged["content"]),
			"close":   "</" + tag + ">",
		},
	}
}

// Render renders the control through the controls registry.
func (f *Field) Render() (string, error) {
	if f.form == nil {
		return "", missingForm(fmt.Sprintf("field %q", f.slug))
	}
	d := f.driver()
	p := f.Params()
	ctl := controls.Control{
		Type:   f.Type(),
		Name:   d.Name(),
		Value:  d.Value(true),
		Attrs:  params.Map(p.Get("attrs")),
		Extras: d.Extras(),
	}
	if d.Supports(SupportChoices) {
		ctl.Choices = controls.ParseChoices(p.Get("choices"))
	}
	return f.form.controls().Render(ctl)
}

// Value returns the current value. Unless raw, strings are HTML escaped.
// Listeners of field.get.value receive a *any they may rewrite.
func (f *Field) Value(raw bool) any {
	value := f.Params().Get("value")
	if f.form != nil {
		f.form.Event("field.get.value", &value, f.driver())
	}
	if raw {
		return value
	}
	return escapeValue(value)
}

func escapeValue(value any) any {
	switch v := value.(type) {
	case string:
		return html.EscapeString(v)
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = html.EscapeString(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = escapeValue(item)
		}
		return out
	}
	return value
}

// Values maps the current value(s) to their choice labels and joins them
// with glue.
func (f *Field) Values(raw bool, glue string) string {
	choices := controls.ParseChoices(f.Params().Get("choices"))
	values := params.Strings(f.driver().Value(true))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if label, ok := controls.Label(choices, value); ok {
			value = label
		}
		if !raw {
			value = html.EscapeString(value)
		}
		out = append(out, value)
	}
	return strings.Join(out, glue)
}

// SetValue stores value. Listeners of field.set.value receive a *any they
// may rewrite.
func (f *Field) SetValue(value any) {
	if f.form != nil {
		f.form.Event("field.set.value", &value, f.driver())
	}
	f.Params().Set("value", value)
}

// ResetValue restores the default value.
func (f *Field) ResetValue() {
	f.Params().Set("value", f.driver().Default())
}

// Default returns the default value. A func(FieldDriver) any default is
// evaluated on each call.
func (f *Field) Default() any {
	if fn, ok := f.defaultValue.(func(FieldDriver) any); ok {
		return fn(f.driver())
	}
	return f.defaultValue
}

func (f *Field) SetDefault(value any) {
	f.defaultValue = value
	f.hasDefault = true
}

func (f *Field) Position() int { return f.Params().GetInt("position") }

func (f *Field) SetPosition(position int) { f.Params().Set("position", position) }

func (f *Field) Supports(flag string) bool {
	return params.Contains(f.SupportsList(), flag)
}

func (f *Field) SupportsList() []string { return f.Params().GetStrings("supports") }

func (f *Field) HasLabel() bool {
	return f.driver().Supports(SupportLabel) && params.Truthy(f.Params().Get("label"))
}

func (f *Field) HasWrapper() bool {
	return f.driver().Supports(SupportWrapper) && params.Truthy(f.Params().Get("wrapper"))
}

// HasNotices reports whether the form holds messages for this field.
func (f *Field) HasNotices(levels ...messages.Level) bool {
	if f.form == nil {
		return false
	}
	return f.form.messages.ExistsForContext(map[string]string{"field": f.slug}, levels...)
}

// AddNotice records a form message scoped to this field.
func (f *Field) AddNotice(level messages.Level, message string) {
	if f.form == nil {
		return
	}
	f.form.messages.Log(level, message, map[string]string{"field": f.slug})
}

// Error records an error message for this field.
func (f *Field) Error(message string) {
	f.driver().AddNotice(messages.Error, message)
}

func (f *Field) Before() string { return f.content("before") }

func (f *Field) After() string { return f.content("after") }

func (f *Field) content(key string) string {
	switch v := f.Params().Get(key).(type) {
	case func(FieldDriver) string:
		return v(f.driver())
	case func() string:
		return v()
	default:
		return params.String(v)
	}
}

// AddonOption returns the field option of an addon; an empty key returns
// every option of the addon.
func (f *Field) AddonOption(alias, key string) any {
	if key == "" {
		return f.Params().Get("addons." + alias)
	}
	return f.Params().Get("addons." + alias + "." + key)
}

// Extras returns the extra control arguments.
func (f *Field) Extras() map[string]any {
	return params.Map(f.Params().Get("extras"))
}

// SetExtra stores one extra control argument.
func (f *Field) SetExtra(key string, value any) {
	f.Params().Set("extras."+key, value)
}

// Group returns the group of the field, nil when the form has no groups.
func (f *Field) Group() *FieldGroup {
	if f.form == nil || f.form.groups == nil {
		return nil
	}
	group, _ := f.form.groups.Get(f.Params().GetString("group"))
	return group
}

func isCallback(v any) bool {
	switch v.(type) {
	case validation.Rule, func(any, ...any) bool, func(any) bool:
		return true
	}
	return false
}
