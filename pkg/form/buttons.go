package form

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/goliatone/go-forms/pkg/controls"
	"github.com/goliatone/go-forms/pkg/params"
	"github.com/goliatone/go-forms/pkg/sanitize"
)

// SubmitAlias is the alias of the button every form gets unless it opts out.
const SubmitAlias = "submit"

// ButtonDriver is one action button of a form. Custom drivers embed *Button.
type ButtonDriver interface {
	Alias() string
	Form() *Form
	Params() *params.Bag
	Boot() error
	Position() int
	HasWrapper() bool
	PreRender() error
	Render() (string, error)
	Before() string
	After() string
	button() *Button
}

// ButtonFactory builds a fresh button driver.
type ButtonFactory func() ButtonDriver

// Button is the generic button driver.
type Button struct {
	alias  string
	form   *Form
	params *params.Bag

	// Defaults completes the declared params before the built-in defaults.
	Defaults map[string]any

	booted bool
}

// NewButton returns a generic button driver.
func NewButton() ButtonDriver { return &Button{} }

// NewSubmitButton returns the driver of the "submit" button.
func NewSubmitButton() ButtonDriver {
	return &Button{Defaults: map[string]any{
		"label": "Send",
		"type":  controls.TypeSubmit,
	}}
}

func (b *Button) button() *Button { return b }

func (b *Button) bind(form *Form, alias string, values map[string]any) {
	b.form = form
	b.alias = alias
	b.params = params.New(values)
	b.params.Merge(b.Defaults)
	b.params.Merge(map[string]any{
		"after":    "",
		"attrs":    map[string]any{},
		"before":   "",
		"label":    "",
		"position": 0,
		"type":     "",
		"wrapper":  true,
	})
}

func (b *Button) Alias() string { return b.alias }

func (b *Button) Form() *Form { return b.form }

// Params returns the button params bag.
func (b *Button) Params() *params.Bag {
	if b.params == nil {
		b.params = params.New(nil)
	}
	return b.params
}

// Boot requires a form. Later calls are no-ops.
func (b *Button) Boot() error {
	if b.booted {
		return nil
	}
	if b.form == nil {
		return missingForm(fmt.Sprintf("button %q", b.alias))
	}
	b.booted = true
	return nil
}

func (b *Button) Position() int { return b.Params().GetInt("position") }

func (b *Button) HasWrapper() bool { return params.Truthy(b.Params().Get("wrapper")) }

func (b *Button) Before() string { return b.Params().GetString("before") }

func (b *Button) After() string { return b.Params().GetString("after") }

// PreRender completes the wrapper with its default tag, id and class.
func (b *Button) PreRender() error {
	if b.form == nil {
		return missingForm(fmt.Sprintf("button %q", b.alias))
	}
	p := b.Params()
	wrapper := p.Get("wrapper")
	if !params.Truthy(wrapper) {
		return nil
	}
	p.Set("wrapper", params.MergeDefaults(params.Map(wrapper), map[string]any{"tag": "div", "attrs": map[string]any{}}))
	defaultAttr(p, "wrapper.attrs.id", fmt.Sprintf("FormButton--%s_%d", b.alias, b.form.Index()))
	defaultClass(p, "wrapper.attrs.class", "FormButton FormButton--"+b.alias)
	return nil
}

// Render renders the button control. A "submit" type renders a submit
// button; any other type is set as the type attribute of a plain button.
func (b *Button) Render() (string, error) {
	if b.form == nil {
		return "", missingForm(fmt.Sprintf("button %q", b.alias))
	}
	p := b.Params()
	ctl := controls.Control{
		Type:    controls.TypeButton,
		Attrs:   params.Map(p.Get("attrs")),
		Content: sanitize.Inline(p.GetString("label")),
	}
	switch buttonType := p.GetString("type"); buttonType {
	case "":
	case controls.TypeSubmit:
		ctl.Type = controls.TypeSubmit
	default:
		if ctl.Attrs == nil {
			ctl.Attrs = map[string]any{}
		}
		ctl.Attrs["type"] = buttonType
	}
	return b.form.controls().Render(ctl)
}

// ButtonsFactory builds the buttons declared in the form "buttons" param.
type ButtonsFactory struct {
	form    *Form
	buttons []ButtonDriver
	booted  bool
}

func newButtonsFactory() *ButtonsFactory {
	return &ButtonsFactory{}
}

type buttonDeclaration struct {
	alias  string
	values map[string]any
}

// buttonDeclarations reads a map keyed by alias (a numeric key with a string
// value names an alias without params) or a list of aliases and maps. False
// params skip the button. A submit button is appended unless declared.
func buttonDeclarations(raw any) []buttonDeclaration {
	var out []buttonDeclaration
	seen := map[string]bool{}
	add := func(alias string, value any) {
		if alias == "" || seen[alias] {
			return
		}
		seen[alias] = true
		if value == false {
			return
		}
		out = append(out, buttonDeclaration{alias: alias, values: params.Map(value)})
	}

	if declared := params.Map(raw); declared != nil {
		keys := make([]string, 0, len(declared))
		for key := range declared {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			value := declared[key]
			if _, err := strconv.Atoi(key); err == nil {
				if alias, ok := value.(string); ok {
					add(alias, nil)
				}
				continue
			}
			add(key, value)
		}
	} else {
		for _, item := range params.List(raw) {
			if alias, ok := item.(string); ok {
				add(alias, nil)
				continue
			}
			values := params.Map(item)
			if values == nil {
				continue
			}
			add(params.String(values["alias"]), values)
		}
	}

	if !seen[SubmitAlias] {
		add(SubmitAlias, nil)
	}
	return out
}

// Boot resolves the declared buttons. When at least one button has a
// position, unpositioned buttons are placed after the highest one. Buttons
// end up stable sorted by position.
func (f *ButtonsFactory) Boot() error {
	if f.booted {
		return nil
	}
	if f.form == nil {
		return missingForm("buttons factory")
	}
	f.form.Event("buttons.booting", f)

	var buttons []ButtonDriver
	for _, decl := range buttonDeclarations(f.form.params.Get("buttons")) {
		driver := f.form.manager.buttonDriver(decl.alias)
		values := decl.values
		if values != nil {
			values = params.MergeDefaults(nil, values)
			delete(values, "alias")
		}
		driver.button().bind(f.form, decl.alias, values)
		if err := driver.Boot(); err != nil {
			return fmt.Errorf("form: boot button %q: %w", decl.alias, err)
		}
		buttons = append(buttons, driver)
	}

	highest := 0
	for _, button := range buttons {
		if p := button.Position(); p > highest {
			highest = p
		}
	}
	if highest > 0 {
		pad := 0
		for _, button := range buttons {
			if button.Position() == 0 {
				pad++
				button.Params().Set("position", pad+highest)
			}
		}
	}
	sort.SliceStable(buttons, func(i, j int) bool {
		return buttons[i].Position() < buttons[j].Position()
	})
	f.buttons = buttons

	f.booted = true
	f.form.Event("buttons.booted", f)
	return nil
}

// IsBooted reports whether Boot ran.
func (f *ButtonsFactory) IsBooted() bool { return f.booted }

// All returns the buttons sorted by position.
func (f *ButtonsFactory) All() []ButtonDriver {
	return append([]ButtonDriver(nil), f.buttons...)
}

// Get returns the button registered under alias.
func (f *ButtonsFactory) Get(alias string) (ButtonDriver, bool) {
	for _, button := range f.buttons {
		if button.Alias() == alias {
			return button, true
		}
	}
	return nil, false
}

// Count returns the number of buttons.
func (f *ButtonsFactory) Count() int { return len(f.buttons) }
