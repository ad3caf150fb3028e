package form

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-forms/pkg/params"
)

// AddonDriver plugs behavior into a form. Custom addons embed *Addon and
// override the default option hooks.
type AddonDriver interface {
	Alias() string
	Form() *Form
	Params() *params.Bag
	Boot() error
	DefaultFormOptions() map[string]any
	DefaultFieldOptions() map[string]any
	addon() *Addon
}

// AddonFactory builds a fresh addon driver per form.
type AddonFactory func() AddonDriver

// Addon is the base addon driver.
type Addon struct {
	alias  string
	form   *Form
	params *params.Bag
	booted bool
}

// NewAddon returns an addon without defaults.
func NewAddon() AddonDriver { return &Addon{} }

func (a *Addon) addon() *Addon { return a }

func (a *Addon) Alias() string { return a.alias }

func (a *Addon) Form() *Form { return a.form }

// Params returns the addon params declared by the form.
func (a *Addon) Params() *params.Bag {
	if a.params == nil {
		a.params = params.New(nil)
	}
	return a.params
}

// Boot marks the addon booted. The form is required.
func (a *Addon) Boot() error {
	if a.booted {
		return nil
	}
	if a.form == nil {
		return missingForm(fmt.Sprintf("addon %q", a.alias))
	}
	a.booted = true
	return nil
}

// DefaultFormOptions are merged under the form options.
func (a *Addon) DefaultFormOptions() map[string]any { return nil }

// DefaultFieldOptions are merged under "addons.<alias>" of every field.
func (a *Addon) DefaultFieldOptions() map[string]any { return nil }

// AddonsFactory resolves the addons declared in the form "addons" param.
type AddonsFactory struct {
	form   *Form
	order  []string
	addons map[string]AddonDriver
	booted bool
}

func newAddonsFactory() *AddonsFactory {
	return &AddonsFactory{addons: make(map[string]AddonDriver)}
}

// Boot resolves every declared addon through the manager. Unknown aliases
// are an error.
func (f *AddonsFactory) Boot() error {
	if f.booted {
		return nil
	}
	if f.form == nil {
		return missingForm("addons factory")
	}
	f.form.Event("addons.booting", f)

	declared := params.Map(f.form.params.Get("addons"))
	aliases := make([]string, 0, len(declared))
	for alias := range declared {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		raw := declared[alias]
		if raw == false {
			continue
		}
		driver, err := f.form.manager.addonDriver(alias)
		if err != nil {
			return err
		}
		base := driver.addon()
		base.alias = alias
		base.form = f.form
		base.params = params.New(params.Map(raw))
		if err := driver.Boot(); err != nil {
			return fmt.Errorf("form: boot addon %q: %w", alias, err)
		}
		f.order = append(f.order, alias)
		f.addons[alias] = driver
	}

	f.booted = true
	f.form.Event("addons.booted", f)
	return nil
}

// IsBooted reports whether Boot ran.
func (f *AddonsFactory) IsBooted() bool { return f.booted }

// All returns the addons sorted by alias.
func (f *AddonsFactory) All() []AddonDriver {
	out := make([]AddonDriver, 0, len(f.order))
	for _, alias := range f.order {
		out = append(out, f.addons[alias])
	}
	return out
}

// Get returns the addon registered under alias.
func (f *AddonsFactory) Get(alias string) (AddonDriver, bool) {
	driver, ok := f.addons[alias]
	return driver, ok
}

// Count returns the number of booted addons.
func (f *AddonsFactory) Count() int { return len(f.order) }
