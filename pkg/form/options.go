package form

import (
	"github.com/goliatone/go-forms/pkg/params"
)

// DefaultSuccessMessage is shown after a successful submission unless the
// "success.message" option overrides it.
const DefaultSuccessMessage = "Your request has been taken into account and will be processed as soon as possible."

func defaultOptions() map[string]any {
	return map[string]any{
		"anchor": false,
		"error": map[string]any{
			"title":       "",
			"show":        -1,
			"teaser":      "...",
			"field":       false,
			"dismissible": false,
		},
		"success": map[string]any{
			"message": DefaultSuccessMessage,
		},
	}
}

// OptionsFactory holds the form "options" param completed with addon and
// built-in defaults.
type OptionsFactory struct {
	form   *Form
	bag    *params.Bag
	booted bool
}

func newOptionsFactory() *OptionsFactory {
	return &OptionsFactory{bag: params.New(nil)}
}

// Boot merges declared options over addon form defaults over the built-in
// defaults. It fires options.booting and options.booted.
func (f *OptionsFactory) Boot() error {
	if f.booted {
		return nil
	}
	if f.form == nil {
		return missingForm("options factory")
	}
	f.form.Event("options.booting", f)

	declared := params.Map(f.form.params.Get("options"))
	defaults := defaultOptions()
	if f.form.addons != nil {
		for _, addon := range f.form.addons.All() {
			defaults = params.MergeDefaults(addon.DefaultFormOptions(), defaults)
		}
	}
	f.bag = params.New(params.MergeDefaults(declared, defaults))

	f.booted = true
	f.form.Event("options.booted", f)
	return nil
}

// IsBooted reports whether Boot ran.
func (f *OptionsFactory) IsBooted() bool { return f.booted }

// Get resolves a dot path option.
func (f *OptionsFactory) Get(key string) any { return f.bag.Get(key) }

// GetOr resolves a dot path option with a fallback.
func (f *OptionsFactory) GetOr(key string, fallback any) any { return f.bag.GetOr(key, fallback) }

func (f *OptionsFactory) Has(key string) bool { return f.bag.Has(key) }

func (f *OptionsFactory) Set(key string, value any) { f.bag.Set(key, value) }

// All returns every option.
func (f *OptionsFactory) All() map[string]any { return f.bag.All() }
