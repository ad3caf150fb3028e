package definition

import (
	"fmt"

	"github.com/goliatone/go-forms/pkg/form"
)

// Issue is a problem found while checking a definition.
type Issue struct {
	Alias  string
	Field  string
	Source string
	Err    error
}

func (i Issue) Error() string {
	location := i.Alias
	if i.Field != "" {
		location += "." + i.Field
	}
	if i.Source != "" {
		return fmt.Sprintf("%s (%s): %v", location, i.Source, i.Err)
	}
	return fmt.Sprintf("%s: %v", location, i.Err)
}

func (i Issue) Unwrap() error { return i.Err }

// Check builds and renders every definition on a fresh manager created
// with options, reporting what fails. Fields whose type has no control
// renderer are reported too.
func Check(defs []Definition, options ...form.Option) ([]Issue, error) {
	m, err := form.NewManager(options...)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	var registered []Definition
	for _, def := range defs {
		if err := m.RegisterForm(def.Alias, def.Clone().Params); err != nil {
			issues = append(issues, Issue{Alias: def.Alias, Source: def.Source, Err: err})
			continue
		}
		registered = append(registered, def)
	}

	for _, def := range registered {
		f, err := m.Get(def.Alias)
		if err != nil {
			issues = append(issues, Issue{Alias: def.Alias, Source: def.Source, Err: err})
			continue
		}
		for _, field := range f.Fields().All() {
			if !m.Controls().Has(field.Type()) {
				issues = append(issues, Issue{
					Alias:  def.Alias,
					Field:  field.Slug(),
					Source: def.Source,
					Err:    fmt.Errorf("unknown field type %q", field.Type()),
				})
			}
		}
		if _, err := f.Render(); err != nil {
			issues = append(issues, Issue{Alias: def.Alias, Source: def.Source, Err: err})
		}
	}
	return issues, nil
}
