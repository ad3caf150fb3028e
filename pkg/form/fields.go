package form

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-forms/pkg/params"
)

// FieldsFactory builds the fields declared in the form "fields" param.
type FieldsFactory struct {
	form   *Form
	order  []string
	fields map[string]FieldDriver
	booted bool
}

func newFieldsFactory() *FieldsFactory {
	return &FieldsFactory{fields: make(map[string]FieldDriver)}
}

type fieldDeclaration struct {
	slug   string
	values map[string]any
}

// declarations accepts a list of maps carrying a "slug" key, kept in order,
// or a map keyed by slug ordered by position then slug.
func declarations(raw any) ([]fieldDeclaration, error) {
	if declared := params.Map(raw); declared != nil {
		out := make([]fieldDeclaration, 0, len(declared))
		for slug, values := range declared {
			if values == false {
				continue
			}
			out = append(out, fieldDeclaration{slug: slug, values: params.Map(values)})
		}
		sort.SliceStable(out, func(i, j int) bool {
			pi, pj := params.Int(out[i].values["position"]), params.Int(out[j].values["position"])
			if pi != pj {
				return pi < pj
			}
			return out[i].slug < out[j].slug
		})
		return out, nil
	}

	items := params.List(raw)
	out := make([]fieldDeclaration, 0, len(items))
	for i, item := range items {
		values := params.Map(item)
		if values == nil {
			return nil, fmt.Errorf("form: field declaration %d is not a map", i)
		}
		slug := params.String(values["slug"])
		if slug == "" {
			return nil, fmt.Errorf("form: field declaration %d has no slug", i)
		}
		out = append(out, fieldDeclaration{slug: slug, values: values})
	}
	return out, nil
}

// Boot resolves and boots every declared field. When the form declares
// groups or a field names one, every field is attached to a group.
func (f *FieldsFactory) Boot() error {
	if f.booted {
		return nil
	}
	if f.form == nil {
		return missingForm("fields factory")
	}
	f.form.Event("fields.booting", f)

	decls, err := declarations(f.form.params.Get("fields"))
	if err != nil {
		return err
	}

	grouped := f.form.groups != nil && f.form.groups.Count() > 0
	for _, decl := range decls {
		if _, exists := f.fields[decl.slug]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateField, decl.slug)
		}
		fieldType := params.String(decl.values["type"])
		if fieldType == "" {
			return fmt.Errorf("%w: field %q must have a type", ErrMissingFieldType, decl.slug)
		}

		driver := f.form.manager.fieldDriver(fieldType)
		values := make(map[string]any, len(decl.values))
		for key, value := range decl.values {
			if key != "slug" {
				values[key] = value
			}
		}
		driver.field().bind(driver, f.form, decl.slug, values)
		if err := driver.Boot(); err != nil {
			return fmt.Errorf("form: boot field %q: %w", decl.slug, err)
		}

		f.order = append(f.order, decl.slug)
		f.fields[decl.slug] = driver
		if driver.Params().GetString("group") != "" {
			grouped = true
		}
	}

	if grouped && f.form.groups != nil {
		for _, slug := range f.order {
			f.form.groups.ensure(f.fields[slug].Params().GetString("group"))
		}
	}

	f.booted = true
	f.form.Event("fields.booted", f)
	return nil
}

// IsBooted reports whether Boot ran.
func (f *FieldsFactory) IsBooted() bool { return f.booted }

// All returns the fields in declaration order.
func (f *FieldsFactory) All() []FieldDriver {
	out := make([]FieldDriver, 0, len(f.order))
	for _, slug := range f.order {
		out = append(out, f.fields[slug])
	}
	return out
}

// Sorted returns the fields stable sorted by position.
func (f *FieldsFactory) Sorted() []FieldDriver {
	return sortFields(f.All())
}

func sortFields(fields []FieldDriver) []FieldDriver {
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Position() < fields[j].Position()
	})
	return fields
}

// Get returns the field with slug.
func (f *FieldsFactory) Get(slug string) (FieldDriver, bool) {
	field, ok := f.fields[slug]
	return field, ok
}

// Count returns the number of fields.
func (f *FieldsFactory) Count() int { return len(f.order) }

// FromGroup returns the fields attached to group alias, in declaration order.
func (f *FieldsFactory) FromGroup(alias string) []FieldDriver {
	var out []FieldDriver
	for _, field := range f.All() {
		if group := field.Group(); group != nil && group.Alias() == alias {
			out = append(out, field)
		}
	}
	return out
}

// PreRender prepares every field for rendering.
func (f *FieldsFactory) PreRender() error {
	for _, field := range f.All() {
		if err := field.PreRender(); err != nil {
			return err
		}
	}
	return nil
}

// MetatagsValue replaces every %%slug%% tag with the value of that field.
// Unknown slugs are kept as their bare name. Lists are substituted
// element-wise.
func (f *FieldsFactory) MetatagsValue(tags any, raw bool) any {
	switch v := tags.(type) {
	case string:
		return substituteTags(v, func(slug string) string {
			if field, ok := f.Get(slug); ok {
				return params.String(field.Value(raw))
			}
			return slug
		})
	case []string:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, f.MetatagsValue(item, raw))
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, f.MetatagsValue(item, raw))
		}
		return out
	}
	return tags
}
