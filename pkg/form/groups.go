package form

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-forms/pkg/controls"
	"github.com/goliatone/go-forms/pkg/params"
)

// FieldGroup gathers fields for layout.
type FieldGroup struct {
	alias  string
	form   *Form
	groups *FieldGroupsFactory
	params *params.Bag
	booted bool
}

func (g *FieldGroup) Alias() string { return g.alias }

func (g *FieldGroup) Form() *Form { return g.form }

func (g *FieldGroup) Params() *params.Bag { return g.params }

func (g *FieldGroup) Position() int { return g.params.GetInt("position") }

func (g *FieldGroup) Before() string { return g.params.GetString("before") }

func (g *FieldGroup) After() string { return g.params.GetString("after") }

// Attrs returns the rendered HTML attributes of the group container.
func (g *FieldGroup) Attrs() string {
	return controls.HTMLAttrs(g.params.GetMap("attrs"))
}

// Parent resolves the "parent" param.
func (g *FieldGroup) Parent() *FieldGroup {
	alias := g.params.GetString("parent")
	if alias == "" || alias == g.alias {
		return nil
	}
	parent, _ := g.groups.Get(alias)
	return parent
}

// Fields returns the fields of the group sorted by position.
func (g *FieldGroup) Fields() []FieldDriver {
	if g.form == nil || g.form.fields == nil {
		return nil
	}
	return sortFields(g.form.fields.FromGroup(g.alias))
}

// Boot applies the default class. It fires group.booting and group.booted.
func (g *FieldGroup) Boot() error {
	if g.booted {
		return nil
	}
	if g.form == nil {
		return missingForm(fmt.Sprintf("group %q", g.alias))
	}
	g.form.Event("group.booting", g)
	defaultClass(g.params, "attrs.class", "FormFieldsGroup FormFieldsGroup--"+g.alias)
	g.booted = true
	g.form.Event("group.booted", g)
	return nil
}

// FieldGroupsFactory owns the groups of a form and numbers the grouped
// fields.
type FieldGroupsFactory struct {
	form   *Form
	order  []string
	groups map[string]*FieldGroup
	booted bool
}

func newFieldGroupsFactory() *FieldGroupsFactory {
	return &FieldGroupsFactory{groups: make(map[string]*FieldGroup)}
}

// declare registers the groups of the form "groups" param: a map keyed by
// alias or a list of maps carrying an "alias" key.
func (f *FieldGroupsFactory) declare(raw any) error {
	if declared := params.Map(raw); declared != nil {
		aliases := make([]string, 0, len(declared))
		for alias := range declared {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)
		for _, alias := range aliases {
			if declared[alias] == false {
				continue
			}
			f.set(alias, params.Map(declared[alias]))
		}
		return nil
	}
	for i, item := range params.List(raw) {
		values := params.Map(item)
		if values == nil {
			if alias := params.String(item); alias != "" {
				f.set(alias, nil)
				continue
			}
			return fmt.Errorf("form: group declaration %d is not a map", i)
		}
		alias := params.String(values["alias"])
		if alias == "" {
			return fmt.Errorf("form: group declaration %d has no alias", i)
		}
		f.set(alias, values)
	}
	return nil
}

func (f *FieldGroupsFactory) set(alias string, values map[string]any) *FieldGroup {
	group := &FieldGroup{alias: alias, form: f.form, groups: f}
	group.params = params.New(values)
	group.params.Forget("alias")
	group.params.Merge(map[string]any{
		"after":    "",
		"before":   "",
		"attrs":    map[string]any{},
		"parent":   "",
		"position": 0,
	})
	if _, exists := f.groups[alias]; !exists {
		f.order = append(f.order, alias)
	}
	f.groups[alias] = group
	return group
}

// ensure returns the group alias, creating an empty one when missing.
func (f *FieldGroupsFactory) ensure(alias string) *FieldGroup {
	if group, ok := f.groups[alias]; ok {
		return group
	}
	return f.set(alias, nil)
}

// Boot boots every group, positions unpositioned groups after the highest
// declared position, then numbers the grouped fields.
func (f *FieldGroupsFactory) Boot() error {
	if f.booted {
		return nil
	}
	if f.form == nil {
		return missingForm("groups factory")
	}
	f.form.Event("groups.booting", f)

	groupMax := 0
	for _, group := range f.groups {
		if p := group.Position(); p > groupMax {
			groupMax = p
		}
	}

	pad := 0
	for _, alias := range f.order {
		group := f.groups[alias]
		group.form = f.form
		if err := group.Boot(); err != nil {
			return err
		}
		if group.Position() == 0 {
			pad++
			group.params.Set("position", pad+groupMax)
		}

		fields := group.form.fields.FromGroup(alias)
		fieldMax := 0
		for _, field := range fields {
			if p := field.Position(); p > fieldMax {
				fieldMax = p
			}
		}
		fieldPad := 0
		base := 10000 * (group.Position() + 1)
		for _, field := range fields {
			position := field.Position()
			if position == 0 {
				fieldPad++
				position = fieldPad + fieldMax
			}
			field.SetPosition(base + position)
		}
	}

	f.booted = true
	f.form.Event("groups.booted", f)
	return nil
}

// IsBooted reports whether Boot ran.
func (f *FieldGroupsFactory) IsBooted() bool { return f.booted }

// All returns the groups in declaration order.
func (f *FieldGroupsFactory) All() []*FieldGroup {
	out := make([]*FieldGroup, 0, len(f.order))
	for _, alias := range f.order {
		out = append(out, f.groups[alias])
	}
	return out
}

// Sorted returns the groups stable sorted by position.
func (f *FieldGroupsFactory) Sorted() []*FieldGroup {
	out := f.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position() < out[j].Position()
	})
	return out
}

// Get returns the group registered under alias.
func (f *FieldGroupsFactory) Get(alias string) (*FieldGroup, bool) {
	group, ok := f.groups[alias]
	return group, ok
}

// Count returns the number of groups.
func (f *FieldGroupsFactory) Count() int { return len(f.order) }
