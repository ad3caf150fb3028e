package form

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-forms/pkg/params"
	"github.com/goliatone/go-forms/pkg/validation"
)

var tagPattern = regexp.MustCompile(`%%(.*?)%%`)

// ValidateFactory resolves validation callbacks for the fields of a form.
type ValidateFactory struct {
	form    *Form
	library *validation.Library
	booted  bool
}

func newValidateFactory(library *validation.Library) *ValidateFactory {
	if library == nil {
		library = validation.Default()
	}
	return &ValidateFactory{library: library}
}

// Boot fires validate.booting and validate.booted.
func (f *ValidateFactory) Boot() error {
	if f.booted {
		return nil
	}
	if f.form == nil {
		return missingForm("validate factory")
	}
	f.form.Event("validate.booting", f)
	f.booted = true
	f.form.Event("validate.booted", f)
	return nil
}

// IsBooted reports whether Boot ran.
func (f *ValidateFactory) IsBooted() bool { return f.booted }

// Call runs callback against value. String callbacks name a library rule,
// the "default" or "compare" rule, or a function registered on the manager,
// looked up in that order; a leading "!" negates the result. Unknown rules
// fail. Function callbacks are called directly.
func (f *ValidateFactory) Call(callback any, value any, args []any) bool {
	switch cb := callback.(type) {
	case string:
		name := strings.TrimSpace(cb)
		negate := strings.HasPrefix(name, "!")
		if negate {
			name = strings.TrimSpace(name[1:])
		}
		valid, ok := f.lookup(name, value, args)
		if !ok {
			return false
		}
		return valid != negate
	case validation.Rule:
		return cb(value, args...)
	case func(any, ...any) bool:
		return cb(value, args...)
	case func(any) bool:
		return cb(value)
	}
	return false
}

func (f *ValidateFactory) lookup(name string, value any, args []any) (valid bool, ok bool) {
	if name == "" {
		return false, false
	}
	if valid, ok := f.library.Validate(name, value, args...); ok {
		return valid, true
	}
	switch strings.ToLower(name) {
	case "default":
		return true, true
	case "compare":
		var tags any
		if len(args) > 0 {
			tags = args[0]
		}
		return f.Compare(value, tags), true
	}
	if f.form != nil && f.form.manager != nil {
		if rule, ok := f.form.manager.function(name); ok {
			return rule(value, args...), true
		}
	}
	return false, false
}

// Compare reports whether value equals tags once every %%name%% tag is
// replaced by the submitted value of that name.
func (f *ValidateFactory) Compare(value any, tags any) bool {
	expected := f.RequestTagValue(tags)
	valid, ok := f.library.Validate("equals", value, expected)
	if !ok {
		return params.String(value) == params.String(expected)
	}
	return valid
}

// RequestTagValue substitutes %%name%% tags with submitted values. A tag
// without a submitted value is replaced by its own name. Lists are
// substituted element-wise.
func (f *ValidateFactory) RequestTagValue(tags any) any {
	switch v := tags.(type) {
	case string:
		return substituteTags(v, func(tag string) string {
			if f.form == nil || f.form.handle == nil {
				return tag
			}
			return params.String(f.form.handle.Data(tag, tag))
		})
	case []string:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, f.RequestTagValue(item))
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, f.RequestTagValue(item))
		}
		return out
	}
	return tags
}

func substituteTags(s string, resolve func(tag string) string) string {
	return tagPattern.ReplaceAllStringFunc(s, func(match string) string {
		return resolve(match[2 : len(match)-2])
	})
}
