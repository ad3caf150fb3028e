package form

import (
	"github.com/goliatone/go-forms/pkg/controls"
	"github.com/goliatone/go-forms/pkg/params"
	"github.com/goliatone/go-forms/pkg/sanitize"
)

// HTMLField renders its value as sanitized markup. The value may be a
// func() string evaluated at render time.
type HTMLField struct {
	Field
}

// NewHTMLField returns the driver of the "html" type.
func NewHTMLField() FieldDriver {
	return &HTMLField{Field: Field{DefaultSupports: []string{}}}
}

// Render evaluates the value and sanitizes it.
func (f *HTMLField) Render() (string, error) {
	if f.form == nil {
		return "", missingForm("html field " + f.slug)
	}
	var content string
	switch v := f.Value(true).(type) {
	case func() string:
		content = v()
	case func(FieldDriver) string:
		content = v(f)
	default:
		content = params.String(v)
	}
	return sanitize.HTML(content), nil
}

// TagField renders an element (div unless the "tag" extra says otherwise)
// holding its value.
type TagField struct {
	Field
}

// NewTagField returns the driver of the "tag" type.
func NewTagField() FieldDriver {
	return &TagField{Field: Field{DefaultSupports: []string{SupportWrapper}}}
}

func (f *TagField) Render() (string, error) {
	if f.form == nil {
		return "", missingForm("tag field " + f.slug)
	}
	extras := f.Extras()
	if extras == nil {
		extras = map[string]any{}
	}
	if _, ok := extras["tag"]; !ok {
		extras["tag"] = "div"
	}
	return f.form.controls().Render(controls.Control{
		Type:    controls.TypeTag,
		Name:    f.Name(),
		Attrs:   params.Map(f.Params().Get("attrs")),
		Extras:  extras,
		Content: sanitize.HTML(params.String(f.Value(true))),
	})
}
