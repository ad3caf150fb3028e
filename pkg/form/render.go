package form

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/goliatone/go-forms/pkg/controls"
	"github.com/goliatone/go-forms/pkg/messages"
	"github.com/goliatone/go-forms/pkg/params"
	"github.com/goliatone/go-forms/pkg/view"
)

// RenderBuild completes the form attributes and wrapper and settles the
// notices: recorded messages win over flashed ones, and a successful form
// shows its success message once. It runs once per form.
func (f *Form) RenderBuild() error {
	if f.rendered {
		return nil
	}
	if err := f.Boot(); err != nil {
		return err
	}
	p := f.params
	tag := f.TagName()

	defaultAttr(p, "attrs.id", "FormContent--"+tag)
	defaultClass(p, "attrs.class", "FormContent FormContent--"+tag)
	p.Set("attrs.action", f.Action())
	p.Set("attrs.method", f.Method())
	if enctype := p.GetString("enctype"); enctype != "" {
		p.Set("attrs.enctype", enctype)
	}

	if f.HasWrapper() {
		p.Set("wrapper", params.MergeDefaults(p.GetMap("wrapper"), map[string]any{"tag": "div"}))
		if !p.Has("wrapper.attrs.id") {
			p.Set("wrapper.attrs.id", "Form--"+tag)
		}
		if !p.Has("wrapper.attrs.class") {
			p.Set("wrapper.attrs.class", "Form")
		}
	}

	if f.messages.Count() > 0 {
		f.session.Remove("notices")
	} else if notices := f.session.Pull("notices"); notices != nil {
		f.messages.Import(notices)
	}
	if f.successful {
		if !f.messages.Exists(messages.Success) {
			f.messages.Success(params.String(f.Option("success.message")))
		}
		f.session.Clear()
	} else {
		f.session.Remove("notices")
	}

	f.rendered = true
	return nil
}

// Render renders the form through the index view.
func (f *Form) Render() (string, error) {
	_, span := f.tracer().Start(f.renderContext(), "forms.render")
	defer span.End()
	span.SetAttributes(attribute.String("form.alias", f.alias))
	start := time.Now()

	out, err := f.render()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render")
		return "", err
	}
	f.observer().Rendered(f.alias, time.Since(start))
	return out, nil
}

func (f *Form) render() (string, error) {
	if err := f.RenderBuild(); err != nil {
		return "", err
	}
	if err := f.fields.PreRender(); err != nil {
		return "", err
	}

	notices, err := f.renderNotices()
	if err != nil {
		return "", err
	}

	formData, err := f.formData()
	if err != nil {
		return "", err
	}

	header, err := f.views.Render(view.Header, map[string]any{"form": formData})
	if err != nil {
		return "", err
	}
	body, err := f.renderBody()
	if err != nil {
		return "", err
	}
	footer, err := f.renderFooter()
	if err != nil {
		return "", err
	}

	return f.views.Render(view.Index, map[string]any{
		"form":    formData,
		"csrf":    formData["token"] != "",
		"notices": notices,
		"header":  header,
		"body":    body,
		"footer":  footer,
		"scripts": f.scripts(),
	})
}

func (f *Form) formData() (map[string]any, error) {
	data := map[string]any{
		"alias":   f.alias,
		"tag":     f.TagName(),
		"title":   f.Title(),
		"heading": params.String(f.Option("heading")),
		"attrs":   controls.HTMLAttrs(f.params.GetMap("attrs")),
		"before":  f.Before(),
		"after":   f.After(),
		"token":   "",
	}
	if f.HasWrapper() {
		data["wrapper"] = openClose(f.params.GetMap("wrapper"), "div")
	}
	if token := f.CSRF(); token != "" {
		field, err := f.controls().Render(controls.Control{
			Type:  controls.TypeHidden,
			Name:  TokenKey,
			Value: token,
		})
		if err != nil {
			return nil, fmt.Errorf("form: %q: render token field: %w", f.alias, err)
		}
		data["token"] = token
		data["token_field"] = field
	}
	return data, nil
}

// openClose renders the opening and closing tags of a {tag, attrs} map.
func openClose(wrap map[string]any, fallback string) map[string]any {
	tag := params.String(wrap["tag"])
	if tag == "" {
		tag = fallback
	}
	return map[string]any{
		"open":  controls.OpenTag(tag, params.Map(wrap["attrs"])),
		"close": "</" + tag + ">",
	}
}

// renderNotices renders every level holding messages. The "error.show"
// option caps the error list; "error.teaser" marks the cut.
func (f *Form) renderNotices() (string, error) {
	fetched := f.messages.Fetch()
	levels := make([]any, 0, len(fetched))
	for _, level := range messages.Levels {
		items := fetched[string(level)]
		if len(items) == 0 {
			continue
		}
		if level == messages.Error {
			if show := params.Int(f.Option("error.show")); show > 0 && len(items) > show {
				items = append(items[:show:show], params.String(f.Option("error.teaser")))
			}
			if title := params.String(f.Option("error.title")); title != "" {
				items = append([]string{title}, items...)
			}
		}
		out, err := f.views.Render(view.NoticesView(string(level)), map[string]any{"messages": items})
		if err != nil {
			return "", err
		}
		levels = append(levels, out)
	}
	if len(levels) == 0 {
		return "", nil
	}
	return f.views.Render(view.Notices, map[string]any{"levels": levels})
}

func (f *Form) renderBody() (string, error) {
	if f.groups.Count() > 0 {
		groups := make([]any, 0, f.groups.Count())
		for _, group := range f.groups.Sorted() {
			out, err := f.renderGroup(group)
			if err != nil {
				return "", err
			}
			groups = append(groups, out)
		}
		rendered, err := f.views.Render(view.Groups, map[string]any{"groups": groups})
		if err != nil {
			return "", err
		}
		return f.views.Render(view.Body, map[string]any{"groups": rendered})
	}

	fields, err := f.renderFields(f.fields.Sorted())
	if err != nil {
		return "", err
	}
	return f.views.Render(view.Body, map[string]any{"fields": fields})
}

func (f *Form) renderGroup(group *FieldGroup) (string, error) {
	fields, err := f.renderFields(group.Fields())
	if err != nil {
		return "", err
	}
	return f.views.Render(view.Group, map[string]any{
		"group": map[string]any{
			"alias":  group.Alias(),
			"before": group.Before(),
			"attrs":  group.Attrs(),
			"fields": fields,
			"after":  group.After(),
		},
	})
}

func (f *Form) renderFields(fields []FieldDriver) ([]any, error) {
	out := make([]any, 0, len(fields))
	for _, field := range fields {
		rendered, err := f.renderField(field)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered)
	}
	return out, nil
}

func (f *Form) renderField(field FieldDriver) (string, error) {
	control, err := field.Render()
	if err != nil {
		return "", fmt.Errorf("form: %q: render field %q: %w", f.alias, field.Slug(), err)
	}
	p := field.Params()

	label := ""
	if field.HasLabel() {
		label, err = f.renderLabel(field)
		if err != nil {
			return "", err
		}
	}

	data := map[string]any{
		"slug":           field.Slug(),
		"type":           field.Type(),
		"before":         field.Before(),
		"after":          field.After(),
		"label":          label,
		"label_position": p.GetString("label.position"),
		"control":        control,
	}
	if field.HasWrapper() {
		data["wrapper"] = openClose(p.GetMap("wrapper"), "div")
	}
	return f.views.Render(view.Field, map[string]any{"field": data})
}

func (f *Form) renderLabel(field FieldDriver) (string, error) {
	p := field.Params()
	ctl := controls.Control{
		Type:    controls.TypeLabel,
		Attrs:   p.GetMap("label.attrs"),
		Content: p.GetString("label.content"),
	}
	if tag := p.GetString("label.tag"); tag != "" && tag != "label" {
		ctl.Type = controls.TypeTag
		ctl.Extras = map[string]any{"tag": tag}
	}
	if ctl.Content == "" {
		ctl.Content = html.EscapeString(field.Title())
	}
	control, err := f.controls().Render(ctl)
	if err != nil {
		return "", fmt.Errorf("form: %q: render label of %q: %w", f.alias, field.Slug(), err)
	}
	data := map[string]any{
		"has_label":     true,
		"label_control": control,
	}
	if wrapper := p.GetMap("label.wrapper"); wrapper != nil {
		data["label_wrapper"] = openClose(wrapper, "div")
	}
	return f.views.Render(view.FieldLabel, map[string]any{"field": data})
}

func (f *Form) renderFooter() (string, error) {
	buttons := make([]any, 0, f.buttons.Count())
	for _, button := range f.buttons.All() {
		if err := button.PreRender(); err != nil {
			return "", err
		}
		control, err := button.Render()
		if err != nil {
			return "", fmt.Errorf("form: %q: render button %q: %w", f.alias, button.Alias(), err)
		}
		data := map[string]any{
			"alias":   button.Alias(),
			"before":  button.Before(),
			"control": control,
			"after":   button.After(),
		}
		if button.HasWrapper() {
			data["wrapper"] = openClose(button.Params().GetMap("wrapper"), "div")
		}
		out, err := f.views.Render(view.Button, map[string]any{"button": data})
		if err != nil {
			return "", err
		}
		buttons = append(buttons, out)
	}
	rendered, err := f.views.Render(view.Buttons, map[string]any{"buttons": buttons})
	if err != nil {
		return "", err
	}
	return f.views.Render(view.Footer, map[string]any{"buttons": rendered})
}

// scripts returns the stylesheet and script tags of the controls in use,
// followed by the theme assets registered as "forms.<type>".
func (f *Form) scripts() []any {
	seen := map[string]bool{}
	var types []string
	for _, field := range f.fields.All() {
		if fieldType := field.Type(); !seen[fieldType] {
			seen[fieldType] = true
			types = append(types, fieldType)
		}
	}
	sort.Strings(types)

	var out []any
	assets := f.controls().Assets(types)
	for _, href := range assets.Stylesheets {
		out = append(out, controls.OpenTag("link", map[string]any{"rel": "stylesheet", "href": href}))
	}
	for _, script := range assets.Scripts {
		out = append(out, scriptTag(script))
	}
	for _, fieldType := range types {
		if src := f.views.AssetURL("forms." + fieldType); src != "" {
			out = append(out, scriptTag(controls.Script{Src: src, Defer: true}))
		}
	}
	return out
}

func scriptTag(script controls.Script) string {
	attrs := map[string]any{}
	if script.Src != "" {
		attrs["src"] = script.Src
	}
	if script.Module {
		attrs["type"] = "module"
	}
	if script.Defer && script.Src != "" {
		attrs["defer"] = true
	}
	var b strings.Builder
	b.WriteString(controls.OpenTag("script", attrs))
	if script.Src == "" {
		b.WriteString(script.Inline)
	}
	b.WriteString("</script>")
	return b.String()
}
