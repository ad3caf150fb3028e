package controls

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/goliatone/go-forms/pkg/params"
	"github.com/goliatone/go-forms/pkg/sanitize"
)

// NewDefaultRegistry returns a registry holding every built-in control.
func NewDefaultRegistry() *Registry {
	registry := New()

	for name := range inputTypes {
		registry.MustRegister(name, Descriptor{Renderer: inputRenderer})
	}
	registry.MustRegister(TypeTextarea, Descriptor{Renderer: textareaRenderer})
	registry.MustRegister(TypeSelect, Descriptor{Renderer: selectRenderer})
	registry.MustRegister(TypeSelectJS, Descriptor{Renderer: selectRenderer})
	registry.MustRegister(TypeCheckbox, Descriptor{Renderer: checkableRenderer("checkbox")})
	registry.MustRegister(TypeRadio, Descriptor{Renderer: checkableRenderer("radio")})
	registry.MustRegister(TypeToggleSwitch, Descriptor{Renderer: toggleSwitchRenderer})
	registry.MustRegister(TypeCheckboxCollection, Descriptor{Renderer: collectionRenderer("checkbox")})
	registry.MustRegister(TypeRadioCollection, Descriptor{Renderer: collectionRenderer("radio")})
	registry.MustRegister(TypeSubmit, Descriptor{Renderer: buttonRenderer})
	registry.MustRegister(TypeButton, Descriptor{Renderer: buttonRenderer})
	registry.MustRegister(TypeLabel, Descriptor{Renderer: labelRenderer})
	registry.MustRegister(TypeHTML, Descriptor{Renderer: htmlRenderer})
	registry.MustRegister(TypeTag, Descriptor{Renderer: tagRenderer})
	registry.MustRegister(TypeRepeater, Descriptor{Renderer: repeaterRenderer})

	return registry
}

func inputRenderer(buf *bytes.Buffer, ctl Control) error {
	inputType, ok := inputTypes[normalize(ctl.Type)]
	if !ok {
		inputType = "text"
	}
	attrs := cloneAttrs(ctl.Attrs)
	attrs["type"] = inputType
	attrs["name"] = ctl.Name
	switch inputType {
	case "password", "file":
		delete(attrs, "value")
	default:
		attrs["value"] = params.String(ctl.Value)
	}
	writeVoid(buf, "input", attrs)
	return nil
}

func textareaRenderer(buf *bytes.Buffer, ctl Control) error {
	attrs := cloneAttrs(ctl.Attrs)
	attrs["name"] = ctl.Name
	writeElement(buf, "textarea", attrs, html.EscapeString(params.String(ctl.Value)))
	return nil
}

func selectRenderer(buf *bytes.Buffer, ctl Control) error {
	attrs := cloneAttrs(ctl.Attrs)
	attrs["name"] = ctl.Name
	if params.Truthy(attrs["multiple"]) && !strings.HasSuffix(ctl.Name, "[]") {
		attrs["name"] = ctl.Name + "[]"
	}
	if normalize(ctl.Type) == TypeSelectJS {
		attrs["data-control"] = TypeSelectJS
	}

	selected := params.Strings(ctl.Value)
	var options strings.Builder
	if placeholder := params.String(ctl.Extras["placeholder"]); placeholder != "" {
		fmt.Fprintf(&options, `<option value="">%s</option>`, html.EscapeString(placeholder))
	}
	for _, choice := range ctl.Choices {
		options.WriteString(`<option value="`)
		options.WriteString(html.EscapeString(choice.Value))
		options.WriteByte('"')
		if params.Contains(selected, choice.Value) {
			options.WriteString(" selected")
		}
		options.WriteByte('>')
		options.WriteString(html.EscapeString(choice.Label))
		options.WriteString("</option>")
	}
	writeElement(buf, "select", attrs, options.String())
	return nil
}

func checkableRenderer(inputType string) Renderer {
	return func(buf *bytes.Buffer, ctl Control) error {
		writeVoid(buf, "input", checkableAttrs(inputType, ctl))
		return nil
	}
}

func toggleSwitchRenderer(buf *bytes.Buffer, ctl Control) error {
	buf.WriteString(`<label class="FormField-toggleSwitch">`)
	writeVoid(buf, "input", checkableAttrs("checkbox", ctl))
	buf.WriteString(`<span class="FormField-toggleSwitchSlider"></span></label>`)
	return nil
}

func checkableAttrs(inputType string, ctl Control) map[string]any {
	checkedValue := params.String(ctl.Extras["checked"])
	if checkedValue == "" {
		checkedValue = "on"
	}
	attrs := cloneAttrs(ctl.Attrs)
	attrs["type"] = inputType
	attrs["name"] = ctl.Name
	attrs["value"] = checkedValue
	attrs["checked"] = isChecked(ctl.Value, checkedValue)
	return attrs
}

func isChecked(value any, checkedValue string) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	return params.String(value) == checkedValue
}

func collectionRenderer(inputType string) Renderer {
	return func(buf *bytes.Buffer, ctl Control) error {
		container := cloneAttrs(ctl.Attrs)
		baseID := params.String(container["id"])
		tabindex := container["tabindex"]
		delete(container, "tabindex")
		container["role"] = "group"

		name := ctl.Name
		if inputType == "checkbox" && !strings.HasSuffix(name, "[]") {
			name += "[]"
		}
		selected := params.Strings(ctl.Value)

		var items strings.Builder
		for idx, choice := range ctl.Choices {
			id := fmt.Sprintf("%s-%d", baseID, idx)
			input := map[string]any{
				"type":     inputType,
				"name":     name,
				"value":    choice.Value,
				"id":       id,
				"checked":  params.Contains(selected, choice.Value),
				"tabindex": tabindex,
			}
			items.WriteString(`<div class="FormField-choice">`)
			writeVoidTo(&items, "input", input)
			fmt.Fprintf(&items, `<label for="%s">%s</label></div>`, html.EscapeString(id), html.EscapeString(choice.Label))
		}
		writeElement(buf, "div", container, items.String())
		return nil
	}
}

func buttonRenderer(buf *bytes.Buffer, ctl Control) error {
	attrs := cloneAttrs(ctl.Attrs)
	if normalize(ctl.Type) == TypeSubmit {
		attrs["type"] = "submit"
	} else if params.String(attrs["type"]) == "" {
		attrs["type"] = "button"
	}
	if ctl.Name != "" {
		attrs["name"] = ctl.Name
	}
	writeElement(buf, "button", attrs, content(ctl))
	return nil
}

func labelRenderer(buf *bytes.Buffer, ctl Control) error {
	writeElement(buf, "label", ctl.Attrs, content(ctl))
	return nil
}

func htmlRenderer(buf *bytes.Buffer, ctl Control) error {
	if ctl.Content != "" {
		buf.WriteString(ctl.Content)
		return nil
	}
	buf.WriteString(sanitize.HTML(params.String(ctl.Value)))
	return nil
}

func tagRenderer(buf *bytes.Buffer, ctl Control) error {
	tag := strings.TrimSpace(params.String(ctl.Extras["tag"]))
	if tag == "" {
		tag = "div"
	}
	if strings.ContainsAny(tag, ` <>"'/=`) {
		return fmt.Errorf("controls: invalid tag name %q", tag)
	}
	writeElement(buf, tag, ctl.Attrs, content(ctl))
	return nil
}

func repeaterRenderer(buf *bytes.Buffer, ctl Control) error {
	container := cloneAttrs(ctl.Attrs)
	container["data-control"] = TypeRepeater
	name := ctl.Name
	if !strings.HasSuffix(name, "[]") {
		name += "[]"
	}

	var items strings.Builder
	values := make([]string, 0)
	for _, value := range params.Strings(ctl.Value) {
		if strings.TrimSpace(value) != "" {
			values = append(values, value)
		}
	}
	values = append(values, "")
	for _, value := range values {
		items.WriteString(`<div class="FormRepeater-item">`)
		writeVoidTo(&items, "input", map[string]any{"type": "text", "name": name, "value": value})
		items.WriteString(`</div>`)
	}
	writeElement(buf, "div", container, items.String())
	return nil
}

func content(ctl Control) string {
	if ctl.Content != "" {
		return ctl.Content
	}
	return html.EscapeString(params.String(ctl.Value))
}

func writeVoid(buf *bytes.Buffer, tag string, attrs map[string]any) {
	buf.WriteString(OpenTag(tag, attrs))
}

func writeVoidTo(builder *strings.Builder, tag string, attrs map[string]any) {
	builder.WriteString(OpenTag(tag, attrs))
}

func writeElement(buf *bytes.Buffer, tag string, attrs map[string]any, inner string) {
	buf.WriteString(OpenTag(tag, attrs))
	buf.WriteString(inner)
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteByte('>')
}

// OpenTag renders the opening tag of tag with attrs.
func OpenTag(tag string, attrs map[string]any) string {
	if rendered := HTMLAttrs(attrs); rendered != "" {
		return "<" + tag + " " + rendered + ">"
	}
	return "<" + tag + ">"
}
