package controls

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/goliatone/go-forms/pkg/params"
)

// Control is everything a renderer needs to emit one form control.
type Control struct {
	Type    string
	Name    string
	Value   any
	Attrs   map[string]any
	Choices []Choice
	Extras  map[string]any
	// Content is trusted, already rendered markup (button and label bodies).
	Content string
}

// Choice is one option of a choice control.
type Choice struct {
	Value string
	Label string
}

// ParseChoices accepts a list of {value,label} maps, a list of strings
// (value and label alike) or a map of value to label sorted by value.
func ParseChoices(raw any) []Choice {
	if raw == nil {
		return nil
	}
	if m := params.Map(raw); m != nil {
		keys := make([]string, 0, len(m))
		for key := range m {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		out := make([]Choice, 0, len(keys))
		for _, key := range keys {
			out = append(out, Choice{Value: key, Label: params.String(m[key])})
		}
		return out
	}

	items := params.List(raw)
	out := make([]Choice, 0, len(items))
	for _, item := range items {
		if entry := params.Map(item); entry != nil {
			value := params.String(entry["value"])
			label := params.String(entry["label"])
			if label == "" {
				label = value
			}
			out = append(out, Choice{Value: value, Label: label})
			continue
		}
		s := params.String(item)
		out = append(out, Choice{Value: s, Label: s})
	}
	return out
}

// Label returns the label of the choice whose value is value.
func Label(choices []Choice, value string) (string, bool) {
	for _, choice := range choices {
		if choice.Value == value {
			return choice.Label, true
		}
	}
	return "", false
}

// HTMLAttrs renders attrs sorted by name. True booleans render as bare
// attributes; nil and false are skipped. List values are space joined.
func HTMLAttrs(attrs map[string]any) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, key := range keys {
		name := strings.TrimSpace(key)
		if name == "" {
			continue
		}
		var value string
		switch v := attrs[key].(type) {
		case nil:
			continue
		case bool:
			if !v {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			builder.WriteString(html.EscapeString(name))
			continue
		case []string:
			value = strings.Join(v, " ")
		case []any:
			parts := make([]string, 0, len(v))
			for _, part := range v {
				parts = append(parts, params.String(part))
			}
			value = strings.Join(parts, " ")
		case map[string]any, map[string]string:
			continue
		default:
			value = params.String(v)
		}
		if builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		fmt.Fprintf(&builder, `%s="%s"`, html.EscapeString(name), html.EscapeString(value))
	}
	return builder.String()
}

func cloneAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs)+2)
	for key, value := range attrs {
		out[key] = value
	}
	return out
}
