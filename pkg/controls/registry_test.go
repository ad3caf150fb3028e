package controls

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryReturnsCopies(t *testing.T) {
	reg := New()
	renderer := func(buf *bytes.Buffer, ctl Control) error { return nil }

	if err := reg.Register("Rating", Descriptor{Renderer: renderer, Stylesheets: []string{"/a.css"}}); err != nil {
		t.Fatalf("register: %v", err)
	}

	desc, ok := reg.Descriptor("rating")
	if !ok {
		t.Fatalf("descriptor not found")
	}
	desc.Stylesheets = append(desc.Stylesheets, "/mutated.css")

	original, _ := reg.Descriptor("rating")
	if diff := cmp.Diff([]string{"/a.css"}, original.Stylesheets); diff != "" {
		t.Fatalf("registry descriptor mutated (-want +got):\n%s", diff)
	}
	if err := reg.Register("broken", Descriptor{}); err == nil {
		t.Fatalf("expected nil renderer error")
	}
	if err := reg.Register("  ", Descriptor{Renderer: renderer}); err == nil {
		t.Fatalf("expected empty name error")
	}
	if !reg.Has("RATING") {
		t.Fatalf("lookups should ignore case")
	}
}

func TestRegistryAssetsDeduplicates(t *testing.T) {
	reg := New()
	renderer := func(buf *bytes.Buffer, ctl Control) error { return nil }
	reg.MustRegister("select-js", Descriptor{
		Renderer:    renderer,
		Stylesheets: []string{"/shared.css", "/select.css"},
		Scripts:     []Script{{Src: "/shared.js"}, {Src: "/select.js"}},
	})
	reg.MustRegister("datetime-js", Descriptor{
		Renderer:    renderer,
		Stylesheets: []string{"/shared.css"},
		Scripts:     []Script{{Src: "/shared.js"}},
	})

	got := reg.Assets([]string{"select-js", "datetime-js", "missing"})
	want := Assets{
		Stylesheets: []string{"/shared.css", "/select.css"},
		Scripts:     []Script{{Src: "/shared.js"}, {Src: "/select.js"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("assets mismatch (-want +got):\n%s", diff)
	}
}

func TestHTMLAttrs(t *testing.T) {
	got := HTMLAttrs(map[string]any{
		"id":       "FormField-input--email_0",
		"class":    []string{"a", "b"},
		"required": true,
		"disabled": false,
		"title":    `say "hi"`,
		"data":     map[string]any{"x": 1},
		"tabindex": 3,
		"nothing":  nil,
	})
	want := `class="a b" id="FormField-input--email_0" required tabindex="3" title="say &#34;hi&#34;"`
	if got != want {
		t.Fatalf("HTMLAttrs mismatch\nwant %s\ngot  %s", want, got)
	}
}

func TestParseChoices(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want []Choice
	}{
		{
			name: "map sorted by value",
			raw:  map[string]any{"fr": "France", "be": "Belgium"},
			want: []Choice{{Value: "be", Label: "Belgium"}, {Value: "fr", Label: "France"}},
		},
		{
			name: "list of strings",
			raw:  []any{"red", "blue"},
			want: []Choice{{Value: "red", Label: "red"}, {Value: "blue", Label: "blue"}},
		},
		{
			name: "list of maps keeps order",
			raw:  []any{map[string]any{"value": "z", "label": "Zed"}, map[string]any{"value": "a"}},
			want: []Choice{{Value: "z", Label: "Zed"}, {Value: "a", Label: "a"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, ParseChoices(tc.raw)); diff != "" {
				t.Fatalf("choices mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefaultRenderers(t *testing.T) {
	reg := NewDefaultRegistry()
	choices := []Choice{{Value: "fr", Label: "France"}, {Value: "be", Label: "Belgium"}}

	cases := []struct {
		name string
		ctl  Control
		want string
	}{
		{
			name: "text escapes value",
			ctl:  Control{Type: TypeText, Name: "name", Value: `<b>"x"`, Attrs: map[string]any{"id": "n"}},
			want: `<input id="n" name="name" type="text" value="&lt;b&gt;&#34;x&#34;">`,
		},
		{
			name: "password drops value",
			ctl:  Control{Type: TypePassword, Name: "secret", Value: "hunter2"},
			want: `<input name="secret" type="password">`,
		},
		{
			name: "datetime-js maps to datetime-local",
			ctl:  Control{Type: TypeDatetimeJS, Name: "at", Value: "2024-01-01T10:00"},
			want: `<input name="at" type="datetime-local" value="2024-01-01T10:00">`,
		},
		{
			name: "textarea",
			ctl:  Control{Type: TypeTextarea, Name: "message", Value: "a < b"},
			want: `<textarea name="message">a &lt; b</textarea>`,
		},
		{
			name: "select marks selected",
			ctl:  Control{Type: TypeSelect, Name: "country", Value: "be", Choices: choices},
			want: `<select name="country"><option value="fr">France</option><option value="be" selected>Belgium</option></select>`,
		},
		{
			name: "checkbox checked by value",
			ctl:  Control{Type: TypeCheckbox, Name: "optin", Value: "on"},
			want: `<input checked name="optin" type="checkbox" value="on">`,
		},
		{
			name: "checkbox collection",
			ctl:  Control{Type: TypeCheckboxCollection, Name: "countries", Value: []any{"fr"}, Choices: choices, Attrs: map[string]any{"id": "c"}},
			want: `<div id="c" role="group">` +
				`<div class="FormField-choice"><input checked id="c-0" name="countries[]" type="checkbox" value="fr"><label for="c-0">France</label></div>` +
				`<div class="FormField-choice"><input id="c-1" name="countries[]" type="checkbox" value="be"><label for="c-1">Belgium</label></div>` +
				`</div>`,
		},
		{
			name: "submit button",
			ctl:  Control{Type: TypeSubmit, Content: "Send"},
			want: `<button type="submit">Send</button>`,
		},
		{
			name: "html sanitizes",
			ctl:  Control{Type: TypeHTML, Value: `<p>Hi<script>x()</script></p>`},
			want: `<p>Hi</p>`,
		},
		{
			name: "tag",
			ctl:  Control{Type: TypeTag, Value: "Intro", Extras: map[string]any{"tag": "h2"}},
			want: `<h2>Intro</h2>`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := reg.Render(tc.ctl)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if got != tc.want {
				t.Fatalf("render mismatch\nwant %s\ngot  %s", tc.want, got)
			}
		})
	}
}

func TestRenderUnknownType(t *testing.T) {
	_, err := NewDefaultRegistry().Render(Control{Type: "signature"})
	if err == nil || !strings.Contains(err.Error(), "signature") {
		t.Fatalf("expected unknown control error, got %v", err)
	}
}
