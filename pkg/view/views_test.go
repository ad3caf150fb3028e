package view_test

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/fstest"

	theme "github.com/goliatone/go-theme"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-forms/pkg/view"
)

func TestBuiltinNoticesView(t *testing.T) {
	views, err := view.New()
	if err != nil {
		t.Fatalf("new views: %v", err)
	}

	got, err := views.Render(view.NoticesView("error"), map[string]any{
		"messages": []string{`The field "Name" must be filled.`},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `<ol class="Notice-items FormNotice-items FormNotice-items--error">` +
		`<li class="Notice-item FormNotice-item FormNotice-item--error">The field &quot;Name&quot; must be filled.</li></ol>`
	if got != want {
		t.Fatalf("notices mismatch\nwant %s\ngot  %s", want, got)
	}

	empty, err := views.Render(view.NoticesView("info"), map[string]any{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if empty != "" {
		t.Fatalf("expected empty notices, got %q", empty)
	}
}

func TestBuiltinButtonsView(t *testing.T) {
	views, err := view.New()
	if err != nil {
		t.Fatalf("new views: %v", err)
	}
	got, err := views.Render(view.Buttons, map[string]any{"buttons": []string{"<button>A</button>", "<button>B</button>"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != `<div class="FormButtons"><button>A</button><button>B</button></div>` {
		t.Fatalf("got %q", got)
	}
}

func TestThemePartialsOverrideViews(t *testing.T) {
	manifest := &theme.Manifest{
		Name:    "acme",
		Version: "1.0.0",
		Tokens:  map[string]string{"brand": "#123456"},
		Templates: map[string]string{
			"forms.buttons": "acme/buttons",
		},
		Assets: theme.Assets{
			Prefix: "/assets/themes/acme",
			Files:  map[string]string{"forms.select-js": "select.js"},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens:    map[string]string{"brand": "#654321"},
				Templates: map[string]string{"forms.button": "acme/dark/button"},
			},
		},
	}
	selector := &stubThemeSelector{selection: &theme.Selection{Theme: "acme", Variant: "dark", Manifest: manifest}}

	views, err := view.New(
		view.WithThemeSelector(selector, "acme", "dark"),
		view.WithEngineOptions(view.WithFS(fstest.MapFS{
			"acme/buttons.tpl": {Data: []byte(`<nav style="{{ theme.style }}">{% for b in buttons %}{{ b|safe }}{% endfor %}</nav>`)},
		})),
	)
	if err != nil {
		t.Fatalf("new views: %v", err)
	}

	if diff := cmp.Diff([]call{{name: "acme", variant: "dark"}}, selector.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("selector calls (-want +got):\n%s", diff)
	}
	if got := views.Template(view.Button); got != "acme/dark/button" {
		t.Fatalf("variant template not applied: %s", got)
	}
	if got := views.Template(view.Field); got != "forms/field" {
		t.Fatalf("fallback template expected, got %s", got)
	}
	if got := views.AssetURL("forms.select-js"); got != "/assets/themes/acme/select.js" {
		t.Fatalf("asset url: %s", got)
	}

	got, err := views.Render(view.Buttons, map[string]any{"buttons": []string{"<b>x</b>"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != `<nav style="--brand: #654321"><b>x</b></nav>` {
		t.Fatalf("got %q", got)
	}
}

func TestWithOverridesPerForm(t *testing.T) {
	views, err := view.New(view.WithEngineOptions(view.WithFS(fstest.MapFS{
		"custom/buttons.tpl": {Data: []byte(`custom`)},
	})))
	if err != nil {
		t.Fatalf("new views: %v", err)
	}
	scoped := views.With(map[string]string{view.Buttons: "custom/buttons"})

	got, err := scoped.Render(view.Buttons, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "custom" {
		t.Fatalf("got %q", got)
	}
	if views.Template(view.Buttons) != "forms/buttons" {
		t.Fatalf("base views mutated")
	}
}

func TestThemeSelectorError(t *testing.T) {
	_, err := view.New(view.WithThemeSelector(&stubThemeSelector{err: errors.New("unknown theme")}, "nope", ""))
	if err == nil || !strings.Contains(err.Error(), "unknown theme") {
		t.Fatalf("expected selector error, got %v", err)
	}
}

func TestCustomRendererGetsTheme(t *testing.T) {
	manifest := &theme.Manifest{Name: "acme", Version: "1.0.0", Tokens: map[string]string{"brand": "#123456"}}
	renderer := &recordingRenderer{}
	views, err := view.New(
		view.WithRenderer(renderer),
		view.WithThemeSelection(&theme.Selection{Theme: "acme", Manifest: manifest}),
	)
	if err != nil {
		t.Fatalf("new views: %v", err)
	}

	if _, err := views.Render(view.Footer, map[string]any{"buttons": "x"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if diff := cmp.Diff([]string{"forms/footer"}, renderer.names); diff != "" {
		t.Fatalf("rendered templates (-want +got):\n%s", diff)
	}
	themeData, ok := renderer.data["theme"].(map[string]any)
	if !ok || themeData["name"] != "acme" {
		t.Fatalf("theme not passed to renderer: %#v", renderer.data["theme"])
	}
	if renderer.data["buttons"] != "x" {
		t.Fatalf("render data lost: %#v", renderer.data)
	}
}

type recordingRenderer struct {
	names []string
	data  map[string]any
}

func (r *recordingRenderer) RenderTemplate(name string, data map[string]any, _ ...io.Writer) (string, error) {
	r.names = append(r.names, name)
	r.data = data
	return "", nil
}

type call struct {
	name    string
	variant string
}

type stubThemeSelector struct {
	selection *theme.Selection
	err       error
	calls     []call
}

func (s *stubThemeSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.calls = append(s.calls, call{name: name, variant: variant})
	if s.err != nil {
		return nil, s.err
	}
	return s.selection, nil
}
