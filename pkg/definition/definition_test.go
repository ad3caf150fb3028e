package definition_test

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-forms/pkg/definition"
	"github.com/goliatone/go-forms/pkg/form"
)

const contactYAML = `
forms:
  contact:
    title: Contact
    action: /contact
    fields:
      name:
        type: text
        required: true
      email:
        type: email
        validations: email
      fax: false
      message:
        type: textarea
    groups:
      main: {}
      extra:
        position: 1
`

func TestParseYAMLKeepsDeclarationOrder(t *testing.T) {
	defs, err := definition.Parse([]byte(contactYAML), "contact.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(defs) != 1 || defs[0].Alias != "contact" || defs[0].Source != "contact.yaml" {
		t.Fatalf("unexpected definitions: %#v", defs)
	}
	def := defs[0]
	if diff := cmp.Diff([]string{"name", "email", "message"}, def.FieldSlugs()); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
	want := []any{
		map[string]any{"alias": "main"},
		map[string]any{"alias": "extra", "position": 1},
	}
	if diff := cmp.Diff(want, def.Params["groups"]); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
	if def.Params["title"] != "Contact" {
		t.Fatalf("title not kept: %#v", def.Params)
	}
}

func TestParseJSONSingleForm(t *testing.T) {
	defs, err := definition.Parse([]byte(`{
		"alias": "signup",
		"method": "get",
		"fields": {
			"zip": {"type": "text", "position": 2},
			"age": {"type": "number", "validations": [{"call": "min", "args": [18]}]}
		}
	}`), "signup.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	def := defs[0]
	if def.Alias != "signup" {
		t.Fatalf("alias = %q", def.Alias)
	}
	if _, ok := def.Params["alias"]; ok {
		t.Fatalf("alias kept in params: %#v", def.Params)
	}
	want := []any{
		map[string]any{"slug": "zip", "type": "text", "position": 2},
		map[string]any{"slug": "age", "type": "number", "validations": []any{
			map[string]any{"call": "min", "args": []any{18}},
		}},
	}
	if diff := cmp.Diff(want, def.Params["fields"]); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := definition.Parse([]byte("  \n"), "empty.yaml"); !errors.Is(err, definition.ErrEmptyDocument) {
		t.Fatalf("expected empty document error, got %v", err)
	}
	cases := map[string]string{
		"no alias":      "title: Lost\n",
		"forms list":    "forms:\n  - contact\n",
		"form scalar":   "forms:\n  contact: yes\n",
		"invalid json":  `{"alias": `,
		"invalid yaml":  "forms: [\n",
		"non map root":  "- a\n- b\n",
		"empty in list": "forms:\n  \" \": {}\n",
	}
	for name, doc := range cases {
		if _, err := definition.Parse([]byte(doc), name); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

func TestLoadFSRejectsDuplicateAliases(t *testing.T) {
	fsys := fstest.MapFS{
		"a/contact.yaml": {Data: []byte(contactYAML)},
		"b/signup.json":  {Data: []byte(`{"alias": "signup", "fields": {"name": {"type": "text"}}}`)},
		"notes.txt":      {Data: []byte("not a definition")},
	}
	defs, err := definition.LoadFS(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var aliases []string
	for _, def := range defs {
		aliases = append(aliases, def.Alias)
	}
	if diff := cmp.Diff([]string{"contact", "signup"}, aliases); diff != "" {
		t.Fatalf("aliases mismatch (-want +got):\n%s", diff)
	}

	fsys["c/again.yml"] = &fstest.MapFile{Data: []byte("alias: contact\n")}
	if _, err := definition.LoadFS(fsys); err == nil || !strings.Contains(err.Error(), "duplicate form \"contact\"") {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	if defs, err := definition.LoadFS(nil); err != nil || defs != nil {
		t.Fatalf("nil fs: %v %v", defs, err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	defs, err := definition.Parse([]byte(contactYAML), "contact.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	clone := defs[0].Clone()
	clone.Params["title"] = "Changed"
	clone.Params["fields"].([]any)[0].(map[string]any)["type"] = "email"

	if defs[0].Params["title"] != "Contact" {
		t.Fatalf("clone shares the title")
	}
	if got := defs[0].Params["fields"].([]any)[0].(map[string]any)["type"]; got != "text" {
		t.Fatalf("clone shares fields: %v", got)
	}
}

func TestEncodeParsesBack(t *testing.T) {
	defs, err := definition.Parse([]byte(contactYAML), "contact.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := definition.Encode(defs...)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := definition.Parse(out, "encoded.yaml")
	if err != nil {
		t.Fatalf("parse encoded: %v\n%s", err, out)
	}
	if diff := cmp.Diff(defs[0].Params, again[0].Params); diff != "" {
		t.Fatalf("encoded definition mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterAndCheck(t *testing.T) {
	defs, err := definition.Parse([]byte(contactYAML), "contact.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	m, err := form.NewManager()
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if err := definition.Register(m, defs); err != nil {
		t.Fatalf("register: %v", err)
	}
	f, err := m.Get("contact")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := f.Field("message"); !ok {
		t.Fatalf("message field missing")
	}
	if err := definition.Register(m, defs); !errors.Is(err, form.ErrDuplicateAlias) {
		t.Fatalf("expected duplicate alias, got %v", err)
	}

	issues, err := definition.Check(defs)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected a clean definition, got %v", issues)
	}

	broken := definition.Definition{Alias: "broken", Params: map[string]any{
		"fields": []any{map[string]any{"slug": "when", "type": "sundial"}},
	}}
	issues, err = definition.Check([]definition.Definition{broken})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(issues) == 0 || issues[0].Field != "when" {
		t.Fatalf("expected an issue on the unknown field type, got %v", issues)
	}
}
