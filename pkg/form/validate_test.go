package form_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-forms/pkg/form"
)

func TestValidateFactoryCall(t *testing.T) {
	m := newManager(t)
	m.MustRegisterFunction("isAda", func(value any, _ ...any) bool { return value == "Ada" })
	m.MustRegisterForm("signup", map[string]any{
		"fields": []any{
			map[string]any{"slug": "name", "type": "text"},
			map[string]any{"slug": "password", "type": "password"},
		},
	})
	f := mustGet(t, m, "signup", form.WithRequest(postRequest(url.Values{
		"name":     {"Ada"},
		"password": {"s3cret"},
	})))
	v := f.Validation()

	cases := []struct {
		name     string
		callback any
		value    any
		args     []any
		want     bool
	}{
		{"library rule", "notEmpty", "x", nil, true},
		{"negated rule", "!equals", "a", []any{"a"}, false},
		{"negated mismatch", "!equals", "a", []any{"b"}, true},
		{"default rule", "default", "", nil, true},
		{"compare with request tag", "compare", "s3cret", []any{"%%password%%"}, true},
		{"compare mismatch", "compare", "other", []any{"%%password%%"}, false},
		{"registered function", "isAda", "Ada", nil, true},
		{"unknown rule", "doesNotExist", "x", nil, false},
		{"negated unknown rule", "!doesNotExist", "x", nil, false},
		{"plain func", func(value any) bool { return value == 3 }, 3, nil, true},
		{"variadic func", func(value any, args ...any) bool { return len(args) == 2 }, nil, []any{1, 2}, true},
		{"unsupported callback", 42, "x", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := v.Call(tc.callback, tc.value, tc.args); got != tc.want {
				t.Fatalf("Call() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRequestTagValue(t *testing.T) {
	m := newManager(t)
	m.MustRegisterForm("signup", map[string]any{
		"fields": []any{map[string]any{"slug": "name", "type": "text"}},
	})
	f := mustGet(t, m, "signup", form.WithRequest(postRequest(url.Values{"name": {"Ada"}})))

	got := f.Validation().RequestTagValue([]any{"Hello %%name%%!", "%%missing%%", 7})
	want := []any{"Hello Ada!", "missing", 7}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tag values mismatch (-want +got):\n%s", diff)
	}

	if got := f.Fields().MetatagsValue("Dear %%name%%", true); got != "Dear Ada" {
		t.Fatalf("metatags mismatch: %#v", got)
	}
}

func TestFieldValidationRules(t *testing.T) {
	m := newManager(t)
	m.MustRegisterForm("signup", map[string]any{
		"fields": []any{
			map[string]any{"slug": "email", "type": "email", "title": "Email", "validations": "notEmpty, email"},
			map[string]any{
				"slug":  "nickname",
				"type":  "text",
				"title": "Nickname",
				"validations": []any{
					map[string]any{"call": "length", "args": []any{2, 5}, "alias": "size", "message": "%s must hold 2 to 5 characters"},
				},
			},
			map[string]any{
				"slug":     "terms",
				"type":     "checkbox",
				"title":    "Terms",
				"required": map[string]any{"value_none": "off", "message": "Please accept the %s."},
			},
		},
	})
	f := mustGet(t, m, "signup", form.WithRequest(postRequest(url.Values{
		"email":    {"not-an-email"},
		"nickname": {"abcdefgh"},
		"terms":    {"off"},
	})))

	cases := []struct {
		slug     string
		alias    string
		message  string
		required bool
	}{
		{"email", "email", `The format of field "Email" is invalid`, false},
		{"nickname", "size", "Nickname must hold 2 to 5 characters", false},
		{"terms", form.RequiredAlias, "Please accept the Terms.", true},
	}
	for _, tc := range cases {
		err := mustField(t, f, tc.slug).Validate()
		var verr *form.FieldValidateError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected FieldValidateError, got %v", tc.slug, err)
		}
		if !verr.IsAlias(tc.alias) || verr.IsRequired() != tc.required {
			t.Fatalf("%s: unexpected alias %q", tc.slug, verr.Alias)
		}
		if verr.Message != tc.message {
			t.Fatalf("%s: message %q, want %q", tc.slug, verr.Message, tc.message)
		}
	}

	f.Handle().Validate()
	if got := len(f.Messages().Fetch()["error"]); got != 3 {
		t.Fatalf("expected every field checked, got %d errors", got)
	}
}

func TestValidationsNormalized(t *testing.T) {
	m := newManager(t)
	rule := func(value any, _ ...any) bool { return value != "" }
	m.MustRegisterForm("signup", map[string]any{
		"fields": []any{
			map[string]any{"slug": "name", "type": "text", "validations": map[string]any{
				"b": "email",
				"a": map[string]any{"call": "notEmpty", "raw": true},
				"c": rule,
			}},
		},
	})
	f := mustGet(t, m, "signup")

	entries := mustField(t, f, "name").Params().Get("validations").([]any)
	var calls []any
	for _, entry := range entries {
		call := entry.(map[string]any)["call"]
		if _, ok := call.(string); !ok {
			call = "func"
		}
		calls = append(calls, call)
	}
	if diff := cmp.Diff([]any{"notEmpty", "email", "func"}, calls); diff != "" {
		t.Fatalf("normalized calls mismatch (-want +got):\n%s", diff)
	}
	first := entries[0].(map[string]any)
	if first["raw"] != true || first["message"] != `The format of field "%s" is invalid` {
		t.Fatalf("entry defaults not applied: %#v", first)
	}
}
