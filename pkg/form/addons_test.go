package form_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-forms/pkg/form"
)

type captchaAddon struct {
	*form.Addon
}

func (captchaAddon) DefaultFormOptions() map[string]any {
	return map[string]any{"anchor": true, "captcha": map[string]any{"theme": "light"}}
}

func (captchaAddon) DefaultFieldOptions() map[string]any {
	return map[string]any{"enabled": true, "mode": "auto"}
}

func TestAddonDefaults(t *testing.T) {
	m := newManager(t)
	m.MustRegisterAddon("captcha", func() form.AddonDriver { return captchaAddon{&form.Addon{}} })
	m.MustRegisterForm("contact", map[string]any{
		"addons":  map[string]any{"captcha": map[string]any{"site_key": "k"}},
		"options": map[string]any{"captcha": map[string]any{"theme": "dark"}},
		"fields": []any{
			map[string]any{"slug": "name", "type": "text", "addons": map[string]any{
				"captcha": map[string]any{"mode": "manual"},
			}},
		},
	})

	f := mustGet(t, m, "contact")
	if err := f.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}

	if f.Option("anchor") != true {
		t.Fatalf("addon form default missing, anchor %v", f.Option("anchor"))
	}
	if got := f.Option("captcha.theme"); got != "dark" {
		t.Fatalf("declared option should win, got %v", got)
	}

	field := mustField(t, f, "name")
	if got := field.AddonOption("captcha", "mode"); got != "manual" {
		t.Fatalf("field addon option mode %v", got)
	}
	if got := field.AddonOption("captcha", "enabled"); got != true {
		t.Fatalf("field addon default enabled %v", got)
	}

	addon, ok := f.Addons().Get("captcha")
	if !ok {
		t.Fatalf("addon not booted")
	}
	if got := addon.Params().GetString("site_key"); got != "k" {
		t.Fatalf("addon params site_key %q", got)
	}
	if addon.Form() != f {
		t.Fatalf("addon bound to another form")
	}
}

func TestUnknownAddon(t *testing.T) {
	m := newManager(t)
	m.MustRegisterForm("contact", map[string]any{
		"addons": map[string]any{"ghost": map[string]any{}},
		"fields": []any{map[string]any{"slug": "name", "type": "text"}},
	})

	f, err := m.Get("contact")
	if err == nil {
		err = f.Boot()
	}
	if !errors.Is(err, form.ErrUnknownAddon) {
		t.Fatalf("expected unknown addon error, got %v", err)
	}
}
