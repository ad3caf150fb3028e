package textcase

import "testing"

func TestTagName(t *testing.T) {
	cases := map[string]string{
		"contact":           "contact",
		"contact-form":      "contactForm",
		"Contact_form.v2":   "contactFormV2",
		"newsletter signup": "newsletterSignup",
		"":                  "",
	}
	for in, want := range cases {
		if got := TagName(in); got != want {
			t.Fatalf("TagName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHumanize(t *testing.T) {
	if got := Humanize("first_name"); got != "First name" {
		t.Fatalf("Humanize = %q", got)
	}
}
