package tui

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-forms/pkg/form"
)

// scriptedDriver answers prompts from queues, keyed by prompt kind.
type scriptedDriver struct {
	inputs   []string
	confirms []bool
	selects  []int
	multi    [][]int
	infos    []string
	asked    []string
}

func (d *scriptedDriver) Text(_ context.Context, q Question) (string, error) {
	d.asked = append(d.asked, q.Message)
	if len(d.inputs) == 0 {
		return "", io.EOF
	}
	answer := d.inputs[0]
	d.inputs = d.inputs[1:]
	return answer, nil
}

func (d *scriptedDriver) Confirm(_ context.Context, message string, _ bool) (bool, error) {
	d.asked = append(d.asked, message)
	answer := d.confirms[0]
	d.confirms = d.confirms[1:]
	return answer, nil
}

func (d *scriptedDriver) Choose(_ context.Context, message string, _ []string, _ int) (int, error) {
	d.asked = append(d.asked, message)
	answer := d.selects[0]
	d.selects = d.selects[1:]
	return answer, nil
}

func (d *scriptedDriver) ChooseMany(_ context.Context, message string, _ []string, _ []int) ([]int, error) {
	d.asked = append(d.asked, message)
	answer := d.multi[0]
	d.multi = d.multi[1:]
	return answer, nil
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

func signupForm(t *testing.T, method string) *form.Form {
	t.Helper()
	m, err := form.NewManager()
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	m.MustRegisterForm("signup", map[string]any{
		"method": method,
		"action": "/signup?ref=cli",
		"fields": []any{
			map[string]any{"slug": "intro", "type": "html", "value": "<p>Hello</p>"},
			map[string]any{"slug": "email", "type": "email", "title": "Email", "required": true, "validations": "email"},
			map[string]any{"slug": "plan", "type": "select", "title": "Plan", "choices": []any{
				map[string]any{"value": "free", "label": "Free"},
				map[string]any{"value": "pro", "label": "Pro"},
			}},
			map[string]any{"slug": "topics", "type": "checkbox-collection", "title": "Topics", "choices": []any{"go", "web", "cli"}},
			map[string]any{"slug": "terms", "type": "checkbox", "title": "Terms", "required": true},
			map[string]any{"slug": "source", "type": "hidden", "value": "cli"},
		},
	})
	f, err := m.Get("signup")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return f
}

func TestFillAsksAgainUntilValid(t *testing.T) {
	driver := &scriptedDriver{
		inputs:   []string{"", "nope", "ada@example.com"},
		selects:  []int{1},
		multi:    [][]int{{0, 2}},
		confirms: []bool{false, true},
	}
	filler := New(WithPromptDriver(driver), WithErrorPrefix("! "))

	values, err := filler.Fill(context.Background(), signupForm(t, "post"))
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	want := url.Values{
		"email":    {"ada@example.com"},
		"plan":     {"pro"},
		"topics[]": {"go", "cli"},
		"terms":    {"on"},
		"source":   {"cli"},
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	wantInfos := []string{
		`! The field "Email" must be filled.`,
		`! The format of field "Email" is invalid`,
		`! The field "Terms" must be filled.`,
	}
	if diff := cmp.Diff(wantInfos, driver.infos); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if driver.asked[0] != "Email *" {
		t.Fatalf("required marker missing: %q", driver.asked[0])
	}
}

func TestFillStopsAfterMaxAttempts(t *testing.T) {
	driver := &scriptedDriver{inputs: []string{"", ""}}
	filler := New(WithPromptDriver(driver), WithMaxAttempts(2))

	_, err := filler.Fill(context.Background(), signupForm(t, "post"))
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected too many attempts, got %v", err)
	}
	if len(driver.infos) != 2 {
		t.Fatalf("expected two messages, got %v", driver.infos)
	}
}

func TestRequestCarriesValues(t *testing.T) {
	values := url.Values{"email": {"ada@example.com"}}

	post, err := Request(context.Background(), signupForm(t, "post"), values)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if post.Method != http.MethodPost || post.URL.String() != "/signup?ref=cli" {
		t.Fatalf("unexpected post request %s %s", post.Method, post.URL)
	}
	if err := post.ParseForm(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := post.PostForm.Get("email"); got != "ada@example.com" {
		t.Fatalf("body email %q", got)
	}

	get, err := Request(context.Background(), signupForm(t, "get"), values)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if get.Method != http.MethodGet || get.URL.String() != "/signup?email=ada%40example.com&ref=cli" {
		t.Fatalf("unexpected get request %s %s", get.Method, get.URL)
	}
}

func TestEncode(t *testing.T) {
	values := url.Values{"email": {"ada@example.com"}, "topics[]": {"go"}, "tags": {"a", "b"}}

	out, err := Encode(values, OutputFormatJSON)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got, want := string(out), `{"email":"ada@example.com","tags":["a","b"],"topics":["go"]}`; got != want {
		t.Fatalf("json %s, want %s", got, want)
	}

	out, err = Encode(values, OutputFormatFormURLEncoded)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got, want := string(out), "email=ada%40example.com&tags=a&tags=b&topics%5B%5D=go"; got != want {
		t.Fatalf("form %s, want %s", got, want)
	}
}
