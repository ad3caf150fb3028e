package form_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-forms/pkg/form"
	"github.com/goliatone/go-forms/pkg/messages"
	"github.com/goliatone/go-forms/pkg/session"
	"github.com/goliatone/go-forms/pkg/testsupport"
)

func newManager(t *testing.T, opts ...form.Option) *form.Manager {
	t.Helper()
	m, err := form.NewManager(opts...)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func contactDefinition() map[string]any {
	return map[string]any{
		"title":  "Contact",
		"action": "/contact",
		"fields": []any{
			map[string]any{"slug": "name", "type": "text", "title": "Name", "required": true},
			map[string]any{"slug": "secret", "type": "password", "title": "Secret"},
			map[string]any{"slug": "message", "type": "textarea", "title": "Message"},
		},
	}
}

func postRequest(values url.Values) *http.Request {
	return testsupport.PostForm("/contact", "http://example.com/contact?from=menu", values)
}

func mustGet(t *testing.T, m *form.Manager, alias string, opts ...form.FormOption) *form.Form {
	t.Helper()
	f, err := m.Get(alias, opts...)
	if err != nil {
		t.Fatalf("get %q: %v", alias, err)
	}
	return f
}

func mustField(t *testing.T, f *form.Form, slug string) form.FieldDriver {
	t.Helper()
	field, ok := f.Field(slug)
	if !ok {
		t.Fatalf("field %q missing", slug)
	}
	return field
}

func TestRequiredEmptyFieldFailsValidation(t *testing.T) {
	m := newManager(t)
	m.MustRegisterForm("contact", contactDefinition())

	f := mustGet(t, m, "contact", form.WithRequest(postRequest(url.Values{
		"name":    {""},
		"message": {"hello"},
	})))

	redirect, err := f.Proceed(context.Background())
	if err != nil {
		t.Fatalf("proceed: %v", err)
	}
	if redirect == nil {
		t.Fatalf("expected a redirect for a submission")
	}
	if redirect.Status != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", redirect.Status)
	}
	if redirect.URL != "http://example.com/contact?from=menu" {
		t.Fatalf("unexpected failed redirect %q", redirect.URL)
	}
	if f.IsSuccessful() {
		t.Fatalf("form marked successful")
	}
	if !f.HasError() {
		t.Fatalf("expected form error")
	}

	name := mustField(t, f, "name")
	if !name.HasNotices(messages.Error) {
		t.Fatalf("expected error notice on field name")
	}
	if mustField(t, f, "message").HasNotices(messages.Error) {
		t.Fatalf("unexpected error notice on field message")
	}

	got := f.Messages().Fetch(messages.Error)
	want := map[string][]string{"error": {`The field "Name" must be filled.`}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("error messages mismatch (-want +got):\n%s", diff)
	}
}

func TestFailResetsFieldsWithoutTransport(t *testing.T) {
	m := newManager(t)
	m.MustRegisterForm("contact", contactDefinition())

	f := mustGet(t, m, "contact", form.WithRequest(postRequest(url.Values{
		"name":    {""},
		"secret":  {"hunter2"},
		"message": {"kept"},
	})))
	if _, err := f.Proceed(context.Background()); err != nil {
		t.Fatalf("proceed: %v", err)
	}

	if got := mustField(t, f, "secret").Value(true); got != "" {
		t.Fatalf("password value not reset: %v", got)
	}
	if got := mustField(t, f, "message").Value(true); got != "kept" {
		t.Fatalf("textarea value lost: %v", got)
	}
}

func TestFailedSubmissionNoticesReachNextRequest(t *testing.T) {
	m := newManager(t)
	m.MustRegisterForm("contact", contactDefinition())
	sess := session.New("visitor")

	submitted := mustGet(t, m, "contact",
		form.WithSession(sess),
		form.WithRequest(postRequest(url.Values{"name": {""}, "message": {"draft"}})))
	if _, err := submitted.Proceed(context.Background()); err != nil {
		t.Fatalf("proceed: %v", err)
	}
	sess.Age()

	next := mustGet(t, m, "contact",
		form.WithSession(sess),
		form.WithRequest(httptest.NewRequest(http.MethodGet, "/contact", nil)))
	if got := mustField(t, next, "message").Value(true); got != "draft" {
		t.Fatalf("session value not restored: %v", got)
	}

	out, err := next.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "FormNotice-items--error") || !strings.Contains(out, "must be filled") {
		t.Fatalf("expected flashed error notice in output:\n%s", out)
	}
	if !mustField(t, next, "name").HasNotices(messages.Error) {
		t.Fatalf("imported notice lost its field context")
	}
	if !strings.Contains(out, `aria-invalid="true"`) {
		t.Fatalf("expected invalid field marker:\n%s", out)
	}
}

func TestSuccessfulSubmissionShowsMessageOnce(t *testing.T) {
	m := newManager(t)
	m.MustRegisterForm("contact", contactDefinition())
	sess := session.New("visitor")

	submitted := mustGet(t, m, "contact",
		form.WithSession(sess),
		form.WithRequest(postRequest(url.Values{"name": {"Ada"}})))
	redirect, err := submitted.Proceed(context.Background())
	if err != nil {
		t.Fatalf("proceed: %v", err)
	}
	if redirect == nil || redirect.URL != "http://example.com/contact?from=menu" {
		t.Fatalf("unexpected success redirect %#v", redirect)
	}
	if !submitted.IsSuccessful() {
		t.Fatalf("expected successful form")
	}
	if submitted.Session().Has("request.name") {
		t.Fatalf("success kept submitted values in session")
	}
	sess.Age()

	shown := mustGet(t, m, "contact", form.WithSession(sess))
	if !shown.IsSuccessful() {
		t.Fatalf("successful flag not carried to the next request")
	}
	out, err := shown.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, form.DefaultSuccessMessage) {
		t.Fatalf("expected success message:\n%s", out)
	}
	if shown.HasError() {
		t.Fatalf("unexpected error on successful form")
	}
	sess.Age()

	again := mustGet(t, m, "contact", form.WithSession(sess))
	if again.IsSuccessful() {
		t.Fatalf("successful flag survived a second request")
	}
}

func TestProceedIgnoresPageViews(t *testing.T) {
	m := newManager(t)
	m.MustRegisterForm("contact", contactDefinition())

	f := mustGet(t, m, "contact", form.WithRequest(httptest.NewRequest(http.MethodGet, "/contact?name=x", nil)))
	redirect, err := f.Proceed(context.Background())
	if err != nil {
		t.Fatalf("proceed: %v", err)
	}
	if redirect != nil {
		t.Fatalf("page view treated as submission: %#v", redirect)
	}
	if f.HasError() {
		t.Fatalf("page view recorded errors")
	}
}

func TestGetRedirectStripsSubmittedValues(t *testing.T) {
	m := newManager(t)
	m.MustRegisterForm("search", map[string]any{
		"method":  "get",
		"options": map[string]any{"anchor": true},
		"fields": []any{
			map[string]any{"slug": "q", "type": "text", "required": true},
			map[string]any{"slug": "tags", "type": "checkbox-collection", "choices": []any{"a", "b"}},
		},
	})

	r := httptest.NewRequest(http.MethodGet, "/search?q=go&page=2&_token=stale&tags%5B%5D=a", nil)
	f := mustGet(t, m, "search", form.WithRequest(r))

	redirect, err := f.Proceed(context.Background())
	if err != nil {
		t.Fatalf("proceed: %v", err)
	}
	if redirect == nil {
		t.Fatalf("expected GET submission to be handled")
	}
	if diff := cmp.Diff("/search?page=2#Form--search", redirect.URL); diff != "" {
		t.Fatalf("redirect mismatch (-want +got):\n%s", diff)
	}
	if got := mustField(t, f, "tags").Value(true); !cmp.Equal(got, []string{"a"}) {
		t.Fatalf("unexpected tags value %#v", got)
	}
}

func TestRedirectOverridesAndListeners(t *testing.T) {
	d := form.NewDispatcher()
	d.On(form.EventName("contact", "handle.succeed.redirect_url"), func(ev *form.Event) {
		target := ev.Arg(0).(*string)
		*target += "&thanks=1"
	}, 0)
	m := newManager(t, form.WithDispatcher(d))
	m.MustRegisterForm("contact", contactDefinition())

	f := mustGet(t, m, "contact", form.WithRequest(postRequest(url.Values{
		"name":          {"Ada"},
		"_http_referer": {"/landing?step=2"},
	})))
	redirect, err := f.Proceed(context.Background())
	if err != nil {
		t.Fatalf("proceed: %v", err)
	}
	if diff := cmp.Diff("/landing?step=2&thanks=1", redirect.URL); diff != "" {
		t.Fatalf("redirect mismatch (-want +got):\n%s", diff)
	}

	f.Handle().SetSucceedRedirectURL("https://example.com/raw#keep", true)
	if got := f.Handle().SucceedRedirectURL(); got != "https://example.com/raw#keep&thanks=1" {
		t.Fatalf("raw override not kept: %q", got)
	}
}

func TestValidatedListenerCanReject(t *testing.T) {
	m := newManager(t)
	m.MustRegisterForm("contact", map[string]any{
		"fields": []any{
			map[string]any{"slug": "name", "type": "text"},
		},
		"events": map[string]any{
			"handle.validated": form.Listener(func(ev *form.Event) {
				ev.Form.Error("Mailbox unavailable.")
			}),
		},
	})

	f := mustGet(t, m, "contact", form.WithRequest(postRequest(url.Values{"name": {"Ada"}})))
	if _, err := f.Proceed(context.Background()); err != nil {
		t.Fatalf("proceed: %v", err)
	}
	if f.IsSuccessful() {
		t.Fatalf("listener error ignored")
	}
	if diff := cmp.Diff([]string{"Mailbox unavailable."}, f.Messages().Fetch()["error"]); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestGetUnknownForm(t *testing.T) {
	m := newManager(t)
	if _, err := m.Get("missing"); err == nil {
		t.Fatalf("expected unknown form error")
	}
	if err := m.RegisterForm("contact", nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.RegisterForm("contact", nil); err == nil {
		t.Fatalf("expected duplicate alias error")
	}
	if diff := cmp.Diff([]string{"contact"}, m.Forms()); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}
	if m.Index("contact") != 0 || m.Index("missing") != -1 {
		t.Fatalf("unexpected indexes")
	}
}

func TestBuildRejectsUnknownMethod(t *testing.T) {
	m := newManager(t)
	m.MustRegisterForm("contact", map[string]any{"method": "put"})
	if _, err := m.Get("contact"); err == nil || !strings.Contains(err.Error(), "unsupported method") {
		t.Fatalf("expected method error, got %v", err)
	}
}

func TestCurrentForm(t *testing.T) {
	d := form.NewDispatcher()
	var fired []string
	for _, name := range []string{"form.set.current", "form.reset.current"} {
		d.On(form.EventName("contact", name), func(*form.Event) { fired = append(fired, name) }, 0)
	}
	m := newManager(t, form.WithDispatcher(d))
	m.MustRegisterForm("contact", nil)

	f := mustGet(t, m, "contact")
	f.SetCurrent()
	if m.Current() != f {
		t.Fatalf("current form not set")
	}
	m.ResetCurrent()
	if m.Current() != nil {
		t.Fatalf("current form not reset")
	}
	if diff := cmp.Diff([]string{"form.set.current", "form.reset.current"}, fired); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}
