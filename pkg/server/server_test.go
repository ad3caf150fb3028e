package server_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-forms/pkg/csrf"
	"github.com/goliatone/go-forms/pkg/form"
	"github.com/goliatone/go-forms/pkg/server"
	"github.com/goliatone/go-forms/pkg/session"
	"github.com/goliatone/go-forms/pkg/telemetry"
)

func newServer(t *testing.T, opts ...form.Option) (*httptest.Server, *telemetry.Metrics) {
	t.Helper()
	metrics := telemetry.New()
	m, err := form.NewManager(append([]form.Option{form.WithObserver(metrics)}, opts...)...)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	m.MustRegisterForm("contact", map[string]any{
		"title": "Contact <us>",
		"fields": []any{
			map[string]any{"slug": "name", "type": "text", "title": "Name", "required": true},
			map[string]any{"slug": "message", "type": "textarea", "title": "Message"},
		},
	})
	m.MustRegisterForm("search", map[string]any{
		"method": "get",
		"fields": []any{map[string]any{"slug": "q", "type": "text"}},
	})

	store := session.NewMemoryStore(session.WithCleanupInterval(time.Hour))
	t.Cleanup(func() { _ = store.Close() })
	srv := httptest.NewServer(server.New(m,
		server.WithSessions(session.NewManager(store)),
		server.WithMetrics(metrics),
	))
	t.Cleanup(srv.Close)
	return srv, metrics
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, client *http.Client, target string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(target)
	if err != nil {
		t.Fatalf("get %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func post(t *testing.T, client *http.Client, target string, values url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", target)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", target, err)
	}
	resp.Body.Close()
	return resp
}

func TestRenderForm(t *testing.T) {
	srv, _ := newServer(t)
	resp, body := get(t, newClient(t), srv.URL+"/forms/contact")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("content type %q", got)
	}
	for _, fragment := range []string{
		"<title>Contact &lt;us&gt;</title>",
		`action="/forms/contact"`,
		`name="message"`,
	} {
		if !strings.Contains(body, fragment) {
			t.Fatalf("expected %q in page:\n%s", fragment, body)
		}
	}
}

func TestUnknownForm(t *testing.T) {
	srv, _ := newServer(t)
	resp, _ := get(t, newClient(t), srv.URL+"/forms/ghost")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestFailedThenSuccessfulSubmission(t *testing.T) {
	srv, metrics := newServer(t)
	client := newClient(t)
	page := srv.URL + "/forms/contact"

	resp := post(t, client, page, url.Values{"name": {""}, "message": {"hello"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status %d, want 303", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != page {
		t.Fatalf("failed redirect %q", got)
	}

	_, body := get(t, client, page)
	if !strings.Contains(body, "must be filled") || !strings.Contains(body, ">hello</textarea>") {
		t.Fatalf("expected flashed error and kept value:\n%s", body)
	}
	_, body = get(t, client, page)
	if strings.Contains(body, "must be filled") {
		t.Fatalf("error notice shown twice:\n%s", body)
	}

	resp = post(t, client, page, url.Values{"name": {"Ada"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status %d, want 303", resp.StatusCode)
	}
	_, body = get(t, client, page)
	if !strings.Contains(body, form.DefaultSuccessMessage) {
		t.Fatalf("expected success message:\n%s", body)
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	for _, line := range []string{
		`forms_submissions_total{form="contact",outcome="failed"} 1`,
		`forms_submissions_total{form="contact",outcome="success"} 1`,
	} {
		if !strings.Contains(rec.Body.String(), line) {
			t.Fatalf("expected %q in metrics:\n%s", line, rec.Body.String())
		}
	}
}

var tokenField = regexp.MustCompile(`name="_token" type="hidden" value="([^"]+)"`)

func TestSubmissionWithToken(t *testing.T) {
	tokens, err := csrf.New([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("csrf: %v", err)
	}
	srv, metrics := newServer(t, form.WithCSRF(tokens))
	client := newClient(t)
	page := srv.URL + "/forms/contact"

	_, body := get(t, client, page)
	match := tokenField.FindStringSubmatch(body)
	if match == nil {
		t.Fatalf("token field missing:\n%s", body)
	}

	resp := post(t, client, page, url.Values{"name": {"Ada"}, "_token": {"forged"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("forged token: status %d, want 303", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != "/forms/contact" {
		t.Fatalf("forged token redirect %q", got)
	}
	_, body = get(t, client, page)
	if !strings.Contains(body, "CSRF protection is invalid") {
		t.Fatalf("expected rejection notice:\n%s", body)
	}

	resp = post(t, client, page, url.Values{"name": {"Ada"}, "_token": {match[1]}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("valid token: status %d, want 303", resp.StatusCode)
	}
	_, body = get(t, client, page)
	if !strings.Contains(body, form.DefaultSuccessMessage) {
		t.Fatalf("expected success message:\n%s", body)
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	for _, line := range []string{
		`forms_submissions_total{form="contact",outcome="rejected"} 1`,
		`forms_submissions_total{form="contact",outcome="success"} 1`,
	} {
		if !strings.Contains(rec.Body.String(), line) {
			t.Fatalf("expected %q in metrics:\n%s", line, rec.Body.String())
		}
	}
}

func TestGetFormRedirectsAfterProcessing(t *testing.T) {
	srv, _ := newServer(t)
	client := newClient(t)

	resp, _ := get(t, client, srv.URL+"/forms/search?q=go&page=2")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status %d, want 303", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != "/forms/search?page=2" {
		t.Fatalf("redirect %q", got)
	}

	resp = post(t, client, srv.URL+"/forms/search", url.Values{"q": {"go"}})
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("post on a GET form: status %d", resp.StatusCode)
	}
}

func TestIndexListsForms(t *testing.T) {
	srv, _ := newServer(t)
	resp, body := get(t, newClient(t), srv.URL+"/forms/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	want := `[{"alias":"contact","path":"/forms/contact"},{"alias":"search","path":"/forms/search"}]`
	if diff := cmp.Diff(want, strings.TrimSpace(body)); diff != "" {
		t.Fatalf("index mismatch (-want +got):\n%s", diff)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newServer(t)
	client := newClient(t)
	if resp, body := get(t, client, srv.URL+"/healthz"); resp.StatusCode != http.StatusOK || body != "ok" {
		t.Fatalf("healthz: %d %q", resp.StatusCode, body)
	}
	get(t, client, srv.URL+"/forms/contact")
	_, body := get(t, client, srv.URL+"/metrics")
	if !strings.Contains(body, `forms_renders_total{form="contact"} 1`) {
		t.Fatalf("expected render counter:\n%s", body)
	}
}
