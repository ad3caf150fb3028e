package form

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-forms/pkg/params"
)

const (
	// TokenKey is the request key carrying the CSRF token.
	TokenKey = "_token"
	// RefererKey is the request key that overrides the Referer header.
	RefererKey = "_http_referer"

	maxBodyBytes = 32 << 20

	csrfInvalidMessage = "Form could not submitted : CSRF protection is invalid."
)

// Submission outcomes reported to the observer.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Redirect is the response of a processed submission.
type Redirect struct {
	URL    string
	Status int
}

// ServeHTTP writes the redirect.
func (r *Redirect) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	http.Redirect(w, req, r.URL, r.Status)
}

// HandleFactory reads the submitted request and drives validation, failure
// and success.
type HandleFactory struct {
	form    *Form
	request *http.Request
	data    *params.Bag

	submitted *bool
	rejected  bool

	failedURL     string
	failedURLSet  bool
	succeedURL    string
	succeedURLSet bool

	booted bool
}

func newHandleFactory(r *http.Request) *HandleFactory {
	return &HandleFactory{request: r, data: params.New(nil)}
}

// Boot reads the request data for the form method and applies the values
// of the fields supporting request. Values of fields supporting session are
// kept in the form session at "request.<name>".
func (f *HandleFactory) Boot() error {
	if f.booted {
		return nil
	}
	if f.form == nil {
		return missingForm("handle factory")
	}
	f.form.Event("handle.booting", f)

	values, err := readRequest(f.request, f.form.Method())
	if err != nil {
		f.form.logger().Warn("form request payload ignored", "form", f.form.alias, "error", err)
	}
	f.data = params.New(values)

	if f.form.fields != nil {
		for _, field := range f.form.fields.All() {
			if !field.Supports(SupportRequest) {
				continue
			}
			name := field.Name()
			if !f.data.Has(name) {
				continue
			}
			value := f.data.Get(name)
			field.SetValue(value)
			if field.Supports(SupportSession) && f.form.Supports(SupportSession) {
				f.form.Session().Set("request."+name, value)
			}
		}
	}

	f.booted = true
	f.form.Event("handle.booted", f)
	return nil
}

// IsBooted reports whether Boot ran.
func (f *HandleFactory) IsBooted() bool { return f.booted }

// Request returns the handled request, nil for forms built without one.
func (f *HandleFactory) Request() *http.Request { return f.request }

// Data returns the submitted value at key or fallback.
func (f *HandleFactory) Data(key string, fallback any) any {
	return f.data.GetOr(key, fallback)
}

// All returns every submitted value.
func (f *HandleFactory) All() map[string]any { return f.data.All() }

// Token returns the submitted CSRF token.
func (f *HandleFactory) Token() string {
	return params.String(f.data.Get(TokenKey))
}

// IsSubmitted reports whether the request is a submission of this form.
// The request method must match the form method. A GET request only counts
// when its query carries the token or a field name. When a token manager is
// configured the token must verify; a failed check records an error and
// fails the submission.
func (f *HandleFactory) IsSubmitted() bool {
	if f.submitted != nil {
		return *f.submitted
	}
	if err := f.Boot(); err != nil {
		return false
	}
	submitted := f.attempted()
	if submitted {
		if tokens := f.form.tokens(); tokens != nil && !tokens.Verify(f.form.tokenScope(), f.Token()) {
			submitted = false
			f.rejected = true
			f.form.Error(csrfInvalidMessage)
			f.Fail()
		}
	}
	f.submitted = &submitted
	return submitted
}

// IsRejected reports whether the submission failed the CSRF check.
func (f *HandleFactory) IsRejected() bool { return f.rejected }

func (f *HandleFactory) attempted() bool {
	if f.request == nil || !strings.EqualFold(f.request.Method, f.form.Method()) {
		return false
	}
	if !strings.EqualFold(f.form.Method(), http.MethodGet) {
		return true
	}
	if f.data.Has(TokenKey) {
		return true
	}
	for _, field := range f.form.fields.All() {
		if f.data.Has(field.Name()) {
			return true
		}
	}
	return false
}

// Validate validates every field in declaration order. Failures become
// field errors; every field is checked.
func (f *HandleFactory) Validate() {
	for _, field := range f.form.fields.All() {
		err := field.Validate()
		if err == nil {
			continue
		}
		if verr, ok := err.(*FieldValidateError); ok {
			field.Error(verr.Message)
			continue
		}
		f.form.logger().Error("form field validation", "form", f.form.alias, "field", field.Slug(), "error", err)
		field.Error(err.Error())
	}
}

// IsValidated reports whether no error was recorded. When none was, the
// handle.validated event gives listeners a chance to add some.
func (f *HandleFactory) IsValidated() bool {
	if f.form.HasError() {
		return false
	}
	f.form.Event("handle.validated", f)
	return !f.form.HasError()
}

// Fail resets the fields not supporting transport and flashes the recorded
// messages to "notices.<level>".
func (f *HandleFactory) Fail() {
	for _, field := range f.form.fields.All() {
		if !field.Supports(SupportTransport) {
			field.ResetValue()
		}
	}
	for level, notices := range f.form.messages.Export() {
		f.form.Session().Flash("notices."+level, notices)
	}
	f.form.Event("handle.failed", f)
}

// Success clears the form session, marks the form successful and records
// the success message.
func (f *HandleFactory) Success() {
	f.form.Session().Clear()
	f.form.successful = true
	f.form.Session().Flash("successful", true)
	if message := params.String(f.form.Option("success.message")); message != "" {
		f.form.messages.Success(message)
	}
	f.form.Event("handle.successful", f)
}

// FailedRedirectURL returns the redirect target of a failed submission.
// Listeners of handle.failed.redirect_url receive a *string.
func (f *HandleFactory) FailedRedirectURL() string {
	if !f.failedURLSet {
		f.SetFailedRedirectURL(f.refererURL(), false)
	}
	target := f.failedURL
	f.form.Event("handle.failed.redirect_url", &target, f)
	return target
}

// SucceedRedirectURL returns the redirect target of a successful
// submission. Listeners of handle.succeed.redirect_url receive a *string.
func (f *HandleFactory) SucceedRedirectURL() string {
	if !f.succeedURLSet {
		f.SetSucceedRedirectURL(f.refererURL(), false)
	}
	target := f.succeedURL
	f.form.Event("handle.succeed.redirect_url", &target, f)
	return target
}

// SetFailedRedirectURL overrides the failure target. Unless raw, the URL is
// cleaned of submitted GET values and given the form anchor.
func (f *HandleFactory) SetFailedRedirectURL(target string, raw bool) {
	if !raw {
		target = f.generateURL(target)
	}
	f.failedURL, f.failedURLSet = target, true
}

// SetSucceedRedirectURL overrides the success target. Unless raw, the URL
// is cleaned of submitted GET values and given the form anchor.
func (f *HandleFactory) SetSucceedRedirectURL(target string, raw bool) {
	if !raw {
		target = f.generateURL(target)
	}
	f.succeedURL, f.succeedURLSet = target, true
}

func (f *HandleFactory) refererURL() string {
	if referer := params.String(f.data.Get(RefererKey)); referer != "" {
		return referer
	}
	if f.request == nil {
		return ""
	}
	if referer := f.request.Referer(); referer != "" {
		return referer
	}
	return f.request.URL.RequestURI()
}

func (f *HandleFactory) generateURL(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		f.form.logger().Warn("form redirect url kept raw", "form", f.form.alias, "url", target, "error", err)
		return target
	}
	if strings.EqualFold(f.form.Method(), http.MethodGet) {
		query := u.Query()
		query.Del(TokenKey)
		for _, field := range f.form.fields.All() {
			query.Del(field.Name())
			query.Del(field.Name() + "[]")
		}
		u.RawQuery = query.Encode()
	}
	u.Fragment = f.form.Anchor()
	return u.String()
}

// Redirect returns the redirect matching the form outcome.
func (f *HandleFactory) Redirect() *Redirect {
	if f.form.IsSuccessful() {
		return &Redirect{URL: f.SucceedRedirectURL(), Status: http.StatusSeeOther}
	}
	return &Redirect{URL: f.FailedRedirectURL(), Status: http.StatusSeeOther}
}

// Proceed processes a submission: nil when the request is not a submission
// of the form, otherwise the redirect after validation and failure or
// success.
func (f *HandleFactory) Proceed(ctx context.Context) (*Redirect, error) {
	if f.form == nil {
		return nil, missingForm("handle factory")
	}
	ctx, span := f.form.tracer().Start(ctx, "forms.proceed",
		trace.WithAttributes(attribute.String("form.alias", f.form.alias), attribute.String("form.method", f.form.Method())))
	defer span.End()
	start := time.Now()

	if err := f.form.Boot(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "boot")
		return nil, err
	}

	if !f.IsSubmitted() {
		if f.rejected {
			span.SetStatus(codes.Error, "csrf token rejected")
			f.form.observer().Submitted(f.form.alias, OutcomeRejected, time.Since(start))
			f.form.logger().DebugContext(ctx, "form submission rejected", "form", f.form.alias)
		}
		span.SetAttributes(attribute.Bool("form.submitted", false))
		return nil, nil
	}

	f.Validate()
	outcome := OutcomeSuccess
	if f.IsValidated() {
		f.Success()
	} else {
		outcome = OutcomeFailed
		f.Fail()
	}

	redirect := f.Redirect()
	span.SetAttributes(
		attribute.Bool("form.submitted", true),
		attribute.String("form.outcome", outcome),
		attribute.Bool("form.has_error", f.form.HasError()),
	)
	f.form.observer().Submitted(f.form.alias, outcome, time.Since(start))
	f.form.logger().DebugContext(ctx, "form submission processed",
		"form", f.form.alias, "outcome", outcome, "redirect", redirect.URL)
	return redirect, nil
}

// readRequest returns the request values for method: the query string for
// GET, the body otherwise. JSON bodies are read with gjson.
func readRequest(r *http.Request, method string) (map[string]any, error) {
	if r == nil {
		return map[string]any{}, nil
	}
	if strings.EqualFold(method, http.MethodGet) {
		return fromValues(r.URL.Query()), nil
	}
	if !strings.EqualFold(r.Method, method) || r.Body == nil {
		return map[string]any{}, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return map[string]any{}, err
		}
		return fromJSON(body)
	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return map[string]any{}, err
		}
		values := fromValues(r.PostForm)
		if r.MultipartForm != nil {
			for key, headers := range r.MultipartForm.File {
				names := make([]string, 0, len(headers))
				for _, header := range headers {
					names = append(names, header.Filename)
				}
				name, list := listKey(key)
				if list || len(names) > 1 {
					values[name] = names
				} else if len(names) == 1 {
					values[name] = names[0]
				}
			}
		}
		return values, nil
	default:
		if err := r.ParseForm(); err != nil {
			return map[string]any{}, err
		}
		return fromValues(r.PostForm), nil
	}
}

func listKey(key string) (string, bool) {
	if strings.HasSuffix(key, "[]") {
		return strings.TrimSuffix(key, "[]"), true
	}
	return key, false
}

// fromValues keeps single values as strings; "name[]" keys and repeated
// keys become lists.
func fromValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, items := range values {
		name, list := listKey(key)
		if list || len(items) > 1 {
			out[name] = append([]string(nil), items...)
			continue
		}
		if len(items) == 1 {
			out[name] = items[0]
		}
	}
	return out
}

func fromJSON(body []byte) (map[string]any, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return map[string]any{}, nil
	}
	if !gjson.ValidBytes(body) {
		return map[string]any{}, errInvalidJSON
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return map[string]any{}, errInvalidJSON
	}
	out, _ := jsonValue(root).(map[string]any)
	return out, nil
}

// jsonValue converts a gjson result keeping numbers as their raw text, the
// way a form submission carries them.
func jsonValue(result gjson.Result) any {
	switch {
	case result.IsObject():
		out := make(map[string]any)
		result.ForEach(func(key, value gjson.Result) bool {
			out[key.String()] = jsonValue(value)
			return true
		})
		return out
	case result.IsArray():
		items := result.Array()
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, jsonValue(item))
		}
		return out
	}
	switch result.Type {
	case gjson.String:
		return result.Str
	case gjson.Number:
		return result.Raw
	case gjson.True:
		return true
	case gjson.False:
		return false
	}
	return nil
}
