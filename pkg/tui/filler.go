// Package tui fills forms from a terminal. Every answer is checked against
// the field rules before the next question.
package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/goliatone/go-forms/pkg/controls"
	"github.com/goliatone/go-forms/pkg/form"
	"github.com/goliatone/go-forms/pkg/params"
)

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrTooManyAttempts is returned when a field keeps failing validation.
	ErrTooManyAttempts = errors.New("tui: too many invalid answers")
)

// OutputFormat controls how collected values are serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits application/json payloads.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded payloads.
	OutputFormatFormURLEncoded OutputFormat = "form"
)

// Filler asks one question per requestable field of a form.
type Filler struct {
	driver      PromptDriver
	maxAttempts int
	errorPrefix string
}

// Option configures a Filler.
type Option func(*Filler)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithMaxAttempts bounds how often an invalid answer is asked again.
// Zero means no bound.
func WithMaxAttempts(n int) Option {
	return func(f *Filler) {
		f.maxAttempts = n
	}
}

// WithErrorPrefix sets the prefix printed before validation messages.
func WithErrorPrefix(prefix string) Option {
	return func(f *Filler) {
		f.errorPrefix = prefix
	}
}

// New returns a Filler using the survey driver on stdout.
func New(options ...Option) *Filler {
	f := &Filler{errorPrefix: "✗ "}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver(os.Stdout)
	}
	return f
}

// Fill prompts for every field of the booted form that reads the request,
// in render order, and returns the answers keyed by field name. Hidden
// fields keep their value. The CSRF token is added when the form has one.
func (f *Filler) Fill(ctx context.Context, fm *form.Form) (url.Values, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := fm.Boot(); err != nil {
		return nil, err
	}

	values := url.Values{}
	for _, field := range fm.Fields().Sorted() {
		if !field.Supports(form.SupportRequest) {
			continue
		}
		if field.Type() == controls.TypeHidden {
			values.Set(field.Name(), params.String(field.Value(true)))
			continue
		}
		answer, err := f.askValid(ctx, field)
		if err != nil {
			return nil, err
		}
		switch typed := answer.(type) {
		case []string:
			for _, item := range typed {
				values.Add(field.Name()+"[]", item)
			}
		case string:
			if typed != "" {
				values.Set(field.Name(), typed)
			}
		}
	}
	if token := fm.CSRF(); token != "" {
		values.Set(form.TokenKey, token)
	}
	return values, nil
}

func (f *Filler) askValid(ctx context.Context, field form.FieldDriver) (any, error) {
	for attempt := 1; ; attempt++ {
		answer, err := f.ask(ctx, field)
		if err != nil {
			return nil, err
		}
		message := check(field, answer)
		if message == "" {
			return answer, nil
		}
		if err := f.driver.Info(ctx, f.errorPrefix+message); err != nil {
			return nil, err
		}
		if f.maxAttempts > 0 && attempt >= f.maxAttempts {
			return nil, fmt.Errorf("%w: %s", ErrTooManyAttempts, field.Slug())
		}
	}
}

// check runs the field rules against answer and returns the failure
// message, "" when the answer is valid.
func check(field form.FieldDriver, answer any) string {
	field.SetValue(answer)
	err := field.Validate()
	if err == nil {
		return ""
	}
	var verr *form.FieldValidateError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

func (f *Filler) ask(ctx context.Context, field form.FieldDriver) (any, error) {
	message := field.Title()
	if field.Params().GetBool("required.check") {
		message += " *"
	}
	current := params.String(field.Value(true))
	choices := controls.ParseChoices(field.Params().Get("choices"))
	labels := make([]string, 0, len(choices))
	for _, choice := range choices {
		labels = append(labels, choice.Label)
	}
	question := Question{
		Message: message,
		Default: current,
		Check: func(answer string) error {
			if failure := check(field, answer); failure != "" {
				return errors.New(failure)
			}
			return nil
		},
	}

	switch field.Type() {
	case controls.TypePassword:
		question.Secret = true
		question.Default = ""
	case controls.TypeTextarea:
		question.Multiline = true
	case controls.TypeCheckbox, controls.TypeToggleSwitch:
		checkedValue := params.String(field.Extras()["checked"])
		if checkedValue == "" {
			checkedValue = "on"
		}
		ok, err := f.driver.Confirm(ctx, message, current == checkedValue)
		if err != nil || !ok {
			return "", err
		}
		return checkedValue, nil
	case controls.TypeSelect, controls.TypeSelectJS, controls.TypeRadioCollection:
		if len(choices) == 0 {
			break
		}
		index, err := f.driver.Choose(ctx, message, labels, choiceIndex(choices, current))
		if err != nil || index < 0 {
			return "", err
		}
		return choices[index].Value, nil
	case controls.TypeCheckboxCollection:
		if len(choices) == 0 {
			break
		}
		var defaults []int
		for _, value := range params.Strings(field.Value(true)) {
			if i := choiceIndex(choices, value); i >= 0 {
				defaults = append(defaults, i)
			}
		}
		indices, err := f.driver.ChooseMany(ctx, message, labels, defaults)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(indices))
		for _, i := range indices {
			out = append(out, choices[i].Value)
		}
		return out, nil
	}
	return f.driver.Text(ctx, question)
}

func choiceIndex(choices []controls.Choice, value string) int {
	for i, choice := range choices {
		if choice.Value == value {
			return i
		}
	}
	return -1
}

// Request builds the submission request of fm carrying values: a query
// string for GET forms, an urlencoded body otherwise.
func Request(ctx context.Context, fm *form.Form, values url.Values) (*http.Request, error) {
	action := fm.Action()
	if action == "" {
		action = "/"
	}
	method := strings.ToUpper(fm.Method())
	if method == http.MethodGet {
		target, err := url.Parse(action)
		if err != nil {
			return nil, fmt.Errorf("tui: form action %q: %w", action, err)
		}
		query := target.Query()
		for key, items := range values {
			query[key] = items
		}
		target.RawQuery = query.Encode()
		return http.NewRequestWithContext(ctx, method, target.String(), nil)
	}
	r, err := http.NewRequestWithContext(ctx, method, action, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r, nil
}

// Encode serializes collected values. Single values stay scalars in JSON.
func Encode(values url.Values, format OutputFormat) ([]byte, error) {
	if format == OutputFormatFormURLEncoded {
		return []byte(values.Encode()), nil
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(values))
	for _, key := range keys {
		items := values[key]
		name := strings.TrimSuffix(key, "[]")
		if len(items) == 1 && name == key {
			out[name] = items[0]
			continue
		}
		out[name] = items
	}
	data, err := sonic.ConfigStd.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("tui: encode values: %w", err)
	}
	return data, nil
}
