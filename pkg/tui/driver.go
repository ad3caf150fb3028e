package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Question is a free text prompt. Secret hides the input; Multiline opens
// an editor-like prompt. Check, when set, rejects an answer with a message.
type Question struct {
	Message   string
	Default   string
	Secret    bool
	Multiline bool
	Check     func(answer string) error
}

// PromptDriver asks the questions. The survey driver talks to the terminal;
// tests script the answers.
type PromptDriver interface {
	Text(ctx context.Context, q Question) (string, error)
	Confirm(ctx context.Context, message string, def bool) (bool, error)
	Choose(ctx context.Context, message string, options []string, def int) (int, error)
	ChooseMany(ctx context.Context, message string, options []string, defs []int) ([]int, error)
	Info(ctx context.Context, msg string) error
}

type surveyDriver struct {
	out io.Writer
}

// NewSurveyDriver returns the terminal driver. Info messages go to out.
func NewSurveyDriver(out io.Writer) PromptDriver {
	return &surveyDriver{out: out}
}

func (d *surveyDriver) Text(ctx context.Context, q Question) (string, error) {
	var prompt survey.Prompt
	switch {
	case q.Secret:
		prompt = &survey.Password{Message: q.Message}
	case q.Multiline:
		prompt = &survey.Multiline{Message: q.Message, Default: q.Default}
	default:
		prompt = &survey.Input{Message: q.Message, Default: q.Default}
	}
	var opts []survey.AskOpt
	if q.Check != nil {
		opts = append(opts, survey.WithValidator(func(ans any) error {
			return q.Check(fmt.Sprint(ans))
		}))
	}
	var answer string
	return answer, ask(ctx, prompt, &answer, opts...)
}

func (d *surveyDriver) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	var answer bool
	return answer, ask(ctx, &survey.Confirm{Message: message, Default: def}, &answer)
}

func (d *surveyDriver) Choose(ctx context.Context, message string, options []string, def int) (int, error) {
	prompt := &survey.Select{Message: message, Options: options}
	if def >= 0 && def < len(options) {
		prompt.Default = options[def]
	}
	var answer string
	if err := ask(ctx, prompt, &answer); err != nil {
		return -1, err
	}
	return slices.Index(options, answer), nil
}

func (d *surveyDriver) ChooseMany(ctx context.Context, message string, options []string, defs []int) ([]int, error) {
	prompt := &survey.MultiSelect{Message: message, Options: options}
	var selected []string
	for _, i := range defs {
		if i >= 0 && i < len(options) {
			selected = append(selected, options[i])
		}
	}
	if len(selected) > 0 {
		prompt.Default = selected
	}

	var answers []string
	if err := ask(ctx, prompt, &answers); err != nil {
		return nil, err
	}
	var out []int
	for i, option := range options {
		if slices.Contains(answers, option) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (d *surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

// ask runs one survey prompt. An interrupt becomes ErrAborted.
func ask(ctx context.Context, prompt survey.Prompt, answer any, opts ...survey.AskOpt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := survey.AskOne(prompt, answer, opts...)
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
