package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-forms/pkg/form"
	"github.com/goliatone/go-forms/pkg/tui"
)

func fillCmd(flags *globalFlags) *cobra.Command {
	var (
		format      string
		submit      string
		maxAttempts int
	)

	cmd := &cobra.Command{
		Use:   "fill <definitions> <alias>",
		Short: "Fill a form interactively",
		Long: `Ask for every field of a form in the terminal. Answers are checked
against the field rules and asked again until they pass.

The collected values are printed, or sent to a running server with --submit.

Examples:
  formctl fill forms.yaml contact
  formctl fill ./forms contact --format form
  formctl fill ./forms contact --submit http://localhost:8080`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := tui.OutputFormat(strings.ToLower(format))
			if output != tui.OutputFormatJSON && output != tui.OutputFormatFormURLEncoded {
				return fmt.Errorf("unknown format %q", format)
			}

			m, err := flags.manager(args[0])
			if err != nil {
				return err
			}
			f, err := m.Get(args[1])
			if err != nil {
				return err
			}

			filler := tui.New(
				tui.WithPromptDriver(tui.NewSurveyDriver(cmd.ErrOrStderr())),
				tui.WithMaxAttempts(maxAttempts),
			)
			values, err := filler.Fill(cmd.Context(), f)
			if err != nil {
				return err
			}

			if submit != "" {
				return send(cmd, f, values, submit)
			}
			data, err := tui.Encode(values, output)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(tui.OutputFormatJSON), "Output format (json, form)")
	cmd.Flags().StringVar(&submit, "submit", "", "Base URL to submit the answers to")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 3, "Invalid answers allowed per field, 0 for no limit")

	return cmd
}

func send(cmd *cobra.Command, f *form.Form, values url.Values, base string) error {
	target, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("submit url %q: %w", base, err)
	}
	req, err := tui.Request(cmd.Context(), f, values)
	if err != nil {
		return err
	}
	req.URL = target.ResolveReference(req.URL)
	req.Host = req.URL.Host

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("submit %s: %s", req.URL, resp.Status)
	}
	if location := resp.Header.Get("Location"); location != "" {
		success("Submitted, redirected to %s", location)
		return nil
	}
	success("Submitted: %s", resp.Status)
	return nil
}
