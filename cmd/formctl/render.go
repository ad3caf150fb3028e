package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-forms/pkg/form"
)

func renderCmd(flags *globalFlags) *cobra.Command {
	var (
		action string
		values map[string]string
	)

	cmd := &cobra.Command{
		Use:   "render <definitions> <alias>",
		Short: "Print the HTML of a form",
		Long: `Render a form to stdout. <definitions> is a definition file or a
directory of them.

Examples:
  formctl render forms.yaml contact
  formctl render ./forms contact --action /contact --set name=Ada`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := flags.manager(args[0])
			if err != nil {
				return err
			}
			overrides := map[string]any{}
			if action != "" {
				overrides["action"] = action
			}
			f, err := m.Get(args[1], form.WithParams(overrides))
			if err != nil {
				return err
			}
			if err := f.Boot(); err != nil {
				return err
			}
			for slug, value := range values {
				field, ok := f.Field(slug)
				if !ok {
					return fmt.Errorf("form %q has no field %q", f.Alias(), slug)
				}
				field.SetValue(value)
			}
			out, err := f.Render()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "Override the form action")
	cmd.Flags().StringToStringVar(&values, "set", nil, "Prefill field values (slug=value)")

	return cmd
}
