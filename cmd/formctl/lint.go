package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-forms/pkg/definition"
	"github.com/goliatone/go-forms/pkg/form"
)

func lintCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <definitions>",
		Short: "Check definitions build and render",
		Long: `Build and render every form found in the definitions and report
fields whose type has no renderer.

Examples:
  formctl lint ./forms
  formctl lint contact.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := loadDefinitions(args[0])
			if err != nil {
				return err
			}
			issues, err := definition.Check(defs, form.WithLogger(flags.logger()))
			if err != nil {
				return err
			}
			for _, issue := range issues {
				warn("%s", issue.Error())
			}
			if len(issues) > 0 {
				return fmt.Errorf("%d issue(s) in %d form(s)", len(issues), len(defs))
			}
			success("%d form(s) OK", len(defs))
			return nil
		},
	}
	return cmd
}
