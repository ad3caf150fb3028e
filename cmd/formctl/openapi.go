package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-forms/pkg/definition"
)

func openapiCmd() *cobra.Command {
	var (
		alias   string
		list    bool
		resolve bool
	)

	cmd := &cobra.Command{
		Use:   "openapi <document> [operationId]",
		Short: "Generate a definition from an OpenAPI operation",
		Long: `Derive a form definition from the request body or query parameters
of an OpenAPI 3 operation and print it as YAML.

Examples:
  formctl openapi api.yaml --list
  formctl openapi api.yaml createContact --alias contact > forms/contact.yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if list || len(args) == 1 {
				ids, err := definition.Operations(cmd.Context(), data)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}

			def, err := definition.FromOpenAPI(cmd.Context(), data, args[1], definition.OpenAPIOptions{
				Alias:             alias,
				ResolveReferences: resolve,
			})
			if err != nil {
				return err
			}
			out, err := definition.Encode(def)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Form alias (default: the operation id)")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List operation ids")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "Resolve and validate references")

	return cmd
}
