package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/storefront/internal/errors"
)

func errorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "errors [code]",
		Short: "List error codes or explain one",
		Long: `List every storefront error code, or print the explanation for one.

Examples:
  storefront errors
  storefront errors SF001`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				code := strings.ToUpper(args[0])
				if _, ok := errors.GetTemplate(code); !ok {
					return errors.New(errors.CodeInvalidArguments).
						WithField(args[0]).
						WithDetail("Unknown error code.").
						WithSuggestion("Run 'storefront errors' to list every code.")
				}
				errors.Fprint(out, errors.New(code))
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, code := range errors.GetAllCodes() {
				t, _ := errors.GetTemplate(code)
				fmt.Fprintf(tw, "%s\t%s\t%s\n", code, t.Category, t.Message)
			}
			return tw.Flush()
		},
	}
}
