package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"facturard/internal/core/taxid"
)

var errInvalidTaxID = errors.New("invalid tax ID")

func taxidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxid",
		Short: "RNC and Cédula utilities",
	}

	check := &cobra.Command{
		Use:   "check ID",
		Short: "Validate an RNC or Cédula",
		Long: `Validate an RNC (9 digits) or Cédula (11 digits) against its check digit.
Separators such as dashes and spaces are ignored. Exits non-zero when invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digits := taxid.Normalize(args[0])
			kind := taxid.Classify(args[0])
			if kind == taxid.KindUnknown {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tinvalid\n", digits)
				return errInvalidTaxID
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tvalid\t%s\n", digits, kind)
			return nil
		},
	}

	cmd.AddCommand(check)
	return cmd
}
