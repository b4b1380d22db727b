package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/company-updater/internal/schemas"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the update configuration and every stored record against their JSON schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			records, policies := a.stores()

			var failed int
			check := func(schema, path string) {
				if err := schemas.ValidateFile(schema, path); err != nil {
					failed++
					var verr *schemas.ValidationError
					if errors.As(err, &verr) {
						fmt.Fprintf(out, "✗ %s\n", path)
						for _, fe := range verr.Errors {
							fmt.Fprintf(out, "    %s: %s\n", fe.Field, fe.Message)
						}
						return
					}
					fmt.Fprintf(out, "✗ %s: %v\n", path, err)
					return
				}
				if a.cfg.Verbose {
					fmt.Fprintf(out, "✓ %s\n", path)
				}
			}

			check(schemas.UpdateConfigSchema, policies.Path())

			ids, err := records.IDs()
			if err != nil {
				return err
			}
			for _, id := range ids {
				check(schemas.CompanySchema, records.Path(id))
			}

			fmt.Fprintf(out, "Checked %d files, %d invalid\n", len(ids)+1, failed)
			if failed > 0 {
				return fmt.Errorf("%d files failed validation", failed)
			}
			return nil
		},
	}
}
