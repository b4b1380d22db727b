package main

import (
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored company records",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			records, _ := a.stores()
			companies, err := records.List()
			if err != nil {
				return err
			}
			a.printer.PrintCompanyList(companies)
			return nil
		},
	}
}
