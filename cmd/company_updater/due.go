package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/company-updater/internal/research"
	"github.com/jonathan/company-updater/internal/updater"
)

func newDueCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List the companies update-all would refresh",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			records, policies := a.stores()
			upd := updater.New(records, policies, research.Selector{}, updater.Config{Logger: a.logger})
			due, err := upd.Due(force)
			if err != nil {
				return err
			}
			a.printer.PrintDue(due, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "List every company")
	return cmd
}
