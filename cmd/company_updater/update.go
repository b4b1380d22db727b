package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newUpdateCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "update <slug>",
		Short: "Research and merge one company now",
		Long: "Research the company listed under <slug> in the update configuration, merge the result into its " +
			"record (creating the record if needed) and stamp lastUpdated. Due-ness is not checked.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			upd, cleanup, err := a.buildUpdater(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			company, err := upd.UpdateOne(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(company)
			}
			if a.cfg.Verbose {
				a.printer.PrintCompany(company)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", company.Name, company.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the merged record as JSON")
	return cmd
}

func newUpdateAllCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "update-all",
		Short: "Update every company that is due",
		Long: "Run the batch: select the companies whose update frequency has elapsed (or all of them with --force) " +
			"and update them one at a time. A failing company is logged and skipped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runAll(ctx, cmd, force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Update every company regardless of lastUpdated")
	return cmd
}

func (a *app) runAll(ctx context.Context, cmd *cobra.Command, force bool) error {
	upd, cleanup, err := a.buildUpdater(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := upd.RunAll(ctx, force)
	if result != nil {
		a.printer.PrintBatch(result)
	}
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d companies failed; see log for details\n", len(result.Failed), result.Selected)
	}
	return nil
}
