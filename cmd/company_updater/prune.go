package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/company-updater/internal/config"
	"github.com/jonathan/company-updater/internal/db"
)

func newPruneCacheCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune-cache",
		Short: "Delete expired reference pages from the page cache",
		Long:  "Only the postgres backend needs pruning; redis entries expire on their own.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if a.cfg.CacheBackend != config.CachePostgres {
				fmt.Fprintf(out, "Nothing to prune for cache backend %q\n", a.cfg.CacheBackend)
				return nil
			}

			ctx := cmd.Context()
			database, err := db.Connect(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := database.DeleteExpiredPages(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted %d expired pages\n", n)
			return nil
		},
	}
}
