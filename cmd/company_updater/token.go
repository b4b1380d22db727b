package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/company-updater/internal/config"
	"github.com/jonathan/company-updater/internal/server"
)

func newTokenCmd(a *app) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the trigger routes",
		Long:  "Sign a token with JWT_SECRET for use by a scheduler or operator calling the trigger server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jwtCfg, err := config.JWTConfigFromEnv(a.lookup)
			if err != nil {
				return err
			}
			token, err := server.NewJWTService(jwtCfg).GenerateToken(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "cron", "Token subject identifying the caller")
	return cmd
}
