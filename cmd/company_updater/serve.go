package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/company-updater/internal/config"
	"github.com/jonathan/company-updater/internal/server"
	"github.com/jonathan/company-updater/internal/server/ratelimit"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP trigger server",
		Long: "Start an HTTP server exposing POST /api/companies/update, POST and GET /api/companies/update-all " +
			"and GET /health. Trigger routes require a bearer token when JWT_SECRET is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !cmd.Flags().Changed("port") {
				port = a.cfg.Port
			}

			jwtCfg, err := config.OptionalJWTConfig(a.lookup)
			if err != nil {
				return fmt.Errorf("failed to create JWT config: %w", err)
			}

			upd, cleanup, err := a.buildUpdater(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := server.New(server.Config{
				Port:      port,
				JWT:       jwtCfg,
				RateLimit: ratelimit.LoadConfigFrom(a.lookup),
				Logger:    a.logger.Named("server"),
			}, upd)
			return srv.Start(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	return cmd
}
