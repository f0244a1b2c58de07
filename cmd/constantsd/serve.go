package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/constants_registry/internal/app/runtime"
	"github.com/R3E-Network/constants_registry/internal/config"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP API",
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			log := commonRun(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := runtime.NewApplication(ctx, cfg, version)
			if err != nil {
				return err
			}

			runErr := application.Run(ctx)
			if runErr != nil {
				log.WithError(runErr).Error("server stopped")
			} else {
				log.Info("shutting down")
			}

			if err := application.Shutdown(context.WithoutCancel(ctx)); err != nil {
				return errors.Join(runErr, err)
			}
			return runErr
		},
	}
}
