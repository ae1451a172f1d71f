package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/server"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the normalization, matching and review API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.stop()

			if err := a.start(ctx, startOptions{migrate: opts.cfg.DatabaseMigrateOnStart, services: true}); err != nil {
				return err
			}

			cfg := opts.cfg
			if _, err := a.container(cfg.AppName); err != nil {
				return err
			}

			srv := server.New(server.Config{
				ServiceName:       cfg.AppName,
				Port:              cfg.Port,
				ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
				ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
				WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
				IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
				MaxHeaderBytes:    cfg.MaxHeaderBytes,
				AllowOrigins:      cfg.AllowOrigins,
				AllowMethods:      cfg.AllowMethods,
				ContainerID:       cfg.AppName,
			}, a.checker, opts.logger)

			a.checker.SetReady(true)
			return srv.Run(ctx, cfg.ShutdownTimeout)
		},
	}
}
