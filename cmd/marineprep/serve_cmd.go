package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"marineprep/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger for cycle preparation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bind != "" {
				a.cfg.Server.Bind = bind
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			recorder, closeDB, err := a.recorder(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			run := func(ctx context.Context, cdate string) error {
				_, err := a.runCycle(ctx, cdate, recorder)
				return err
			}
			srv := server.New(a.cfg.Server, a.log, run, recorder)

			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			a.log.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default: server.bind)")
	return cmd
}
