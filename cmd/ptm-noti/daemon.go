package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	ptmhttp "github.com/Shayennn/ptm-noti/internal/http"
)

func daemonCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Poll on a schedule and serve the status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, *cfgFile)
			if err != nil {
				return err
			}

			status := &ptmhttp.RunStatus{}
			handler := ptmhttp.NewHandler(a.store, a.archive, status, a.log)
			srv := &http.Server{
				Addr:    a.cfg.HTTP.ListenAddr,
				Handler: ptmhttp.NewRouter(handler),
			}

			go func() {
				a.log.Info().Str("addr", srv.Addr).Msg("status api listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.log.Error().Err(err).Msg("status api failed")
				}
			}()

			a.log.Info().Dur("interval", a.cfg.PollInterval).Msg("daemon started")
			ticker := time.NewTicker(a.cfg.PollInterval)
			defer ticker.Stop()

			for {
				runStart := time.Now()
				err := a.runOnce(ctx)
				if err != nil {
					a.log.Error().Err(err).Msg("unhandled error")
				}
				status.Record(runStart, err)

				select {
				case <-ctx.Done():
					a.log.Info().Msg("shutting down")
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					return srv.Shutdown(shutdownCtx)
				case <-ticker.C:
				}
			}
		},
	}
}
