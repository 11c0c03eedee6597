package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/container-status-poller/internal/api"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and HTTP API",
		Long: `Starts a polling run immediately, repeats it every poller.interval_seconds,
and serves health, metrics, and run-trigger endpoints until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(appInstance)
			logger := appInstance.Logger
			cfg := appInstance.Config

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			apiCfg := api.Config{
				Runs:          appInstance.Scheduler,
				WebhookSecret: cfg.Server.WebhookSecret,
				Ready:         appInstance.Ready,
				Logger:        logger,
			}
			if appInstance.Email != nil {
				apiCfg.Tester = appInstance.Email
			}
			apiServer := api.NewServer(apiCfg)
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           apiServer.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			schedulerDone := make(chan struct{})
			go func() {
				defer close(schedulerDone)
				appInstance.Scheduler.Start(ctx)
			}()

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			var runErr error
			select {
			case <-ctx.Done():
			case err, ok := <-serveErr:
				if ok {
					runErr = fmt.Errorf("http server: %w", err)
				}
				stop()
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout())
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown failed", zap.Error(err))
			}
			<-schedulerDone
			apiServer.Wait()
			return runErr
		},
	}
}
