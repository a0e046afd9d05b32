package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/aradsms/smsbridge/internal/bridge_service/transport/http"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve carrier webhooks and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			mainCtx, mainCancel := context.WithCancel(cmd.Context())
			defer mainCancel()

			rt, err := bootstrap(mainCtx)
			if err != nil {
				return err
			}
			defer rt.Close()
			return serve(mainCtx, mainCancel, rt)
		},
	}
}

func serve(mainCtx context.Context, mainCancel context.CancelFunc, rt *runtime) error {
	appLogger := rt.logger

	router := httptransport.NewRouter(httptransport.NewWebhookRouter(rt.registry, appLogger))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", rt.cfg.BridgeServicePort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", rt.cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("Webhook HTTP server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Webhook HTTP server failed", "error", err)
			return err
		}
		appLogger.Info("Webhook HTTP server stopped")
		return nil
	})

	g.Go(func() error {
		appLogger.Info("Metrics server starting", "address", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Metrics server failed", "error", err)
			return err
		}
		appLogger.Info("Metrics server stopped")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		appLogger.Info("Shutting down servers...")
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics server shutdown error", "error", err)
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Webhook HTTP server shutdown error", "error", err)
		}
		return nil
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var groupErr error
	select {
	case sig := <-sigCh:
		appLogger.Info("Received termination signal", "signal", sig.String())
	case groupErr = <-watchGroup(g):
		appLogger.Error("A critical component failed, initiating shutdown", "error", groupErr)
	}

	mainCancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	appLogger.Info("Service shutdown complete.")
	return groupErr
}

// watchGroup is a helper to monitor an errgroup for early exit.
func watchGroup(g *errgroup.Group) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- g.Wait()
	}()
	return errCh
}
