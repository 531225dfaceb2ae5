package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/avsvcgw/internal/config"
	"github.com/vyrodovalexey/avsvcgw/internal/observability"
)

// runGateway runs the gateway daemon until a shutdown signal arrives.
func runGateway(app *application, configPath string, logger observability.Logger) {
	ctx := context.Background()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.Start(ctx)
	}()

	if app.metricsServer != nil {
		go func() {
			if err := app.metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server failed", observability.Error(err))
			}
		}()
	}

	watcher := startConfigWatcher(app, configPath, logger)

	waitForShutdown(app, watcher, configPath, serverErr, logger)
}

// waitForShutdown blocks on signals: SIGHUP reloads the configuration,
// SIGINT/SIGTERM shut the daemon down gracefully.
func waitForShutdown(
	app *application,
	watcher *config.Watcher,
	configPath string,
	serverErr <-chan error,
	logger observability.Logger,
) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case err := <-serverErr:
			if err != nil {
				logger.Error("server exited", observability.Error(err))
			}
			shutdown(app, watcher, logger)
			return

		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("received SIGHUP, reloading configuration")
				reloadFromPath(app, configPath, logger)
				continue
			}

			logger.Info("received shutdown signal", observability.String("signal", sig.String()))
			shutdown(app, watcher, logger)
			return
		}
	}
}

// shutdown stops all components within the configured grace period.
func shutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		app.config.Server.ShutdownTimeout.Duration())
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if app.metricsServer != nil {
		logger.Info("stopping metrics server")
		if err := app.metricsServer.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop metrics server gracefully", observability.Error(err))
		}
	}

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	app.gateway.Close()

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("gateway stopped")
}
