package main

import (
	"context"
	"sync"

	"github.com/vyrodovalexey/avsvcgw/internal/config"
	"github.com/vyrodovalexey/avsvcgw/internal/observability"
)

// reloadMu serializes reloads from SIGHUP and the file watcher.
var reloadMu sync.Mutex

// reloadFromPath re-reads the configuration file and applies it.
func reloadFromPath(app *application, configPath string, logger observability.Logger) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error("reload: failed to load configuration", observability.Error(err))
		return
	}
	applyConfig(app, cfg, logger)
}

// applyConfig builds a fresh gateway from the new configuration and
// swaps it in atomically. The registry is immutable, so a reload is a
// whole-gateway replacement; in-flight requests finish against the old
// instance before it is closed. Server and observability settings keep
// their boot-time values; changing those requires a restart.
func applyConfig(app *application, cfg *config.Config, logger observability.Logger) {
	reloadMu.Lock()
	defer reloadMu.Unlock()

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Error("reload: invalid configuration, keeping current",
			observability.Error(err))
		return
	}

	gw, err := buildGateway(cfg, logger)
	if err != nil {
		logger.Error("reload: failed to build gateway, keeping current",
			observability.Error(err))
		return
	}

	old := app.server.SwapGateway(gw)
	app.gateway = gw
	app.config = cfg
	old.Close()

	logger.Info("configuration reloaded",
		observability.Int("services", len(cfg.Services)),
	)
}

// startConfigWatcher watches the configuration file and reloads on
// change. A watcher failure is not fatal; SIGHUP still works.
func startConfigWatcher(app *application, configPath string, logger observability.Logger) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, func(cfg *config.Config) {
		logger.Info("configuration file changed, reloading")
		applyConfig(app, cfg, logger)
	}, config.WithLogger(logger))
	if err != nil {
		logger.Warn("failed to create config watcher; reload via SIGHUP only",
			observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher; reload via SIGHUP only",
			observability.Error(err))
		return nil
	}

	return watcher
}
