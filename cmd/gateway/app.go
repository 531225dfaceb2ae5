package main

import (
	"github.com/vyrodovalexey/avsvcgw/internal/config"
	"github.com/vyrodovalexey/avsvcgw/internal/gateway"
	"github.com/vyrodovalexey/avsvcgw/internal/observability"
	"github.com/vyrodovalexey/avsvcgw/internal/server"
)

// application holds all application components.
type application struct {
	config        *config.Config
	gateway       *gateway.Gateway
	server        *server.Server
	metricsServer *observability.MetricsServer
	tracer        *observability.Tracer
	logger        observability.Logger
}

// initApplication initializes all application components.
func initApplication(cfg *config.Config, logger observability.Logger) *application {
	tracer := initTracer(cfg, logger)

	gw, err := buildGateway(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create gateway", observability.Error(err))
	}

	srv := server.New(&cfg.Server, gw, logger)

	app := &application{
		config:  cfg,
		gateway: gw,
		server:  srv,
		tracer:  tracer,
		logger:  logger,
	}

	if cfg.Observability.Metrics.Enabled {
		app.metricsServer = observability.NewMetricsServer(observability.MetricsServerConfig{
			Port: cfg.Observability.Metrics.Port,
			Path: cfg.Observability.Metrics.Path,
		}, logger)
	}

	return app
}

// buildGateway constructs a gateway from configuration. Reload builds a
// fresh instance the same way and swaps it in.
func buildGateway(cfg *config.Config, logger observability.Logger) (*gateway.Gateway, error) {
	return gateway.New(cfg,
		gateway.WithLogger(logger),
		gateway.WithSession(server.RelaySession{}),
	)
}

// initTracer initializes the tracer.
func initTracer(cfg *config.Config, logger observability.Logger) *observability.Tracer {
	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  cfg.Observability.Tracing.ServiceName,
		OTLPEndpoint: cfg.Observability.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Observability.Tracing.SampleRate,
		Enabled:      cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal("failed to initialize tracer", observability.Error(err))
	}
	return tracer
}
