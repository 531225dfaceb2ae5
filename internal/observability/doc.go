// Package observability provides logging, metrics, and tracing
// functionality for the service gateway.
//
// This package implements the three pillars of observability:
// structured logging via zap, Prometheus metrics exposition, and
// distributed tracing via OpenTelemetry with OTLP export.
//
// # Logging
//
// The Logger interface provides structured logging:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("request completed",
//	    observability.String("service", "weather"),
//	    observability.Int("status", 200),
//	)
//
// # Metrics
//
// Domain packages register their metrics on the default Prometheus
// registry; MetricsServer exposes them:
//
//	srv := observability.NewMetricsServer(observability.DefaultMetricsServerConfig(), logger)
//	go srv.Start(ctx)
//
// # Tracing
//
// OpenTelemetry distributed tracing with OTLP-gRPC export:
//
//	tracer, err := observability.NewTracer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(ctx)
package observability
