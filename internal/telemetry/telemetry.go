// Package telemetry installs the OpenTelemetry providers used by the board
// engine: metrics exported through the Prometheus registry, and optional span
// output for local debugging.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricsPrometheus = "prometheus"
	MetricsNone       = "none"
)

type Config struct {
	ServiceName string
	// Metrics is "prometheus" or "none".
	Metrics string
	// TraceWriter receives finished spans as JSON when non-nil.
	TraceWriter io.Writer
}

var (
	metricsHandler   http.Handler
	metricsHandlerMu sync.RWMutex
)

// MetricsHandler returns the /metrics handler, or nil when Prometheus export
// was not set up.
func MetricsHandler() http.Handler {
	metricsHandlerMu.RLock()
	defer metricsHandlerMu.RUnlock()
	return metricsHandler
}

// Setup installs global meter and tracer providers. The returned function
// flushes and shuts them down. Prometheus export is installed at most once per
// process; later calls keep the existing meter provider.
func Setup(_ context.Context, cfg Config) (func(context.Context) error, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "clarity-board"
	}
	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", name),
	)

	var shutdowns []func(context.Context) error

	switch strings.ToLower(strings.TrimSpace(cfg.Metrics)) {
	case "", MetricsPrometheus:
		if MetricsHandler() != nil {
			// The exporter registers with the default Prometheus registry,
			// which accepts it once per process.
			break
		}
		exporter, err := promexporter.New()
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)

		metricsHandlerMu.Lock()
		metricsHandler = promhttp.Handler()
		metricsHandlerMu.Unlock()
	case MetricsNone:
	default:
		return nil, fmt.Errorf("unknown metrics exporter %q (expected %s or %s)", cfg.Metrics, MetricsPrometheus, MetricsNone)
	}

	if cfg.TraceWriter != nil {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(cfg.TraceWriter))
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSyncer(exporter),
		)
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	return func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			if err := shutdowns[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}, nil
}
