package telemetry

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetup_TraceWriterReceivesSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Config{Metrics: MetricsNone, TraceWriter: &buf})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "Pipeline.task.move")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "Pipeline.task.move") {
		t.Fatalf("expected span in trace output; got %q", buf.String())
	}
}

func TestSetup_PrometheusServesMeterInstruments(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Metrics: MetricsPrometheus})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	counter, err := otel.Meter("telemetry-test").Int64Counter("board_test_events_total")
	if err != nil {
		t.Fatalf("Int64Counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	h := MetricsHandler()
	if h == nil {
		t.Fatalf("expected metrics handler")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "board_test_events_total") {
		t.Fatalf("expected counter in metrics output")
	}

	if _, err := Setup(context.Background(), Config{Metrics: MetricsPrometheus}); err != nil {
		t.Fatalf("second Setup: %v", err)
	}
}

func TestSetup_RejectsUnknownExporter(t *testing.T) {
	if _, err := Setup(context.Background(), Config{Metrics: "statsd"}); err == nil {
		t.Fatalf("expected error")
	}
}
