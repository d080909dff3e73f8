package pipeline

import (
	"context"
	"sync"
	"time"

	"clarity-board/internal/intent"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("clarity-board.pipeline")
	meter  = otel.Meter("clarity-board.pipeline")
)

var (
	mutationsTotal   metric.Int64Counter
	rollbacksTotal   metric.Int64Counter
	mutationDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		mutationsTotal, err = meter.Int64Counter(
			"board_mutations_total",
			metric.WithDescription("Settled board mutations by kind and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rollbacksTotal, err = meter.Int64Counter(
			"board_rollbacks_total",
			metric.WithDescription("Optimistic board mutations restored from a snapshot"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		mutationDuration, err = meter.Float64Histogram(
			"board_mutation_duration_seconds",
			metric.WithDescription("Time from apply to settle of a board mutation"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordMutation(ctx context.Context, kind intent.Kind, state State, d time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", string(state)),
	)
	mutationsTotal.Add(ctx, 1, attrs)
	mutationDuration.Record(ctx, d.Seconds(), attrs)
	if state == StateRolledBack {
		rollbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	}
}

func startMutationSpan(ctx context.Context, in intent.Intent, mutationID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Pipeline."+string(in.Kind),
		trace.WithAttributes(
			attribute.String("board.mutation_id", mutationID),
			attribute.String("board.project_id", in.ProjectID),
			attribute.String("board.kind", string(in.Kind)),
		),
	)
}

func setSpanOutcome(span trace.Span, res Result) {
	span.SetAttributes(attribute.String("board.state", string(res.State)))
	if res.State == StateRolledBack {
		span.SetStatus(codes.Error, res.Message)
	}
}
