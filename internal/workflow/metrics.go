package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type instruments struct {
	stageDuration metric.Float64Histogram
	outcomes      metric.Int64Counter
	inflight      metric.Int64UpDownCounter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	stageDuration, err := meter.Float64Histogram("revoice.stage.duration",
		metric.WithDescription("Duration of a pipeline stage"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	outcomes, err := meter.Int64Counter("revoice.jobs.finished",
		metric.WithDescription("Jobs that reached a terminal state"))
	if err != nil {
		return nil, err
	}
	inflight, err := meter.Int64UpDownCounter("revoice.jobs.inflight",
		metric.WithDescription("Jobs currently running"))
	if err != nil {
		return nil, err
	}
	return &instruments{stageDuration: stageDuration, outcomes: outcomes, inflight: inflight}, nil
}

func (i *instruments) recordStage(ctx context.Context, name string, elapsed time.Duration, err error) {
	i.stageDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("stage", name),
		attribute.Bool("failed", err != nil),
	))
}

func (i *instruments) recordOutcome(ctx context.Context, status string) {
	i.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (i *instruments) track(ctx context.Context, delta int64) {
	i.inflight.Add(ctx, delta)
}
