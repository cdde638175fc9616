package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	logglobal "go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"revoice/internal/config"
)

// InstrumentationName scopes tracers, meters and bridged loggers.
const InstrumentationName = "revoice"

// Providers bundles the telemetry providers handed to components.
type Providers struct {
	Tracer trace.TracerProvider
	Meter  metric.MeterProvider
	// LogHandler exports slog records over OTLP; nil when log export is off.
	LogHandler slog.Handler

	shutdown []func(context.Context) error
}

// Noop returns providers that record nothing.
func Noop() *Providers {
	return &Providers{
		Tracer: tracenoop.NewTracerProvider(),
		Meter:  metricnoop.NewMeterProvider(),
	}
}

// Setup builds OTLP exporters from cfg.Telemetry and registers the providers
// globally. Disabled telemetry returns Noop().
func Setup(ctx context.Context, cfg *config.Config) (*Providers, error) {
	t := cfg.Telemetry
	if !t.Enabled {
		return Noop(), nil
	}
	endpoint, insecure := splitEndpoint(t.Endpoint, t.Insecure)
	if endpoint == "" {
		return nil, errors.New("telemetry: otlp endpoint required")
	}
	name := t.ServiceName
	if name == "" {
		name = InstrumentationName
	}
	res := resource.NewSchemaless(attribute.String("service.name", name))
	p := &Providers{}

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
	}
	traceExp, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp), sdktrace.WithResource(res))
	p.Tracer = tp
	p.shutdown = append(p.shutdown, tp.Shutdown)

	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if insecure {
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}
	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	p.Meter = mp
	p.shutdown = append(p.shutdown, mp.Shutdown)

	if t.RuntimeStats {
		if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("telemetry: runtime metrics: %w", err)
		}
	}

	if t.ExportLogs {
		logOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(endpoint)}
		if insecure {
			logOpts = append(logOpts, otlploghttp.WithInsecure())
		}
		logExp, err := otlploghttp.New(ctx, logOpts...)
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("telemetry: log exporter: %w", err)
		}
		lp := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
			sdklog.WithResource(res),
		)
		p.LogHandler = otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(lp))
		p.shutdown = append(p.shutdown, lp.Shutdown)
		logglobal.SetLoggerProvider(lp)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	return p, nil
}

// Shutdown flushes and stops every provider, newest first.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	for i := len(p.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, p.shutdown[i](ctx))
	}
	p.shutdown = nil
	return errors.Join(errs...)
}

// splitEndpoint accepts host:port or a URL. An http:// scheme forces
// insecure transport.
func splitEndpoint(raw string, insecure bool) (string, bool) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "http://"):
		raw, insecure = strings.TrimPrefix(raw, "http://"), true
	case strings.HasPrefix(raw, "https://"):
		raw = strings.TrimPrefix(raw, "https://")
	}
	return strings.TrimRight(raw, "/"), insecure
}
