// Package telemetry records spans and counters for planning-store operations.
//
// Nothing is exported unless TRELLIS_OTEL_ENABLED=true. Where the data goes is
// decided once per process by sinksFromEnv:
//
//	TRELLIS_OTEL_STDOUT=true               spans and counters printed to stdout
//	OTEL_EXPORTER_OTLP_METRICS_ENDPOINT    counters pushed over OTLP/HTTP (host:port)
//	OTEL_EXPORTER_OTLP_ENDPOINT            fallback for the metrics endpoint
//	OTEL_SERVICE_NAME                      replaces the "trellis" service name
//
// A trellis invocation lives for one command, so spans are only useful to
// someone watching the terminal. They go to stdout whenever stdout is a sink,
// and also when no collector is configured at all.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const scopeName = "github.com/langadventurellc/trellis-mcp-sub003"

// Push intervals. A CLI run seldom reaches either; Shutdown flushes what is
// left.
const (
	stdoutInterval = 15 * time.Second
	otlpInterval   = 30 * time.Second
)

var flushers []func(context.Context) error

// sinks says where telemetry is exported.
type sinks struct {
	stdout   bool
	endpoint string // OTLP/HTTP metrics collector, empty for none
}

func sinksFromEnv() sinks {
	s := sinks{stdout: os.Getenv("TRELLIS_OTEL_STDOUT") == "true"}
	for _, k := range []string{"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		if v := os.Getenv(k); v != "" {
			s.endpoint = v
			break
		}
	}
	return s
}

// spansToStdout reports whether the span exporter is installed. Without it
// spans are still sampled but dropped at the end.
func (s sinks) spansToStdout() bool {
	return s.stdout || s.endpoint == ""
}

// Enabled reports whether TRELLIS_OTEL_ENABLED=true.
func Enabled() bool {
	return os.Getenv("TRELLIS_OTEL_ENABLED") == "true"
}

// Init installs the global providers for one trellis invocation. With
// telemetry disabled the no-op providers are installed, so instruments taken
// from Tracer and Meter cost nothing.
func Init(ctx context.Context, serviceName, version string) error {
	if !Enabled() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		serviceName = name
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	out := sinksFromEnv()

	tp, err := out.tracerProvider(res)
	if err != nil {
		return fmt.Errorf("telemetry: span exporter: %w", err)
	}
	otel.SetTracerProvider(tp)
	flushers = append(flushers, tp.Shutdown)

	mp, err := out.meterProvider(ctx, res)
	if err != nil {
		return fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	otel.SetMeterProvider(mp)
	flushers = append(flushers, mp.Shutdown)

	return nil
}

func (s sinks) tracerProvider(res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if s.spansToStdout() {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func (s sinks) meterProvider(ctx context.Context, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if s.stdout {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(stdoutInterval)),
		))
	}
	if s.endpoint != "" {
		// Collectors for a local planning tool run next to it, so plain HTTP.
		exp, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(s.endpoint),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("otlp %s: %w", s.endpoint, err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(otlpInterval)),
		))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

// Tracer returns the tracer for name, or for the module when name is empty.
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = scopeName
	}
	return otel.Tracer(name)
}

// Meter returns the meter for name, or for the module when name is empty.
func Meter(name string) metric.Meter {
	if name == "" {
		name = scopeName
	}
	return otel.Meter(name)
}

// Shutdown flushes pending spans and counters. main calls it once after the
// command finishes. Export errors never change the exit status.
func Shutdown(ctx context.Context) {
	for _, flush := range flushers {
		_ = flush(ctx)
	}
	flushers = nil
}
