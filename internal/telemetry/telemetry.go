package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "querychat"

func rotatingFile(logDir, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir, name),
		MaxSize:    10, // 10 MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// InitLogger initializes structured logging with rotation.
// The terminal belongs to the chat UI, so logs only go to file.
func InitLogger(logDir string, debug bool) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	logFile := rotatingFile(logDir, "querychat.log")

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, logFile, nil
}

// Telemetry holds the tracer and meter handed to the query client, plus
// whatever has to be flushed on exit.
type Telemetry struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	shutdown []func(context.Context) error
}

// InitTelemetry initializes OpenTelemetry tracing and metrics. Traces go to
// <logDir>/querychat_traces.log and metrics to <logDir>/querychat_metrics.log
// every 10 seconds. With enabled false it returns no-op instruments and
// writes nothing.
func InitTelemetry(ctx context.Context, logDir string, enabled bool) (*Telemetry, error) {
	if !enabled {
		return &Telemetry{
			Tracer: tracenoop.NewTracerProvider().Tracer(serviceName),
			Meter:  metricnoop.NewMeterProvider().Meter(serviceName),
		}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	t := &Telemetry{}

	tp, err := newTracerProvider(res, rotatingFile(logDir, "querychat_traces.log"), t)
	if err != nil {
		return nil, err
	}
	mp, err := newMeterProvider(res, rotatingFile(logDir, "querychat_metrics.log"), t)
	if err != nil {
		t.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	t.Tracer = tp.Tracer(serviceName)
	t.Meter = mp.Meter(serviceName)
	return t, nil
}

func newTracerProvider(res *resource.Resource, out *lumberjack.Logger, t *Telemetry) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(out),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	t.onShutdown(tp.Shutdown, closeFile(out))
	return tp, nil
}

func newMeterProvider(res *resource.Resource, out *lumberjack.Logger, t *Telemetry) (*sdkmetric.MeterProvider, error) {
	exporter, err := stdoutmetric.New(
		stdoutmetric.WithWriter(out),
		stdoutmetric.WithPrettyPrint(),
	)
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second)),
		),
		sdkmetric.WithResource(res),
	)
	t.onShutdown(mp.Shutdown, closeFile(out))
	return mp, nil
}

func closeFile(f io.Closer) func(context.Context) error {
	return func(context.Context) error { return f.Close() }
}

// onShutdown queues fns to run in order on Shutdown
func (t *Telemetry) onShutdown(fns ...func(context.Context) error) {
	t.shutdown = append(t.shutdown, fns...)
}

// Shutdown flushes pending spans and metrics and closes their files. It is
// safe to call more than once.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdown = nil
	return errors.Join(errs...)
}
