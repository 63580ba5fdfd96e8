// Package observability wires the process-wide slog default handler.
//
// Text output goes straight to stderr for interactive use. JSON output is
// routed through the OpenTelemetry log SDK so records share one schema
// with the rest of the toolkit: a stdout exporter by default, or an OTLP
// HTTP exporter when an OTEL_EXPORTER_OTLP_*ENDPOINT is configured in the
// environment.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentationName identifies this module in exported log records.
const instrumentationName = "github.com/rlabuda/cfgvault"

// Instrument installs the process-wide slog default handler for the given
// level and format ("text" or "json").
func Instrument(level slog.Level, format string) error {
	if format == "text" && !otlpConfigured() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
		return nil
	}

	exporter, err := newExporter(context.Background())
	if err != nil {
		return fmt.Errorf("creating log exporter: %w", err)
	}

	// Simple (synchronous) processing: the process is a short-lived CLI
	// and must not lose trailing records to an unflushed batch.
	processor := minsev.NewLogProcessor(sdklog.NewSimpleProcessor(exporter), severity(level))
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))

	slog.SetDefault(otelslog.NewLogger(instrumentationName,
		otelslog.WithLoggerProvider(provider),
	))
	return nil
}

// newExporter selects the OTLP HTTP exporter when an endpoint is configured
// in the environment, falling back to stdout record output.
func newExporter(ctx context.Context) (sdklog.Exporter, error) {
	if otlpConfigured() {
		return otlploghttp.New(ctx)
	}
	return stdoutlog.New(stdoutlog.WithWriter(os.Stderr))
}

func otlpConfigured() bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT") != ""
}

// severity converts a slog level to the minimum otel severity to export.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
