// Package observability wires the logger, metrics registry and tracer shared
// by every module.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/shigeru22/snipeid-calc-bot-sub001"

// Config configures the observability stack.
type Config struct {
	ServiceName string
	Environment string
	LogLevel    string
}

// Observability bundles the providers handed to modules.
type Observability struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *PrometheusMetrics
	Tracer   trace.Tracer
}

// New builds the logger, a fresh prometheus registry with the points metrics
// registered, and a tracer from the global otel provider.
func New(cfg Config) *Observability {
	return newWithWriter(cfg, os.Stdout)
}

func newWithWriter(cfg Config, w io.Writer) *Observability {
	logger := NewLogger(cfg, w)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Observability{
		Logger:   logger,
		Registry: registry,
		Metrics:  NewPrometheusMetrics(registry),
		Tracer:   otel.Tracer(instrumentationName),
	}
}

// NewLogger returns a JSON logger, or a text logger in development.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.Environment == "development" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	if cfg.ServiceName != "" {
		logger = logger.With(slog.String("service", cfg.ServiceName))
	}
	if cfg.Environment != "" {
		logger = logger.With(slog.String("env", cfg.Environment))
	}
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NoOpLogger discards everything. Used by tests.
var NoOpLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
