package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Telemetry is what a service needs to instrument its operations.
type Telemetry struct {
	Service string
	Logger  *slog.Logger
	Metrics PointsMetrics
	Tracer  trace.Tracer
}

// NewTestTelemetry returns a Telemetry that discards everything.
func NewTestTelemetry(service string) Telemetry {
	return Telemetry{
		Service: service,
		Logger:  NoOpLogger,
		Metrics: NoOpMetrics{},
		Tracer:  noop.NewTracerProvider().Tracer("test"),
	}
}

// Observe wraps a service operation with a span, attempt/success/failure
// metrics, duration and panic recovery. Errors are wrapped with the
// operation name.
func Observe[T any](
	ctx context.Context,
	t Telemetry,
	operationName string,
	guildID string,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	ctx, span := t.Tracer.Start(ctx, t.Service+"."+operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("guild_id", guildID),
	))
	defer span.End()

	t.Metrics.RecordOperationAttempt(ctx, operationName, t.Service)

	startTime := time.Now()
	defer func() {
		t.Metrics.RecordOperationDuration(ctx, operationName, t.Service, time.Since(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			t.Logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("operation", operationName),
				slog.String("guild_id", guildID),
				slog.Any("error", err),
			)
			t.Metrics.RecordOperationFailure(ctx, operationName, t.Service)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			var zero T
			result = zero
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		t.Logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("guild_id", guildID),
			slog.Any("error", wrappedErr),
		)
		t.Metrics.RecordOperationFailure(ctx, operationName, t.Service)
		span.RecordError(wrappedErr)
		span.SetStatus(codes.Error, wrappedErr.Error())
		return result, wrappedErr
	}

	t.Logger.DebugContext(ctx, "Operation completed successfully",
		slog.String("operation", operationName),
		slog.String("guild_id", guildID),
	)
	t.Metrics.RecordOperationSuccess(ctx, operationName, t.Service)
	return result, nil
}
