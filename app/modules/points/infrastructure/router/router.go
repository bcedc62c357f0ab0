package pointsrouter

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	pointshandlers "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/handlers"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type PointsRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     message.Subscriber
	publisher      message.Publisher
	tracer         trace.Tracer
	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewPointsRouter creates a new instance of the router. A nil registry
// disables router metrics.
func NewPointsRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
	prometheusRegistry *prometheus.Registry,
) *PointsRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "", "")
		metricsBuilder = &builder
	}

	return &PointsRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
	}
}

// Configure sets up the middlewares and registers the points handlers.
func (r *PointsRouter) Configure(routerCtx context.Context, handlers pointshandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.logger.Info("Adding Prometheus router metrics middleware for Points")
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2,
			Logger:          r.Router.Logger(),
		}.Middleware,
		middleware.Recoverer,
		traceHandler(r.tracer),
	)

	return r.RegisterHandlers(routerCtx, handlers)
}

// RegisterHandlers binds topics to handlers. Produced messages carry their
// destination in metadata, so the publish topic is left empty.
func (r *PointsRouter) RegisterHandlers(ctx context.Context, handlers pointshandlers.Handlers) error {
	r.logger.InfoContext(ctx, "Registering Points Event Handlers")

	r.Router.AddHandler(
		"points."+pointshandlers.ReconcileRequestedV1,
		pointshandlers.ReconcileRequestedV1,
		r.subscriber,
		"",
		r.publisher,
		handlers.HandleReconcileRequested,
	)
	return nil
}

// Close stops the router and cleans up resources.
func (r *PointsRouter) Close() error {
	return r.Router.Close()
}

func traceHandler(tracer trace.Tracer) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			ctx, span := tracer.Start(msg.Context(), message.HandlerNameFromCtx(msg.Context()),
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(
					attribute.String("message.uuid", msg.UUID),
					attribute.String("correlation_id", middleware.MessageCorrelationID(msg)),
				),
			)
			defer span.End()
			msg.SetContext(ctx)

			out, err := h(msg)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return out, err
		}
	}
}
