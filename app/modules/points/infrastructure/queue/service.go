package pointsqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/database"
)

// QueuePoints is the dedicated queue for refresh jobs.
const QueuePoints = "points"

// Metrics records queue lifecycle measurements.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// Config controls the scheduled refresh.
type Config struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
}

// QueueService runs the scheduled refresh.
type QueueService interface {
	// Start starts the queue service
	Start(ctx context.Context) error
	// Stop stops the queue service
	Stop(ctx context.Context) error
	// HealthCheck verifies the queue database is reachable
	HealthCheck(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Service runs the periodic stale-user sweep on River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics Metrics
}

// NewService creates a River-backed refresh queue. River needs pgx, so it
// opens its own pool on dsn.
func NewService(ctx context.Context, logger *slog.Logger, dsn string, cfg Config, metrics Metrics, refresher Refresher, roles RoleApplier) (*Service, error) {
	ctxLogger := logger.With(
		slog.String("operation", "new_points_queue_service"),
		slog.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", "river")

	ctxLogger.Info("Initializing Points queue service")

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		ctxLogger.Error("Failed to parse DSN for River", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		ctxLogger.Error("Failed to create pgx pool for River", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := database.MigrateRiver(ctx, pool); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to migrate River schema", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, err
	}

	sweep := NewSweepWorker(ctxLogger, refresher, cfg.StaleAfter, cfg.BatchSize)

	workers := river.NewWorkers()
	river.AddWorker(workers, sweep)
	river.AddWorker(workers, NewUserWorker(ctxLogger, refresher, roles))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
			// osu! rate limits make wider fan-out pointless
			QueuePoints: {MaxWorkers: 4},
		},
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.Interval),
				func() (river.JobArgs, *river.InsertOpts) {
					return RefreshSweepJob{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}
	sweep.SetInserter(riverClient)

	service := &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		metrics: metrics,
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	metrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))

	ctxLogger.Info("Points queue service initialized successfully",
		slog.Duration("interval", cfg.Interval),
		slog.Duration("stale_after", cfg.StaleAfter),
		slog.Int("batch_size", cfg.BatchSize),
	)
	return service, nil
}

// Start starts the River queue service
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", "river")

	s.logger.Info("Starting Points queue service")

	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	s.metrics.RecordOperationDuration(ctx, "start_service", "river", time.Since(start))

	s.logger.Info("Points queue service started successfully")
	return nil
}

// Stop stops the River queue service and closes its pool.
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", "river")

	s.logger.Info("Stopping Points queue service")
	defer s.pool.Close()

	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	s.metrics.RecordOperationDuration(ctx, "stop_service", "river", time.Since(start))

	s.logger.Info("Points queue service stopped successfully")
	return nil
}

// HealthCheck verifies the queue service is healthy
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("river client is nil")
	}
	if err := s.pool.Ping(ctx); err != nil {
		s.logger.Error("Queue service health check failed", slog.Any("error", err))
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
