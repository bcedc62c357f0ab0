package points

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	guildservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/application"
	pointsservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/application"
	pointsdiscord "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/discord"
	pointshandlers "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/handlers"
	pointsqueue "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/queue"
	pointsdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/repositories"
	pointsrouter "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/router"
	userservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/application"
	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/config"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/eventbus"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
	"github.com/uptrace/bun"
)

const stopTimeout = 10 * time.Second

// Dependencies are the collaborators the points module is built from.
type Dependencies struct {
	DB       *bun.DB
	Guilds   *guildservice.GuildService
	Users    *userservice.UserService
	UserRepo userdb.Repository
	Ranks    pointsservice.RankSource
	OsuUsers pointsservice.OsuUsers
	Session  pointsdiscord.Session
	// EventBus is nil when NATS is not configured.
	EventBus *eventbus.EventBus
}

// Module represents the points module.
type Module struct {
	PointsService *pointsservice.PointsService
	Bot           *pointsdiscord.Bot
	PointsRouter  *pointsrouter.PointsRouter
	Queue         *pointsqueue.Service
	logger        *slog.Logger
	cancelFunc    context.CancelFunc
}

// NewPointsModule creates the points service and the surfaces that drive it:
// the Discord bot always, the event router when an event bus is given, and
// the refresh queue when scheduled refresh is enabled.
func NewPointsModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	deps Dependencies,
	routerCtx context.Context,
) (*Module, error) {
	logger := obs.Logger.With(slog.String("module", "points"))
	logger.InfoContext(ctx, "points.NewPointsModule called")

	service := pointsservice.NewPointsService(
		deps.DB,
		pointsdb.NewRepository(deps.DB),
		deps.UserRepo,
		deps.Guilds,
		deps.Users,
		deps.Ranks,
		deps.OsuUsers,
		observability.Telemetry{
			Logger:  logger,
			Metrics: obs.Metrics,
			Tracer:  obs.Tracer,
		},
	)

	bot := pointsdiscord.NewBot(deps.Session, deps.Guilds, deps.Users, service, logger)

	module := &Module{
		PointsService: service,
		Bot:           bot,
		logger:        logger,
	}

	if deps.EventBus != nil {
		router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create points message router: %w", err)
		}

		pointsRouter := pointsrouter.NewPointsRouter(
			logger,
			router,
			deps.EventBus,
			eventbus.WithMetadataTopics(deps.EventBus),
			obs.Tracer,
			obs.Registry,
		)
		handlers := pointshandlers.NewPointsHandlers(service, bot.RoleSync(), logger)
		if err := pointsRouter.Configure(routerCtx, handlers); err != nil {
			return nil, fmt.Errorf("failed to configure points router: %w", err)
		}
		module.PointsRouter = pointsRouter
	}

	if cfg.Refresh.Enabled {
		queue, err := pointsqueue.NewService(ctx, logger, cfg.Postgres.DSN, pointsqueue.Config{
			Interval:   cfg.Refresh.Interval,
			StaleAfter: cfg.Refresh.StaleAfter,
			BatchSize:  cfg.Refresh.BatchSize,
		}, obs.Metrics, service, bot.RoleSync())
		if err != nil {
			return nil, fmt.Errorf("failed to create points queue: %w", err)
		}
		module.Queue = queue
	}

	return module, nil
}

// Run starts the router and the refresh queue and blocks until ctx is
// canceled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting points module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.PointsRouter != nil {
		go func() {
			if err := m.PointsRouter.Router.Run(ctx); err != nil {
				m.logger.ErrorContext(ctx, "Points router stopped with error", slog.Any("error", err))
			}
		}()
	}

	if m.Queue != nil {
		if err := m.Queue.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to start points queue", slog.Any("error", err))
		}
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Points module goroutine stopped")
}

// HealthCheck reports whether the refresh queue can reach its database.
func (m *Module) HealthCheck(ctx context.Context) error {
	if m.Queue == nil {
		return nil
	}
	return m.Queue.HealthCheck(ctx)
}

// Close stops the points module and cleans up resources.
func (m *Module) Close() error {
	m.logger.Info("Stopping points module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	var firstErr error
	if m.Queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := m.Queue.Stop(ctx); err != nil {
			m.logger.Error("Error stopping points queue", slog.Any("error", err))
			firstErr = fmt.Errorf("error stopping points queue: %w", err)
		}
	}

	if m.PointsRouter != nil {
		if err := m.PointsRouter.Close(); err != nil {
			m.logger.Error("Error closing PointsRouter from module", slog.Any("error", err))
			if firstErr == nil {
				firstErr = fmt.Errorf("error closing PointsRouter: %w", err)
			}
		}
	}

	m.logger.Info("Points module stopped")
	return firstErr
}
