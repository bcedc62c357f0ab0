// Package app assembles the modules into a running bot.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild"
	"github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points"
	"github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user"
	"github.com/shigeru22/snipeid-calc-bot-sub001/config"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/cache"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/database"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/eventbus"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/osu"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/osustats"
	"github.com/uptrace/bun"
)

const serviceName = "snipeid-calc-bot"

// App holds the long-lived resources of the process.
type App struct {
	Config        *config.Config
	Observability *observability.Observability
	DB            *bun.DB
	EventBus      *eventbus.EventBus
	Session       *discordgo.Session
	Tokens        *osu.TokenManager

	GuildModule  *guild.Module
	UserModule   *user.Module
	PointsModule *points.Module

	osuCache      *cache.Cache[osu.User]
	osuStatsCache *cache.Cache[int]
	httpServer    *http.Server
	wg            sync.WaitGroup
	cancelFunc    context.CancelFunc
}

// NewApp loads the configuration file at configPath and prepares every
// module. Nothing is started until Run.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	app := &App{Config: cfg}
	if err := app.Initialize(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

// Initialize builds the database, clients and modules from app.Config.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.Config

	obs := observability.New(observability.Config{
		ServiceName: serviceName,
		Environment: cfg.Observability.Environment,
		LogLevel:    cfg.Observability.LogLevel,
	})
	app.Observability = obs
	logger := obs.Logger

	logger.InfoContext(ctx, "Initializing application",
		slog.String("environment", cfg.Observability.Environment),
		slog.Bool("event_bus", cfg.NATS.URL != ""),
		slog.Bool("scheduled_refresh", cfg.Refresh.Enabled),
	)

	app.DB = database.Open(cfg.Postgres.DSN)
	if err := app.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx, app.DB, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	app.Tokens = osu.NewTokenManager(osu.TokenManagerConfig{
		BaseURL:      cfg.Osu.BaseURL,
		ClientID:     cfg.Osu.ClientID,
		ClientSecret: cfg.Osu.ClientSecret,
		Logger:       logger.With(slog.String("component", "osu_token")),
		Metrics:      obs.Metrics,
	})

	app.osuCache = cache.New[osu.User](cache.WithDefaultTTL(cfg.Cache.APITTL))
	osuClient := osu.NewClient(app.Tokens, osu.ClientConfig{
		BaseURL:           cfg.Osu.BaseURL,
		RequestsPerSecond: cfg.Osu.RequestsPerSecond,
		Cache:             app.osuCache,
		Metrics:           obs.Metrics,
		Logger:            logger.With(slog.String("component", "osu_client")),
	})

	app.osuStatsCache = cache.New[int](cache.WithDefaultTTL(cfg.Cache.APITTL))
	osuStatsClient := osustats.NewClient(osustats.Config{
		BaseURL: cfg.OsuStats.BaseURL,
		Cache:   app.osuStatsCache,
		Metrics: obs.Metrics,
		Logger:  logger.With(slog.String("component", "osustats_client")),
	})

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	app.Session = session

	if cfg.NATS.URL != "" {
		bus, err := eventbus.New(cfg.NATS.URL, logger.With(slog.String("component", "eventbus")))
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		app.EventBus = bus
	}

	app.GuildModule = guild.NewGuildModule(ctx, cfg, obs, app.DB)
	app.UserModule = user.NewUserModule(ctx, cfg, obs, app.DB, app.GuildModule.GuildService, osuClient)

	routerCtx, cancel := context.WithCancel(context.Background())
	app.cancelFunc = cancel

	pointsModule, err := points.NewPointsModule(ctx, cfg, obs, points.Dependencies{
		DB:       app.DB,
		Guilds:   app.GuildModule.GuildService,
		Users:    app.UserModule.UserService,
		UserRepo: app.UserModule.Repository,
		Ranks:    osuStatsClient,
		OsuUsers: osuClient,
		Session:  session,
		EventBus: app.EventBus,
	}, routerCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to initialize points module: %w", err)
	}
	app.PointsModule = pointsModule

	session.AddHandler(pointsModule.Bot.OnGuildCreate)
	session.AddHandler(pointsModule.Bot.OnInteractionCreate)

	app.httpServer = &http.Server{
		Addr:    cfg.Observability.MetricsAddress,
		Handler: app.Router(),
	}

	logger.InfoContext(ctx, "Application initialized")
	return nil
}
