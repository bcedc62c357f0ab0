package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	pointsdiscord "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/discord"
)

const apiCachePruneInterval = 5 * time.Minute

// Run starts the modules, connects to Discord and serves the metrics
// endpoint. It blocks until ctx is canceled.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Logger

	app.wg.Add(3)
	go app.GuildModule.Run(ctx, &app.wg)
	go app.UserModule.Run(ctx, &app.wg)
	go app.PointsModule.Run(ctx, &app.wg)

	go app.pruneAPICaches(ctx)

	if app.Config.Observability.MetricsAddress != "" {
		go func() {
			logger.Info("Starting metrics server", slog.String("address", app.httpServer.Addr))
			if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", slog.Any("error", err))
			}
		}()
	}

	if err := app.Session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	if err := pointsdiscord.RegisterCommands(app.Session, app.Session.State.User.ID, app.Config.Discord.CommandGuildID); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	logger.InfoContext(ctx, "Bot is running", slog.String("user", app.Session.State.User.Username))

	<-ctx.Done()
	return nil
}

func (app *App) pruneAPICaches(ctx context.Context) {
	ticker := time.NewTicker(apiCachePruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.osuCache.Prune()
			app.osuStatsCache.Prune()
		}
	}
}
