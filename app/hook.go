package app

import (
	"context"
	"log/slog"
	"time"
)

const shutdownTimeout = 15 * time.Second

// Close stops every module and releases the process resources. The osu!
// token is revoked when one is live.
func (app *App) Close() {
	logger := app.Observability.Logger
	logger.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if app.Session != nil {
		if err := app.Session.Close(); err != nil {
			logger.Error("Error closing discord session", slog.Any("error", err))
		}
	}

	if app.httpServer != nil {
		if err := app.httpServer.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down metrics server", slog.Any("error", err))
		}
	}

	if app.PointsModule != nil {
		closeModule(logger, "points", app.PointsModule)
	}
	if app.UserModule != nil {
		closeModule(logger, "user", app.UserModule)
	}
	if app.GuildModule != nil {
		closeModule(logger, "guild", app.GuildModule)
	}
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("Timed out waiting for modules to stop")
	}

	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			logger.Error("Error closing event bus", slog.Any("error", err))
		}
	}

	if app.Tokens != nil && app.Tokens.Live() {
		if err := app.Tokens.Revoke(ctx); err != nil {
			logger.Warn("Failed to revoke osu! token", slog.Any("error", err))
		}
	}

	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			logger.Error("Error closing database connection", slog.Any("error", err))
		}
	}

	logger.Info("Application shut down gracefully.")
}

type closer interface {
	Close() error
}

// closeModule stops m and logs a failure instead of aborting the shutdown.
func closeModule(logger *slog.Logger, name string, m closer) {
	if err := m.Close(); err != nil {
		logger.Error("Error closing module",
			slog.String("module", name),
			slog.Any("error", err),
		)
	}
}
