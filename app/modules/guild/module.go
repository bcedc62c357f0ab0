package guild

import (
	"context"
	"log/slog"
	"sync"
	"time"

	guildservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/application"
	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/config"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/cache"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
	"github.com/uptrace/bun"
)

// pruneInterval is how often expired cache entries are dropped.
const pruneInterval = 10 * time.Minute

// Module represents the guild module.
type Module struct {
	GuildService *guildservice.GuildService
	caches       guildservice.Caches
	logger       *slog.Logger
	cancelFunc   context.CancelFunc
}

// NewGuildModule creates a new instance of the Guild module.
func NewGuildModule(ctx context.Context, cfg *config.Config, obs *observability.Observability, db *bun.DB) *Module {
	logger := obs.Logger.With(slog.String("module", "guild"))
	logger.InfoContext(ctx, "guild.NewGuildModule called")

	caches := guildservice.NewCaches(cache.WithDefaultTTL(cfg.Cache.DefaultTTL))
	service := guildservice.NewGuildService(db, guilddb.NewRepository(db), caches, observability.Telemetry{
		Logger:  logger,
		Metrics: obs.Metrics,
		Tracer:  obs.Tracer,
	})

	return &Module{
		GuildService: service,
		caches:       caches,
		logger:       logger,
	}
}

// Run prunes expired server and role entries until ctx is canceled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting guild module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "Guild module goroutine stopped")
			return
		case <-ticker.C:
			pruned := m.caches.Servers.Prune() + m.caches.Roles.Prune()
			if pruned > 0 {
				m.logger.DebugContext(ctx, "Pruned guild caches", slog.Int("entries", pruned))
			}
		}
	}
}

// Close stops the guild module.
func (m *Module) Close() error {
	m.logger.Info("Stopping guild module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.logger.Info("Guild module stopped")
	return nil
}
