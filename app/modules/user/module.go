package user

import (
	"context"
	"log/slog"
	"sync"
	"time"

	userservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/application"
	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/config"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/cache"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
	"github.com/uptrace/bun"
)

const pruneInterval = 10 * time.Minute

// Module represents the user module.
type Module struct {
	UserService *userservice.UserService
	Repository  userdb.Repository
	users       *cache.Cache[userdb.User]
	logger      *slog.Logger
	cancelFunc  context.CancelFunc
}

// NewUserModule creates a new instance of the User module.
func NewUserModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	db *bun.DB,
	servers userservice.ServerLookup,
	osuUsers userservice.OsuUsers,
) *Module {
	logger := obs.Logger.With(slog.String("module", "user"))
	logger.InfoContext(ctx, "user.NewUserModule called")

	repo := userdb.NewRepository(db)
	users := cache.New[userdb.User](cache.WithDefaultTTL(cfg.Cache.DefaultTTL))
	service := userservice.NewUserService(repo, servers, osuUsers, users, observability.Telemetry{
		Logger:  logger,
		Metrics: obs.Metrics,
		Tracer:  obs.Tracer,
	})

	return &Module{
		UserService: service,
		Repository:  repo,
		users:       users,
		logger:      logger,
	}
}

// Run prunes expired user entries until ctx is canceled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting user module")

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
			m.logger.InfoContext(ctx, "User module goroutine stopped")
			return
		case <-ticker.C:
			if pruned := m.users.Prune(); pruned > 0 {
				m.logger.DebugContext(ctx, "Pruned user cache", slog.Int("entries", pruned))
			}
		}
	}
}

// Close stops the user module.
func (m *Module) Close() error {
	m.logger.Info("Stopping user module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.logger.Info("User module stopped")
	return nil
}
