package guildservice

import (
	"log/slog"

	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/cache"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/database"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
)

const serviceName = "GuildService"

// Caches are the process-local mirrors of server and role rows. Servers are
// stored under both GUILD_<discordId> and SERVER_<id>.
type Caches struct {
	Servers *cache.Cache[guilddb.Server]
	Roles   *cache.Cache[[]guilddb.Role]
}

// NewCaches creates empty caches.
func NewCaches(opts ...cache.Option) Caches {
	return Caches{
		Servers: cache.New[guilddb.Server](opts...),
		Roles:   cache.New[[]guilddb.Role](opts...),
	}
}

// GuildService implements the Service interface.
type GuildService struct {
	db        database.TxRunner
	repo      guilddb.Repository
	caches    Caches
	logger    *slog.Logger
	metrics   observability.PointsMetrics
	telemetry observability.Telemetry
}

var _ Service = (*GuildService)(nil)

// NewGuildService creates a new GuildService.
func NewGuildService(
	db database.TxRunner,
	repo guilddb.Repository,
	caches Caches,
	tel observability.Telemetry,
) *GuildService {
	tel.Service = serviceName
	return &GuildService{
		db:        db,
		repo:      repo,
		caches:    caches,
		logger:    tel.Logger,
		metrics:   tel.Metrics,
		telemetry: tel,
	}
}
