package pointsservice

import (
	"log/slog"
	"time"

	pointsdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/repositories"
	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/database"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
)

const serviceName = "PointsService"

// PointsService implements the Service interface.
type PointsService struct {
	db        database.TxRunner
	repo      pointsdb.Repository
	userRepo  userdb.Repository
	guilds    Guilds
	users     Users
	ranks     RankSource
	osu       OsuUsers
	locks     *keyedMutex
	logger    *slog.Logger
	metrics   observability.PointsMetrics
	telemetry observability.Telemetry
	now       func() time.Time
}

var _ Service = (*PointsService)(nil)

// NewPointsService creates a new PointsService.
func NewPointsService(
	db database.TxRunner,
	repo pointsdb.Repository,
	userRepo userdb.Repository,
	guilds Guilds,
	users Users,
	ranks RankSource,
	osuUsers OsuUsers,
	tel observability.Telemetry,
) *PointsService {
	tel.Service = serviceName
	return &PointsService{
		db:        db,
		repo:      repo,
		userRepo:  userRepo,
		guilds:    guilds,
		users:     users,
		ranks:     ranks,
		osu:       osuUsers,
		locks:     newKeyedMutex(),
		logger:    tel.Logger,
		metrics:   tel.Metrics,
		telemetry: tel,
		now:       time.Now,
	}
}
