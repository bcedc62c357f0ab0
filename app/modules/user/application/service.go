package userservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	guildservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/application"
	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/cache"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/osu"
)

const serviceName = "UserService"

// ServerLookup resolves the guild a command runs in.
type ServerLookup interface {
	GetServer(ctx context.Context, guildID string) (*guilddb.Server, error)
}

// UserService implements the Service interface.
type UserService struct {
	repo      userdb.Repository
	servers   ServerLookup
	osu       OsuUsers
	users     *cache.Cache[userdb.User]
	logger    *slog.Logger
	metrics   observability.PointsMetrics
	telemetry observability.Telemetry
}

var _ Service = (*UserService)(nil)

// NewUserService creates a new UserService. users mirrors rows under
// USER_<osuId>.
func NewUserService(
	repo userdb.Repository,
	servers ServerLookup,
	osuUsers OsuUsers,
	users *cache.Cache[userdb.User],
	tel observability.Telemetry,
) *UserService {
	tel.Service = serviceName
	return &UserService{
		repo:      repo,
		servers:   servers,
		osu:       osuUsers,
		users:     users,
		logger:    tel.Logger,
		metrics:   tel.Metrics,
		telemetry: tel,
	}
}

// LinkUser links a Discord member to an osu! account after checking the
// server's country restriction.
func (s *UserService) LinkUser(ctx context.Context, guildID, discordID string, osuID int64) (*LinkResult, error) {
	return observability.Observe(ctx, s.telemetry, "LinkUser", guildID, func(ctx context.Context) (*LinkResult, error) {
		if osuID <= 0 {
			return nil, ErrInvalidOsuID
		}

		server, err := s.servers.GetServer(ctx, guildID)
		if err != nil {
			return nil, err
		}

		if _, err := s.repo.GetUserByDiscordID(ctx, nil, discordID); err == nil {
			return nil, ErrAlreadyLinked
		} else if !errors.Is(err, userdb.ErrNotFound) {
			return nil, err
		}

		profile, err := s.osu.GetUser(ctx, osuID)
		if err != nil {
			if errors.Is(err, osu.ErrUserNotFound) {
				return nil, ErrOsuUserNotFound
			}
			return nil, err
		}

		if server.Country != nil && !strings.EqualFold(*server.Country, profile.CountryCode) {
			s.logger.InfoContext(ctx, "Rejected link from another country",
				slog.String("guild_id", guildID),
				slog.Int64("osu_id", osuID),
				slog.String("country", profile.CountryCode),
			)
			return nil, ErrCountryMismatch
		}

		user := &userdb.User{
			DiscordID: discordID,
			OsuID:     profile.ID,
			Username:  profile.Username,
			Country:   strings.ToUpper(profile.CountryCode),
		}
		if err := s.repo.CreateUser(ctx, nil, user); err != nil {
			if errors.Is(err, userdb.ErrAlreadyExists) {
				return nil, ErrAlreadyLinked
			}
			return nil, err
		}
		s.users.Set(cache.UserKey(user.OsuID), *user)

		s.logger.InfoContext(ctx, "Linked user",
			slog.String("guild_id", guildID),
			slog.String("discord_id", discordID),
			slog.Int64("osu_id", user.OsuID),
		)
		return &LinkResult{User: user, VerifiedRoleID: server.VerifiedRoleID}, nil
	})
}

// GetUserByOsuID returns the linked user, consulting USER_<osuId> first.
func (s *UserService) GetUserByOsuID(ctx context.Context, osuID int64) (*userdb.User, error) {
	key := cache.UserKey(osuID)
	if u, ok := s.users.Get(key); ok {
		s.metrics.RecordCacheLookup(cache.NamespaceUser, true)
		return &u, nil
	}
	s.metrics.RecordCacheLookup(cache.NamespaceUser, false)

	u, err := s.repo.GetUserByOsuID(ctx, nil, osuID)
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("UserService.GetUserByOsuID: %w", err)
	}
	s.users.Set(key, *u)
	return u, nil
}

func (s *UserService) GetUserByDiscordID(ctx context.Context, discordID string) (*userdb.User, error) {
	u, err := s.repo.GetUserByDiscordID(ctx, nil, discordID)
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("UserService.GetUserByDiscordID: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (*userdb.User, error) {
	u, err := s.repo.GetUserByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("UserService.GetUserByID: %w", err)
	}
	return u, nil
}

// InvalidateUser drops USER_<osuId>.
func (s *UserService) InvalidateUser(osuID int64) {
	s.users.Remove(cache.UserKey(osuID))
}

// Compile-time check that the guild service can serve lookups.
var _ ServerLookup = (*guildservice.GuildService)(nil)
