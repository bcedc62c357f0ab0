package guildservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/cache"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
	"github.com/uptrace/bun"
)

func (s *GuildService) EnsureServer(ctx context.Context, guildID string) (*guilddb.Server, error) {
	return observability.Observe(ctx, s.telemetry, "EnsureServer", guildID, func(ctx context.Context) (*guilddb.Server, error) {
		server := &guilddb.Server{DiscordID: guildID}
		var created, floorCreated bool

		err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			var err error
			created, err = s.repo.CreateServer(ctx, tx, server)
			if err != nil {
				return err
			}

			roles, err := s.repo.GetRoles(ctx, tx, server.ID)
			if err != nil {
				return err
			}
			for _, r := range roles {
				if r.MinPoints == 0 {
					return nil
				}
			}

			floorCreated = true
			return s.repo.UpsertRole(ctx, tx, &guilddb.Role{
				ServerID:  server.ID,
				Name:      guilddb.FloorRoleName,
				MinPoints: 0,
			})
		})
		if err != nil {
			return nil, err
		}

		s.invalidateServer(server)
		s.caches.Roles.Remove(cache.RolesKey(server.ID))

		switch {
		case created:
			s.logger.InfoContext(ctx, "Registered server", slog.String("guild_id", guildID), slog.Int64("server_id", server.ID))
		case floorCreated:
			s.logger.WarnContext(ctx, "Restored missing floor role", slog.String("guild_id", guildID))
		}
		return server, nil
	})
}

func (s *GuildService) GetServer(ctx context.Context, guildID string) (*guilddb.Server, error) {
	key := cache.GuildKey(guildID)
	if server, ok := s.caches.Servers.Get(key); ok {
		s.metrics.RecordCacheLookup(cache.NamespaceGuild, true)
		return &server, nil
	}
	s.metrics.RecordCacheLookup(cache.NamespaceGuild, false)

	server, err := s.repo.GetServerByDiscordID(ctx, nil, guildID)
	if err != nil {
		if errors.Is(err, guilddb.ErrNotFound) {
			return nil, ErrServerNotFound
		}
		return nil, fmt.Errorf("GuildService.GetServer: %w", err)
	}
	s.storeServer(server)
	return server, nil
}

func (s *GuildService) GetServerByID(ctx context.Context, serverID int64) (*guilddb.Server, error) {
	key := cache.ServerKey(serverID)
	if server, ok := s.caches.Servers.Get(key); ok {
		s.metrics.RecordCacheLookup(cache.NamespaceServer, true)
		return &server, nil
	}
	s.metrics.RecordCacheLookup(cache.NamespaceServer, false)

	server, err := s.repo.GetServerByID(ctx, nil, serverID)
	if err != nil {
		if errors.Is(err, guilddb.ErrNotFound) {
			return nil, ErrServerNotFound
		}
		return nil, fmt.Errorf("GuildService.GetServerByID: %w", err)
	}
	s.storeServer(server)
	return server, nil
}

func (s *GuildService) UpdateServer(ctx context.Context, guildID string, updates *guilddb.UpdateFields) (*guilddb.Server, error) {
	return observability.Observe(ctx, s.telemetry, "UpdateServer", guildID, func(ctx context.Context) (*guilddb.Server, error) {
		if err := s.repo.UpdateServer(ctx, nil, guildID, updates); err != nil {
			if errors.Is(err, guilddb.ErrNoRowsAffected) {
				return nil, ErrServerNotFound
			}
			return nil, err
		}
		s.InvalidateServer(guildID)
		return s.GetServer(ctx, guildID)
	})
}

// InvalidateServer drops the cached row for guildID under both keys.
func (s *GuildService) InvalidateServer(guildID string) {
	key := cache.GuildKey(guildID)
	if server, ok := s.caches.Servers.Get(key); ok {
		s.caches.Servers.Remove(cache.ServerKey(server.ID))
	}
	s.caches.Servers.Remove(key)
}

func (s *GuildService) storeServer(server *guilddb.Server) {
	s.caches.Servers.Set(cache.GuildKey(server.DiscordID), *server)
	s.caches.Servers.Set(cache.ServerKey(server.ID), *server)
}

func (s *GuildService) invalidateServer(server *guilddb.Server) {
	s.caches.Servers.Remove(cache.GuildKey(server.DiscordID))
	s.caches.Servers.Remove(cache.ServerKey(server.ID))
}
