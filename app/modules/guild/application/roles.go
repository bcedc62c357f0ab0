package guildservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/cache"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
)

// GetRoles returns a copy of the server's roles; callers may modify it.
func (s *GuildService) GetRoles(ctx context.Context, serverID int64) ([]guilddb.Role, error) {
	key := cache.RolesKey(serverID)
	if roles, ok := s.caches.Roles.Get(key); ok {
		s.metrics.RecordCacheLookup(cache.NamespaceRoles, true)
		return slices.Clone(roles), nil
	}
	s.metrics.RecordCacheLookup(cache.NamespaceRoles, false)

	roles, err := s.repo.GetRoles(ctx, nil, serverID)
	if err != nil {
		return nil, fmt.Errorf("GuildService.GetRoles: %w", err)
	}
	s.caches.Roles.Set(key, slices.Clone(roles))
	return roles, nil
}

func (s *GuildService) InvalidateRoles(serverID int64) {
	s.caches.Roles.Remove(cache.RolesKey(serverID))
}

// RoleChange is the outcome of SetRole. Previous is the threshold row as it
// was before the write, nil when the threshold is new.
type RoleChange struct {
	Role     *guilddb.Role
	Previous *guilddb.Role
}

// Rebound reports whether the threshold already existed under another
// Discord role. Members holding it still carry the previous one.
func (c *RoleChange) Rebound() bool {
	if c.Previous == nil {
		return false
	}
	old, cur := c.Previous.DiscordID, c.Role.DiscordID
	if old == nil || cur == nil {
		return old != nil || cur != nil
	}
	return *old != *cur
}

// SetRole binds a Discord role to a threshold, replacing the role already at
// that threshold. A zero threshold attaches the Discord role to the floor.
// The row keeps its id, so assignments follow it to the new Discord role.
func (s *GuildService) SetRole(ctx context.Context, guildID, discordRoleID, name string, minPoints int) (*RoleChange, error) {
	return observability.Observe(ctx, s.telemetry, "SetRole", guildID, func(ctx context.Context) (*RoleChange, error) {
		if minPoints < 0 {
			return nil, ErrInvalidThreshold
		}
		server, err := s.GetServer(ctx, guildID)
		if err != nil {
			return nil, err
		}

		roles, err := s.GetRoles(ctx, server.ID)
		if err != nil {
			return nil, err
		}
		var previous *guilddb.Role
		if idx := slices.IndexFunc(roles, func(r guilddb.Role) bool { return r.MinPoints == minPoints }); idx >= 0 {
			previous = &roles[idx]
		}

		role := &guilddb.Role{
			ServerID:  server.ID,
			DiscordID: &discordRoleID,
			Name:      name,
			MinPoints: minPoints,
		}
		if err := s.repo.UpsertRole(ctx, nil, role); err != nil {
			return nil, err
		}
		s.InvalidateRoles(server.ID)

		change := &RoleChange{Role: role, Previous: previous}
		s.logger.InfoContext(ctx, "Role threshold set",
			slog.String("guild_id", guildID),
			slog.String("role_id", discordRoleID),
			slog.Int("min_points", minPoints),
			slog.Bool("rebound", change.Rebound()),
		)
		return change, nil
	})
}

// RemoveRole deletes a threshold role. The floor role stays.
func (s *GuildService) RemoveRole(ctx context.Context, guildID, discordRoleID string) error {
	_, err := observability.Observe(ctx, s.telemetry, "RemoveRole", guildID, func(ctx context.Context) (struct{}, error) {
		server, err := s.GetServer(ctx, guildID)
		if err != nil {
			return struct{}{}, err
		}

		roles, err := s.GetRoles(ctx, server.ID)
		if err != nil {
			return struct{}{}, err
		}
		idx := slices.IndexFunc(roles, func(r guilddb.Role) bool {
			return r.DiscordID != nil && *r.DiscordID == discordRoleID
		})
		if idx < 0 {
			return struct{}{}, ErrRoleNotFound
		}
		if roles[idx].MinPoints == 0 {
			return struct{}{}, ErrFloorRole
		}

		err = s.repo.DeleteRole(ctx, nil, server.ID, discordRoleID)
		switch {
		case errors.Is(err, guilddb.ErrNoRowsAffected):
			s.InvalidateRoles(server.ID)
			return struct{}{}, ErrRoleNotFound
		case err != nil:
			return struct{}{}, err
		}
		s.InvalidateRoles(server.ID)
		return struct{}{}, nil
	})
	return err
}
