package guildservice

import (
	"context"

	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
)

// Service defines the interface for guild operations.
type Service interface {
	// EnsureServer registers a guild and its floor role. Idempotent; it also
	// restores a missing floor role.
	EnsureServer(ctx context.Context, guildID string) (*guilddb.Server, error)

	GetServer(ctx context.Context, guildID string) (*guilddb.Server, error)
	GetServerByID(ctx context.Context, serverID int64) (*guilddb.Server, error)
	UpdateServer(ctx context.Context, guildID string, updates *guilddb.UpdateFields) (*guilddb.Server, error)
	InvalidateServer(guildID string)

	// GetRoles returns the server's roles ordered by threshold.
	GetRoles(ctx context.Context, serverID int64) ([]guilddb.Role, error)
	InvalidateRoles(serverID int64)
	// SetRole binds a Discord role to a threshold and reports the row it
	// replaced so holders can be moved to the new Discord role.
	SetRole(ctx context.Context, guildID, discordRoleID, name string, minPoints int) (*RoleChange, error)
	RemoveRole(ctx context.Context, guildID, discordRoleID string) error
}
