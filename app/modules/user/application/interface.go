package userservice

import (
	"context"

	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/osu"
)

// LinkResult is the outcome of a successful link.
type LinkResult struct {
	User *userdb.User
	// VerifiedRoleID is the role to grant on link, if the server has one.
	VerifiedRoleID *string
}

// Service defines the interface for user operations.
type Service interface {
	LinkUser(ctx context.Context, guildID, discordID string, osuID int64) (*LinkResult, error)
	GetUserByOsuID(ctx context.Context, osuID int64) (*userdb.User, error)
	GetUserByDiscordID(ctx context.Context, discordID string) (*userdb.User, error)
	GetUserByID(ctx context.Context, id int64) (*userdb.User, error)
	InvalidateUser(osuID int64)
}

// OsuUsers looks up osu! profiles.
type OsuUsers interface {
	GetUser(ctx context.Context, osuID int64) (*osu.User, error)
}
