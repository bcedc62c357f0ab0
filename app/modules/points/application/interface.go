package pointsservice

import (
	"context"
	"time"

	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	pointsdomain "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/domain"
	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/osu"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/osustats"
)

// Service defines the interface for points operations.
type Service interface {
	// Reconcile compares points against the stored assignment for the
	// player in the guild and persists the result.
	Reconcile(ctx context.Context, guildID string, osuID int64, points int) (ReconcileResult, error)

	// ReconcileRanks scores an already parsed rank table and reconciles it.
	ReconcileRanks(ctx context.Context, guildID string, osuID int64, ranks []pointsdomain.RankCount, scheme pointsdomain.Scheme) (ReconcileResult, error)

	// UpdateLinkedUser fetches the member's rank table and reconciles it.
	UpdateLinkedUser(ctx context.Context, guildID, discordID string) (ReconcileResult, error)

	// PreviewPoints computes a player's points without persisting anything.
	PreviewPoints(ctx context.Context, osuID int64) (*Preview, error)

	// RefreshUser recomputes a user's points in every server they hold an
	// assignment in.
	RefreshUser(ctx context.Context, userID int64) ([]AssignmentResult, error)

	// StaleUsers lists users not updated since before.
	StaleUsers(ctx context.Context, before time.Time, limit int) ([]userdb.User, error)

	// RoleHolders lists the Discord ids of members assigned a role.
	RoleHolders(ctx context.Context, roleID int64) ([]string, error)
}

// Guilds resolves servers and their role tiers.
type Guilds interface {
	GetServer(ctx context.Context, guildID string) (*guilddb.Server, error)
	GetServerByID(ctx context.Context, serverID int64) (*guilddb.Server, error)
	GetRoles(ctx context.Context, serverID int64) ([]guilddb.Role, error)
	InvalidateRoles(serverID int64)
}

// Users resolves linked users.
type Users interface {
	GetUserByOsuID(ctx context.Context, osuID int64) (*userdb.User, error)
	GetUserByDiscordID(ctx context.Context, discordID string) (*userdb.User, error)
	GetUserByID(ctx context.Context, id int64) (*userdb.User, error)
	InvalidateUser(osuID int64)
}

// RankSource fetches top-N placement counts.
type RankSource interface {
	RankCounts(ctx context.Context, username string, thresholds []int) ([]osustats.RankCount, error)
}

// OsuUsers looks up osu! profiles.
type OsuUsers interface {
	GetUser(ctx context.Context, osuID int64) (*osu.User, error)
}
