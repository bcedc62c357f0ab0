package guilddb

import (
	"time"

	"github.com/uptrace/bun"
)

// Server is one Discord guild the bot has joined.
type Server struct {
	bun.BaseModel `bun:"table:servers,alias:s"`

	ID        int64  `bun:"id,pk,autoincrement"`
	DiscordID string `bun:"discord_id,notnull,unique,type:varchar(20)"`
	// Country restricts linking to players from one ISO 3166 country.
	Country              *string   `bun:"country,type:varchar(2)"`
	VerifiedRoleID       *string   `bun:"verified_role_id,type:varchar(20)"`
	CommandsChannelID    *string   `bun:"commands_channel_id,type:varchar(20)"`
	LeaderboardChannelID *string   `bun:"leaderboard_channel_id,type:varchar(20)"`
	CreatedAt            time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt            time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Role is a points threshold inside one server. The floor role has
// MinPoints 0 and usually no DiscordID.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID        int64   `bun:"id,pk,autoincrement"`
	ServerID  int64   `bun:"server_id,notnull,unique:roles_server_min_points"`
	DiscordID *string `bun:"discord_id,type:varchar(20)"`
	Name      string  `bun:"name,notnull,type:varchar(100)"`
	MinPoints int     `bun:"min_points,notnull,unique:roles_server_min_points"`
}

// FloorRoleName is the display name of the role created with a server.
const FloorRoleName = "No points"
