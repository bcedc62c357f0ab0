package userdb

import (
	"time"

	"github.com/uptrace/bun"
)

// User links one Discord account to one osu! account.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64  `bun:"id,pk,autoincrement"`
	DiscordID string `bun:"discord_id,notnull,unique,type:varchar(20)"`
	OsuID     int64  `bun:"osu_id,notnull,unique"`
	Username  string `bun:"username,notnull,type:varchar(32)"`
	Country   string `bun:"country,notnull,type:varchar(2)"`
	// Points is the most recently computed lifetime total.
	Points     int        `bun:"points,notnull,default:0"`
	LastUpdate *time.Time `bun:"last_update,nullzero"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// PointsUpdate is what a reconciliation writes back to the user row.
type PointsUpdate struct {
	Username string
	Points   int
	At       time.Time
}
