package pointsdb

import (
	"time"

	"github.com/uptrace/bun"
)

// Assignment is the role and points a user currently holds in one server.
// There is at most one row per (user, server).
type Assignment struct {
	bun.BaseModel `bun:"table:assignments,alias:a"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull,unique:assignments_user_server"`
	ServerID   int64     `bun:"server_id,notnull,unique:assignments_user_server"`
	RoleID     int64     `bun:"role_id,notnull"`
	Points     int       `bun:"points,notnull"`
	LastUpdate time.Time `bun:"last_update,notnull"`
}
