package userdb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Repository defines the contract for linked user persistence.
// A nil db uses the repository's own handle.
//
// Error semantics:
//   - ErrNotFound: Record does not exist
//   - ErrAlreadyExists: Discord or osu! id already linked
//   - ErrNoRowsAffected: UPDATE matched no rows
type Repository interface {
	GetUserByID(ctx context.Context, db bun.IDB, id int64) (*User, error)
	GetUserByOsuID(ctx context.Context, db bun.IDB, osuID int64) (*User, error)
	GetUserByDiscordID(ctx context.Context, db bun.IDB, discordID string) (*User, error)

	// CreateUser inserts a new link and fills user.ID.
	CreateUser(ctx context.Context, db bun.IDB, user *User) error

	// UpdatePoints stores a freshly computed total. An empty Username keeps
	// the cached display name.
	UpdatePoints(ctx context.Context, db bun.IDB, id int64, update PointsUpdate) error

	// GetStaleUsers returns users holding at least one assignment that were
	// never updated or last updated before the cut-off, oldest first.
	GetStaleUsers(ctx context.Context, db bun.IDB, before time.Time, limit int) ([]User, error)
}
