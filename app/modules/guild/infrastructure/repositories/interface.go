package guilddb

import (
	"context"

	"github.com/uptrace/bun"
)

// UpdateFields represents the updateable fields of a server.
// Nil means "not provided"; a pointer to "" clears the column.
type UpdateFields struct {
	Country              *string
	VerifiedRoleID       *string
	CommandsChannelID    *string
	LeaderboardChannelID *string
}

// IsEmpty reports whether any fields are set for update.
func (u *UpdateFields) IsEmpty() bool {
	if u == nil {
		return true
	}
	return u.Country == nil &&
		u.VerifiedRoleID == nil &&
		u.CommandsChannelID == nil &&
		u.LeaderboardChannelID == nil
}

// Repository defines the contract for server and role persistence.
// Every method takes the bun.IDB to run on so callers can pass a bun.Tx;
// a nil db uses the repository's own handle.
//
// Error semantics:
//   - ErrNotFound: Record does not exist
//   - ErrNoRowsAffected: UPDATE/DELETE matched no rows
//   - Other errors: Infrastructure failures (DB connection, query errors)
type Repository interface {
	// GetServerByDiscordID retrieves a server by its guild id.
	GetServerByDiscordID(ctx context.Context, db bun.IDB, guildID string) (*Server, error)

	// GetServerByID retrieves a server by its internal id.
	GetServerByID(ctx context.Context, db bun.IDB, id int64) (*Server, error)

	// CreateServer inserts the server unless the guild id already exists.
	// It reports whether a row was inserted and fills server.ID either way.
	CreateServer(ctx context.Context, db bun.IDB, server *Server) (bool, error)

	// UpdateServer applies partial updates to a server.
	// Returns ErrNoRowsAffected if the guild is unknown.
	UpdateServer(ctx context.Context, db bun.IDB, guildID string, updates *UpdateFields) error

	// GetRoles lists a server's roles ordered by MinPoints ascending.
	GetRoles(ctx context.Context, db bun.IDB, serverID int64) ([]Role, error)

	// UpsertRole inserts a role, or replaces the one at the same MinPoints.
	UpsertRole(ctx context.Context, db bun.IDB, role *Role) error

	// DeleteRole removes the role with the given external id.
	// Returns ErrNoRowsAffected if there is none.
	DeleteRole(ctx context.Context, db bun.IDB, serverID int64, discordRoleID string) error
}
