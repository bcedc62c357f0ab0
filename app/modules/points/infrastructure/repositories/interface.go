package pointsdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for role assignment persistence.
// A nil db uses the repository's own handle.
//
// Error semantics:
//   - ErrNotFound: Record does not exist
//   - ErrNoRowsAffected: UPDATE matched no rows
//   - Other errors: Infrastructure failures (DB connection, query errors)
type Repository interface {
	// AcquireAssignmentLock takes a transaction-scoped advisory lock on the
	// (server, user) pair. db must be a bun.Tx.
	AcquireAssignmentLock(ctx context.Context, db bun.IDB, serverID, userID int64) error

	// GetAssignment returns the user's assignment in a server.
	GetAssignment(ctx context.Context, db bun.IDB, userID, serverID int64) (*Assignment, error)

	// GetAssignmentsByUser lists every server assignment a user holds.
	GetAssignmentsByUser(ctx context.Context, db bun.IDB, userID int64) ([]Assignment, error)

	// GetHolderDiscordIDs returns the Discord ids of members assigned the
	// role, ordered by id.
	GetHolderDiscordIDs(ctx context.Context, db bun.IDB, roleID int64) ([]string, error)

	// InsertAssignment creates the row and fills assignment.ID.
	InsertAssignment(ctx context.Context, db bun.IDB, assignment *Assignment) error

	// UpdateAssignment rewrites role, points and last_update in place.
	UpdateAssignment(ctx context.Context, db bun.IDB, assignment *Assignment) error
}
