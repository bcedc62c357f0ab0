package guilddb

import "errors"

// Sentinel errors for the repository layer.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoRowsAffected indicates an UPDATE/DELETE matched no rows.
	ErrNoRowsAffected = errors.New("no rows affected")

	// ErrRoleInUse indicates a role is still referenced by an assignment.
	ErrRoleInUse = errors.New("role is assigned to members")
)
