package userdb

import "errors"

// Sentinel errors for the user repository layer.
// These indicate infrastructure-level outcomes (presence/absence of rows), not
// domain validation failures. Service layers decide how to map them.
var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user record not found")

	// ErrNoRowsAffected indicates an UPDATE/DELETE affected zero rows.
	ErrNoRowsAffected = errors.New("no rows affected")

	// ErrAlreadyExists indicates an insert hit the discord_id or osu_id unique key.
	ErrAlreadyExists = errors.New("user already exists")
)
