package userservice

import "errors"

// Domain errors for the user service.
// These are business outcomes the Discord layer reports to the member, not
// infrastructure failures.
var (
	// ErrAlreadyLinked indicates the Discord account or the osu! account is
	// already linked.
	ErrAlreadyLinked = errors.New("account already linked")

	// ErrCountryMismatch indicates the osu! account's country differs from the
	// server's restriction.
	ErrCountryMismatch = errors.New("osu! account country does not match the server")

	// ErrOsuUserNotFound indicates osu! has no such player.
	ErrOsuUserNotFound = errors.New("osu! user not found")

	// ErrUserNotFound indicates the user is not linked.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidOsuID indicates a non-positive osu! id.
	ErrInvalidOsuID = errors.New("osu! id must be positive")
)
