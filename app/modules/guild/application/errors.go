package guildservice

import "errors"

var (
	// ErrServerNotFound indicates the bot has no row for the guild. The guild
	// was never joined or joined while the bot was offline.
	ErrServerNotFound = errors.New("server not found")

	// ErrInvalidThreshold indicates a negative role threshold.
	ErrInvalidThreshold = errors.New("role threshold must not be negative")

	// ErrFloorRole indicates an attempt to remove the zero-points role.
	ErrFloorRole = errors.New("the zero-points role cannot be removed")

	// ErrRoleNotFound indicates no role matches the Discord role id.
	ErrRoleNotFound = errors.New("role not found")
)
