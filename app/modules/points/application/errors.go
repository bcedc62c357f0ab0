package pointsservice

import "errors"

var (
	// ErrServerNotFound indicates the guild is not registered. Fatal to the
	// calling flow.
	ErrServerNotFound = errors.New("server not found")

	// ErrConfiguration indicates the guild has no zero-points role. It must be
	// reported to a server admin.
	ErrConfiguration = errors.New("server is misconfigured")

	// ErrNegativePoints indicates a caller passed points below zero, which no
	// rank table can produce.
	ErrNegativePoints = errors.New("points must not be negative")

	// ErrUserNotLinked indicates the Discord member has no linked osu! account.
	ErrUserNotLinked = errors.New("discord account is not linked")
)
