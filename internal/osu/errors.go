package osu

import "errors"

var (
	// ErrAuth indicates the client-credentials request failed or the API
	// rejected the bearer token. Callers should not retry inline.
	ErrAuth = errors.New("osu: authentication failed")

	// ErrInvalidState indicates Revoke was called without a live token.
	ErrInvalidState = errors.New("osu: no live token to revoke")

	// ErrUserNotFound indicates the API has no user with the requested id.
	ErrUserNotFound = errors.New("osu: user not found")
)
